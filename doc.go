// Package querycache implements a cache-aside query cache on top of a
// pluggable byte store. Callers ask for a key with a factory; a hit returns
// the stored value and a miss runs the factory once, stores its result
// with a TTL chosen by its outcome, and returns it.
//
// Components:
//   - Provider: byte store with TTL (Ristretto, BigCache, Redis, NATS KV, SQLite).
//   - Serializer: (de)serializes values <-> []byte (JSON by default).
//   - tagindex.Index: optional tag -> keys index used by RemoveByTag(s).
//     Providers that implement it (SQLite) are picked up automatically.
//   - GenStore: optional per-key generations guarding against a factory
//     result written after the key was removed.
//
// Keys:
//
//	q:<ns>:<key>  - entries
//	<ns>:<tag>    - tags, as stored in the index
//
// Usage:
//
//	qc, _ := querycache.New(querycache.Options{Namespace: "users", Provider: p})
//	u, err := querycache.GetOrCreate(ctx, qc, "user:42", loadUser,
//		querycache.Settings{Expiration: time.Minute, FailureExpiration: 5 * time.Second},
//		"users")
//	_ = qc.RemoveByTag(ctx, "users")
package querycache
