package querycache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A lookup found a live entry / found nothing.
	Hit(storageKey string)
	Miss(storageKey string)

	// An entry was deleted by the cache on read.
	// reason ∈ {"expired", "gen_mismatch"}
	SelfHeal(storageKey, reason string)

	// Stored bytes could not be decoded (corrupt envelope or payload).
	DecodeError(storageKey string, err error)

	// The factory failed; nothing was cached.
	FactoryError(storageKey string, err error)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// A write was skipped because the key was removed while its value was
	// being computed.
	StaleWriteSkipped(storageKey string)

	// GenStore / tag index failures, reported whether or not they fail the call.
	// op ∈ {"snapshot", "bump"} / {"associate", "untag"}
	GenStoreError(op string, err error)
	TagIndexError(op string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                  {}
func (NopHooks) Miss(string)                 {}
func (NopHooks) SelfHeal(string, string)     {}
func (NopHooks) DecodeError(string, error)   {}
func (NopHooks) FactoryError(string, error)  {}
func (NopHooks) ProviderSetRejected(string)  {}
func (NopHooks) StaleWriteSkipped(string)    {}
func (NopHooks) GenStoreError(string, error) {}
func (NopHooks) TagIndexError(string, error) {}
