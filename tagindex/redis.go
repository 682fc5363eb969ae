package tagindex

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// The forward set (keytags:<key>) and every tag set it names are rewritten by
// a single script, so concurrent rewrites of one key cannot interleave.
var associateScript = redis.NewScript(`
local fwd = KEYS[1]
local tagPrefix = ARGV[1]
local member = ARGV[2]
local ttl = tonumber(ARGV[3])

local function extend(k)
  if ttl > 0 then
    local cur = redis.call('PTTL', k)
    if cur >= 0 and cur < ttl then
      redis.call('PEXPIRE', k, ttl)
    elseif cur == -1 and redis.call('SCARD', k) == 1 then
      redis.call('PEXPIRE', k, ttl)
    end
  else
    redis.call('PERSIST', k)
  end
end

local old = redis.call('SMEMBERS', fwd)
for _, t in ipairs(old) do
  redis.call('SREM', tagPrefix .. t, member)
end
redis.call('DEL', fwd)

for i = 4, #ARGV do
  local tk = tagPrefix .. ARGV[i]
  redis.call('SADD', tk, member)
  redis.call('SADD', fwd, ARGV[i])
  extend(tk)
end
if #ARGV >= 4 then
  if ttl > 0 then
    redis.call('PEXPIRE', fwd, ttl)
  end
end
return #ARGV - 3
`)

var removeTagScript = redis.NewScript(`
local members = redis.call('SMEMBERS', KEYS[1])
for _, m in ipairs(members) do
  local fwd = ARGV[1] .. m
  redis.call('SREM', fwd, ARGV[2])
  if redis.call('SCARD', fwd) == 0 then
    redis.call('DEL', fwd)
  end
end
redis.call('DEL', KEYS[1])
return members
`)

// Redis keeps the index in Redis sets so it is shared across replicas:
//
//	<prefix>tag:<tag>     - keys tagged with tag
//	<prefix>keytags:<key> - tags of key
//
// Tag sets are given the TTL of their longest-lived member, so they expire
// together with the entries they describe. Scripts touch keys computed at run
// time; on Redis Cluster use a hash-tagged prefix (e.g. "{qc}:").
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ Index = (*Redis)(nil)

// NewRedis creates a Redis-backed index. prefix isolates the index keyspace,
// e.g. "qc:idx:".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{rdb: client, prefix: prefix}
}

func (s *Redis) tagKey(tag string) string { return s.prefix + "tag:" + tag }
func (s *Redis) fwdKey(key string) string { return s.prefix + "keytags:" + key }

func (s *Redis) Associate(ctx context.Context, key string, tags []string, ttl time.Duration) error {
	ms := int64(0)
	if ttl > 0 {
		ms = ttl.Milliseconds()
		if ms == 0 {
			ms = 1
		}
	}
	args := make([]any, 0, 3+len(tags))
	args = append(args, s.prefix+"tag:", key, strconv.FormatInt(ms, 10))
	for _, t := range tags {
		if t != "" {
			args = append(args, t)
		}
	}
	return associateScript.Run(ctx, s.rdb, []string{s.fwdKey(key)}, args...).Err()
}

func (s *Redis) KeysForTag(ctx context.Context, tag string) ([]string, error) {
	keys, err := s.rdb.SMembers(ctx, s.tagKey(tag)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Redis) RemoveTag(ctx context.Context, tag string) ([]string, error) {
	keys, err := removeTagScript.Run(ctx, s.rdb, []string{s.tagKey(tag)}, s.prefix+"keytags:", tag).StringSlice()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op; the caller owns the client.
func (s *Redis) Close(context.Context) error { return nil }
