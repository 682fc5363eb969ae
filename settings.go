package querycache

import (
	"fmt"
	"time"
)

// Settings is the per-query expiration policy.
type Settings struct {
	// Expiration evicts a successful result this long after it was written.
	// 0 => Options.DefaultTTL.
	Expiration time.Duration `yaml:"expiration" json:"expiration"`
	// FailureExpiration, when > 0, replaces Expiration for values reporting a
	// failure outcome (see Outcome). 0 => absent; failures use Expiration.
	FailureExpiration time.Duration `yaml:"failure_expiration" json:"failure_expiration"`
}

// Validate rejects negative durations.
func (s Settings) Validate() error {
	if s.Expiration < 0 {
		return fmt.Errorf("%w: negative expiration %v", ErrInvalidSettings, s.Expiration)
	}
	if s.FailureExpiration < 0 {
		return fmt.Errorf("%w: negative failure expiration %v", ErrInvalidSettings, s.FailureExpiration)
	}
	return nil
}

// EntryTTL picks the effective expiration of a write: FailureExpiration for a
// failure outcome when one is configured, Expiration otherwise.
func EntryTTL(s Settings, isFailure bool) time.Duration {
	if isFailure && s.FailureExpiration > 0 {
		return s.FailureExpiration
	}
	return s.Expiration
}
