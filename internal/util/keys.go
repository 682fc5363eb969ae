package util

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// UniqSorted returns a sorted copy of in with duplicates and empty strings removed.
func UniqSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	s := make([]string, 0, len(in))
	for _, v := range in {
		if v != "" {
			s = append(s, v)
		}
	}
	sort.Strings(s)
	out := s[:0]
	for _, v := range s {
		if len(out) > 0 && out[len(out)-1] == v {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Redact returns a short stable hash of k, safe to put in logs.
func Redact(k string) string {
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}
