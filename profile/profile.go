// Package profile loads named querycache.Settings from YAML.
//
//	profiles:
//	  default:
//	    expiration: 10m
//	  reports:
//	    expiration: 1d
//	    failure_expiration: 30s
//
// Durations accept Go syntax plus days and weeks ("1d", "2w3d").
// A name without a profile falls back to "default".
package profile

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/querycache"
)

const Default = "default"

type rawProfile struct {
	Expiration        string `yaml:"expiration"`
	FailureExpiration string `yaml:"failure_expiration"`
}

type document struct {
	Profiles map[string]rawProfile `yaml:"profiles"`
}

// Set is an immutable collection of named settings.
type Set struct {
	profiles map[string]querycache.Settings
}

// Load reads a profile file.
func Load(path string) (*Set, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("profile: %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a profile document. Unknown fields are rejected.
func Parse(b []byte) (*Set, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	s := &Set{profiles: make(map[string]querycache.Settings, len(doc.Profiles))}
	for name, raw := range doc.Profiles {
		exp, err := parseDuration(raw.Expiration)
		if err != nil {
			return nil, fmt.Errorf("profile %q: expiration: %w", name, err)
		}
		fexp, err := parseDuration(raw.FailureExpiration)
		if err != nil {
			return nil, fmt.Errorf("profile %q: failure_expiration: %w", name, err)
		}
		st := querycache.Settings{Expiration: exp, FailureExpiration: fexp}
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		s.profiles[name] = st
	}
	return s, nil
}

func parseDuration(v string) (time.Duration, error) {
	if v == "" || v == "0" {
		return 0, nil
	}
	return str2duration.ParseDuration(v)
}

// Lookup returns the named profile without fallback.
func (s *Set) Lookup(name string) (querycache.Settings, bool) {
	st, ok := s.profiles[name]
	return st, ok
}

// Get returns the named profile, the default profile when name is unknown,
// or zero Settings (the cache's DefaultTTL) when neither exists.
func (s *Set) Get(name string) querycache.Settings {
	if st, ok := s.profiles[name]; ok {
		return st
	}
	return s.profiles[Default]
}

// Names returns the profile names, sorted.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.profiles))
	for n := range s.profiles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
