package util

import (
	"reflect"
	"testing"
)

func TestUniqSorted(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{nil, nil},
		{[]string{""}, nil},
		{[]string{"b", "a", "b", "", "c", "a"}, []string{"a", "b", "c"}},
		{[]string{"x"}, []string{"x"}},
	}
	for _, tc := range cases {
		got := UniqSorted(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("UniqSorted(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestUniqSortedDoesNotMutateInput(t *testing.T) {
	in := []string{"c", "a", "c"}
	_ = UniqSorted(in)
	if in[0] != "c" || in[1] != "a" || in[2] != "c" {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestRedactStable(t *testing.T) {
	if Redact("user:42") != Redact("user:42") {
		t.Fatalf("redact must be deterministic")
	}
	if Redact("user:42") == Redact("user:43") {
		t.Fatalf("distinct keys should redact differently")
	}
	if len(Redact("k")) != 16 {
		t.Fatalf("expected 16 hex chars, got %d", len(Redact("k")))
	}
}
