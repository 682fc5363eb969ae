package tagindex

import (
	"context"
	"reflect"
	"testing"
	"time"
)

// runContract exercises the behavior every Index must provide.
func runContract(t *testing.T, newIndex func(t *testing.T) Index) {
	ctx := context.Background()

	t.Run("unknown_tag_is_empty", func(t *testing.T) {
		idx := newIndex(t)
		keys, err := idx.KeysForTag(ctx, "nope")
		if err != nil || len(keys) != 0 {
			t.Fatalf("KeysForTag unknown: keys=%v err=%v", keys, err)
		}
		keys, err = idx.RemoveTag(ctx, "nope")
		if err != nil || len(keys) != 0 {
			t.Fatalf("RemoveTag unknown: keys=%v err=%v", keys, err)
		}
	})

	t.Run("associate_and_lookup", func(t *testing.T) {
		idx := newIndex(t)
		mustAssociate(t, idx, "k1", []string{"a", "b"})
		mustAssociate(t, idx, "k2", []string{"b"})
		expectKeys(t, idx, "a", []string{"k1"})
		expectKeys(t, idx, "b", []string{"k1", "k2"})
	})

	t.Run("rewrite_replaces_tags", func(t *testing.T) {
		idx := newIndex(t)
		mustAssociate(t, idx, "k", []string{"a", "b"})
		mustAssociate(t, idx, "k", []string{"b"})
		expectKeys(t, idx, "a", nil)
		expectKeys(t, idx, "b", []string{"k"})

		removed, err := idx.RemoveTag(ctx, "a")
		if err != nil || len(removed) != 0 {
			t.Fatalf("RemoveTag a: removed=%v err=%v", removed, err)
		}
		removed, err = idx.RemoveTag(ctx, "b")
		if err != nil || !reflect.DeepEqual(removed, []string{"k"}) {
			t.Fatalf("RemoveTag b: removed=%v err=%v", removed, err)
		}
	})

	t.Run("empty_tags_clear", func(t *testing.T) {
		idx := newIndex(t)
		mustAssociate(t, idx, "k", []string{"a", "b"})
		mustAssociate(t, idx, "k", nil)
		expectKeys(t, idx, "a", nil)
		expectKeys(t, idx, "b", nil)
	})

	t.Run("remove_tag_detaches_and_clears", func(t *testing.T) {
		idx := newIndex(t)
		mustAssociate(t, idx, "k1", []string{"a", "b"})
		mustAssociate(t, idx, "k2", []string{"a"})
		mustAssociate(t, idx, "k3", []string{"c"})

		removed, err := idx.RemoveTag(ctx, "a")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(removed, []string{"k1", "k2"}) {
			t.Fatalf("RemoveTag a: got %v", removed)
		}
		expectKeys(t, idx, "a", nil)
		// k1 keeps its other tag until the caller clears it
		expectKeys(t, idx, "b", []string{"k1"})
		expectKeys(t, idx, "c", []string{"k3"})

		// rewriting k1 afterwards must not resurrect "a"
		mustAssociate(t, idx, "k1", []string{"c"})
		expectKeys(t, idx, "a", nil)
		expectKeys(t, idx, "b", nil)
		expectKeys(t, idx, "c", []string{"k1", "k3"})
	})

	t.Run("duplicate_and_empty_tags_ignored", func(t *testing.T) {
		idx := newIndex(t)
		mustAssociate(t, idx, "k", []string{"a", "", "a"})
		expectKeys(t, idx, "a", []string{"k"})
		expectKeys(t, idx, "", nil)
	})
}

func mustAssociate(t *testing.T, idx Index, key string, tags []string) {
	t.Helper()
	if err := idx.Associate(context.Background(), key, tags, time.Minute); err != nil {
		t.Fatalf("Associate(%q, %v): %v", key, tags, err)
	}
}

func expectKeys(t *testing.T, idx Index, tag string, want []string) {
	t.Helper()
	got, err := idx.KeysForTag(context.Background(), tag)
	if err != nil {
		t.Fatalf("KeysForTag(%q): %v", tag, err)
	}
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("KeysForTag(%q) = %v, want %v", tag, got, want)
	}
}
