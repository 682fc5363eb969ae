package genstore

import (
	"context"
	"testing"
	"time"
)

func TestLocalSnapshotMissingIsZero(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	g, err := s.Snapshot(ctx, "nope")
	if err != nil || g != 0 {
		t.Fatalf("missing key: gen=%d err=%v", g, err)
	}
}

func TestLocalBumpAndBumpMany(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	if g, err := s.Bump(ctx, "a"); err != nil || g != 1 {
		t.Fatalf("first bump: gen=%d err=%v", g, err)
	}
	if err := s.BumpMany(ctx, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	ga, _ := s.Snapshot(ctx, "a")
	gb, _ := s.Snapshot(ctx, "b")
	gc, _ := s.Snapshot(ctx, "c")
	if ga != 2 || gb != 1 || gc != 0 {
		t.Fatalf("got a=%d b=%d c=%d want a=2,b=1,c=0", ga, gb, gc)
	}
}

func TestLocalCleanupPrunesOld(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, time.Hour)
	t.Cleanup(func() { _ = s.Close(ctx) })

	base := time.Now()
	s.now = func() time.Time { return base }
	if _, err := s.Bump(ctx, "old"); err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return base.Add(30 * time.Minute) }
	if _, err := s.Bump(ctx, "recent"); err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return base.Add(61 * time.Minute) }
	s.Cleanup(time.Hour)

	if s.Len() != 1 {
		t.Fatalf("tracked keys = %d, want 1", s.Len())
	}
	if g, _ := s.Snapshot(ctx, "old"); g != 0 {
		t.Fatalf("expected pruned -> 0, got %d", g)
	}
	if g, _ := s.Snapshot(ctx, "recent"); g != 1 {
		t.Fatalf("recent gen = %d, want 1", g)
	}
}

func TestLocalCloseIdempotent(t *testing.T) {
	s := NewLocal(time.Millisecond, time.Hour)
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}
