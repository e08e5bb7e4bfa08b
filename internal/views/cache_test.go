package views

import (
	"context"
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Minute)
	if _, ok := c.Get(ListingPath); ok {
		t.Fatal("expected empty cache miss")
	}

	c.Put(ListingPath, []byte(`[]`))
	payload, ok := c.Get(ListingPath)
	if !ok {
		t.Fatal("expected cache hit after Put")
	}
	if string(payload) != `[]` {
		t.Fatalf("cached payload = %q, want %q", payload, `[]`)
	}
}

func TestInvalidateDropsPaths(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewCache(time.Minute)
	detail := DetailPath("abc")

	c.Put(ListingPath, []byte(`listing`))
	c.Put(detail, []byte(`detail`))

	c.Invalidate(ctx, ListingPath, detail)

	if _, ok := c.Get(ListingPath); ok {
		t.Fatal("expected listing to be stale after invalidation")
	}
	if _, ok := c.Get(detail); ok {
		t.Fatal("expected detail to be stale after invalidation")
	}
}

func TestInvalidateIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewCache(time.Minute)

	// repeated and unknown paths must be harmless
	c.Invalidate(ctx, ListingPath)
	c.Invalidate(ctx, ListingPath, DetailPath("missing"))
}

func TestDetailPath(t *testing.T) {
	t.Parallel()

	if got := DetailPath("id-1"); got != "/plant/id-1" {
		t.Fatalf("DetailPath = %q", got)
	}
}
