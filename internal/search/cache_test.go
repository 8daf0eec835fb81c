package search

import (
	"context"
	"testing"
	"time"

	"audioswarm/searchservice/internal/domain"
)

func TestBuildCacheKeyIgnoresSourceOrder(t *testing.T) {
	a := &fakeSource{name: "jsonbay"}
	b := &fakeSource{name: "audionexus"}

	left := buildCacheKey("ubuntu", 1, []Source{a, b})
	right := buildCacheKey("ubuntu", 1, []Source{b, a})
	if left != right {
		t.Fatalf("key depends on source order: %q vs %q", left, right)
	}
}

func TestBuildCacheKeyDiscriminates(t *testing.T) {
	src := []Source{&fakeSource{name: "jsonbay"}}
	base := buildCacheKey("ubuntu", 1, src)

	if buildCacheKey("ubuntu", 2, src) == base {
		t.Fatalf("page must change the key")
	}
	if buildCacheKey("debian", 1, src) == base {
		t.Fatalf("query must change the key")
	}
	if buildCacheKey("ubuntu", 1, []Source{&fakeSource{name: "other"}}) == base {
		t.Fatalf("source set must change the key")
	}
	if buildCacheKey("  UBUNTU ", 1, src) != base {
		t.Fatalf("query case and padding must not change the key")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	service := NewService(nil, testOptions())
	response := domain.SearchResponse{
		Query:      "ubuntu",
		Items:      []domain.RankedRecord{{Title: "Ubuntu ISO", Score: 90}},
		TotalItems: 1,
	}

	now := time.Now()
	service.cacheStore(context.Background(), "key", response, now)

	cached, ok := service.cacheLookup(context.Background(), "key", now)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(cached.Items) != 1 || cached.Items[0].Title != "Ubuntu ISO" {
		t.Fatalf("cached response corrupted: %#v", cached)
	}

	// The cached copy must be isolated from later mutation.
	cached.Items[0].Title = "mutated"
	again, _ := service.cacheLookup(context.Background(), "key", now)
	if again.Items[0].Title != "Ubuntu ISO" {
		t.Fatalf("cache returned a shared slice")
	}
}

func TestCacheExpiry(t *testing.T) {
	service := NewService(nil, testOptions(), WithCacheTTL(time.Minute))
	now := time.Now()
	service.cacheStore(context.Background(), "key", domain.SearchResponse{Query: "q"}, now)

	if _, ok := service.cacheLookup(context.Background(), "key", now.Add(30*time.Second)); !ok {
		t.Fatalf("entry expired too early")
	}
	if _, ok := service.cacheLookup(context.Background(), "key", now.Add(2*time.Minute)); ok {
		t.Fatalf("entry must expire after its TTL")
	}
}

func TestCacheMiss(t *testing.T) {
	service := NewService(nil, testOptions())
	if _, ok := service.cacheLookup(context.Background(), "absent", time.Now()); ok {
		t.Fatalf("unexpected hit for absent key")
	}
}
