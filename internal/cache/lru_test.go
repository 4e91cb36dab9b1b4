package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache[T any](maxSize int, ttl time.Duration) (*LRUCache[T], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[T](maxSize, ttl)
	c.now = clock.Now
	return c, clock
}

// TestLRUCacheEviction tests size-based eviction
func TestLRUCacheEviction(t *testing.T) {
	cache, _ := newTestCache[string](3, time.Hour)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Set("key3", "value3")
	cache.Set("key4", "value4") // Should evict key1

	if _, found := cache.Get("key1"); found {
		t.Error("key1 should have been evicted")
	}
	for _, key := range []string{"key2", "key3", "key4"} {
		if _, found := cache.Get(key); !found {
			t.Errorf("%s should still exist", key)
		}
	}
}

func TestLRUCacheRecentlyReadSurvives(t *testing.T) {
	cache, _ := newTestCache[int](2, time.Hour)
	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Get("a")
	cache.Set("c", 3) // evicts b, not a

	if _, found := cache.Get("a"); !found {
		t.Error("a was read most recently and should survive")
	}
	if _, found := cache.Get("b"); found {
		t.Error("b should have been evicted")
	}
}

// TestLRUCacheTTLExpiration tests time-based expiration
func TestLRUCacheTTLExpiration(t *testing.T) {
	cache, clock := newTestCache[string](100, time.Minute)

	cache.Set("key1", "value1")
	if _, found := cache.Get("key1"); !found {
		t.Error("key1 should exist immediately")
	}

	clock.Advance(time.Minute + time.Second)
	if _, found := cache.Get("key1"); found {
		t.Error("key1 should have expired")
	}
	if cache.Size() != 0 {
		t.Errorf("expired entry should be dropped on read, size = %d", cache.Size())
	}
}

func TestLRUCacheDisabledWithZeroTTL(t *testing.T) {
	cache, _ := newTestCache[string](10, 0)
	cache.Set("key", "value")
	if _, found := cache.Get("key"); found {
		t.Error("zero TTL should disable caching")
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	cache, _ := newTestCache[string](10, time.Hour)
	cache.Set("user:1:2024-02-15:6", "a")
	cache.Set("user:1:2024-02-15:12", "b")
	cache.Set("user:12:2024-02-15:6", "c")
	cache.Set("user:2:2024-02-15:6", "d")

	if removed := cache.DeletePrefix("user:1:"); removed != 2 {
		t.Errorf("DeletePrefix removed %d, want 2", removed)
	}
	if _, found := cache.Get("user:12:2024-02-15:6"); !found {
		t.Error("user 12 must not be touched by user 1 invalidation")
	}
	if cache.Size() != 2 {
		t.Errorf("Size() = %d, want 2", cache.Size())
	}
}

// TestLRUCacheCleanExpired tests the cleanup mechanism
func TestLRUCacheCleanExpired(t *testing.T) {
	cache, clock := newTestCache[string](100, time.Minute)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	clock.Advance(30 * time.Second)
	cache.Set("key3", "value3")
	clock.Advance(45 * time.Second)

	if removed := cache.CleanExpired(); removed != 2 {
		t.Errorf("Expected 2 items cleaned, got %d", removed)
	}
	if _, found := cache.Get("key3"); !found {
		t.Error("key3 has not expired yet")
	}
}

func TestJanitorSweepsAndStops(t *testing.T) {
	cache, clock := newTestCache[string](10, time.Minute)
	cache.Set("old", "value")
	clock.Advance(2 * time.Minute)

	j := NewJanitor(time.Millisecond, cache)
	if n := j.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancellation")
	}
}

// BenchmarkLRUCache benchmarks cache performance
func BenchmarkLRUCache(b *testing.B) {
	cache := NewLRUCache[string](1000, time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("user:%d:", i%50)
		if i%10 == 0 {
			cache.Set(key, "summary")
		} else {
			cache.Get(key)
		}
	}
}
