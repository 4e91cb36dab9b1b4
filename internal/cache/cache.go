package cache

import (
	"context"
	"log/slog"
	"time"

	flog "finflow/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// DeletePrefix removes every key starting with prefix
	DeletePrefix(prefix string) int

	// Size returns the current number of items in the cache
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically evicts expired entries from registered caches.
type Janitor struct {
	caches   []Cleaner
	interval time.Duration
}

// NewJanitor creates a janitor sweeping every interval.
func NewJanitor(interval time.Duration, caches ...Cleaner) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{caches: caches, interval: interval}
}

// Register adds a cache to the janitor
func (j *Janitor) Register(cache Cleaner) {
	j.caches = append(j.caches, cache)
}

// Run sweeps until ctx is cancelled. It always returns nil so it can sit in an errgroup.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				slog.DebugContext(ctx, "Evicted expired cache entries", flog.FieldComponent, flog.ComponentCache, "count", n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Sweep cleans every registered cache once.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}
