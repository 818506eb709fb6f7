package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryRateLimiter implements RateLimiter using an in-memory sliding window log.
// Safe for concurrent use. For Lambda, each warm instance shares this memory,
// so limits are per-instance rather than global. Expired entries are pruned
// lazily on each Allow call; no background goroutine is needed in a Lambda
// execution environment.
type MemoryRateLimiter struct {
	config Config

	mu      sync.Mutex
	buckets map[string]*bucket

	// now is overridable for tests.
	now func() time.Time
}

// bucket holds request timestamps for a single key.
type bucket struct {
	timestamps []time.Time
}

// NewMemoryRateLimiter creates a new in-memory rate limiter.
func NewMemoryRateLimiter(cfg Config) (*MemoryRateLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &MemoryRateLimiter{
		config:  cfg,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}, nil
}

// Allow checks if a request should be allowed for the given key.
// Uses sliding window log algorithm: counts requests in the last Window period.
func (m *MemoryRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	windowStart := now.Add(-m.config.Window)

	b, exists := m.buckets[key]
	if !exists {
		b = &bucket{timestamps: make([]time.Time, 0, m.config.EffectiveBurstSize())}
		m.buckets[key] = b
	}

	// Remove expired timestamps (older than window)
	b.timestamps = filterValid(b.timestamps, windowStart)

	limit := m.config.EffectiveBurstSize()
	if len(b.timestamps) >= limit {
		// Calculate retry-after: time until oldest request expires
		oldest := b.timestamps[0]
		retryAfter := oldest.Add(m.config.Window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter, nil
	}

	b.timestamps = append(b.timestamps, now)

	// Opportunistically drop other keys whose windows have fully expired,
	// keeping warm-instance memory bounded.
	for k, other := range m.buckets {
		if k == key {
			continue
		}
		other.timestamps = filterValid(other.timestamps, windowStart)
		if len(other.timestamps) == 0 {
			delete(m.buckets, k)
		}
	}

	return true, 0, nil
}

// filterValid returns the timestamps at or after windowStart.
// Timestamps are appended in order, so the valid suffix is contiguous.
func filterValid(timestamps []time.Time, windowStart time.Time) []time.Time {
	for i, ts := range timestamps {
		if !ts.Before(windowStart) {
			return timestamps[i:]
		}
	}
	return timestamps[:0]
}
