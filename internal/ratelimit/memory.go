package ratelimit

import (
	"context"
	"sync"
	"time"
)

// pruneThreshold is the number of tracked keys above which stale buckets are dropped.
const pruneThreshold = 4096

type memoryEntry struct {
	bucket int64
	window time.Duration
	count  int
	reset  time.Time
}

// MemoryLimiter implements a fixed-window in-memory rate limiter.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*memoryEntry
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		counters: make(map[string]*memoryEntry),
	}
}

// Allow checks whether the request fits in the current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	bucket, reset := windowBounds(now, window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.counters) > pruneThreshold {
		l.prune(now)
	}
	entry := l.counters[key]
	if entry == nil {
		entry = &memoryEntry{bucket: bucket}
		l.counters[key] = entry
	}
	if entry.bucket != bucket || entry.window != window {
		entry.bucket = bucket
		entry.window = window
		entry.count = 0
	}
	entry.reset = reset
	if entry.count >= limit {
		return Result{Allowed: false, Limit: limit, Remaining: 0, Reset: reset}, nil
	}
	entry.count++
	return Result{Allowed: true, Limit: limit, Remaining: limit - entry.count, Reset: reset}, nil
}

// prune drops entries whose window has ended. Callers hold l.mu.
func (l *MemoryLimiter) prune(now time.Time) {
	for key, entry := range l.counters {
		if !now.Before(entry.reset) {
			delete(l.counters, key)
		}
	}
}
