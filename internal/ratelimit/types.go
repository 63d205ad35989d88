package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter provides fixed-window rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// Scope names a family of limits that share counters.
type Scope string

const (
	ScopeGeneral Scope = "general"
	ScopeAuth    Scope = "auth"
)

// Policy is one limit applied to a request.
type Policy struct {
	Scope  Scope
	Limit  int
	Window time.Duration
}

// windowBounds returns the bucket index for now and the time the bucket ends.
func windowBounds(now time.Time, window time.Duration) (int64, time.Time) {
	if window <= 0 {
		window = time.Second
	}
	bucket := now.UnixNano() / int64(window)
	reset := time.Unix(0, (bucket+1)*int64(window)).UTC()
	return bucket, reset
}
