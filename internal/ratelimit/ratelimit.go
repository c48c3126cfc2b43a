// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit throttles outgoing requests to one upstream's quota.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a minimum interval between permitted calls. It is a
// strict interval throttle, not a token bucket: even after a long idle
// period only one call proceeds immediately. Safe for concurrent use;
// callers serialize on an internal mutex.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// New returns a Limiter permitting perSecond calls per second. A
// non-positive rate yields a no-op limiter.
func New(perSecond float64) *Limiter {
	l := &Limiter{}
	if perSecond > 0 {
		l.interval = time.Duration(float64(time.Second) / perSecond)
	}
	return l
}

// Wait blocks until at least the configured interval has elapsed since the
// previous permitted call, then records the current time as the new mark.
func (l *Limiter) Wait() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.interval <= 0 {
		return
	}
	if !l.last.IsZero() {
		if elapsed := time.Since(l.last); elapsed < l.interval {
			time.Sleep(l.interval - elapsed)
		}
	}
	l.last = time.Now()
}
