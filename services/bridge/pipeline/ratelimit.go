// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"sync"
	"time"
)

// Default outbound model-call budget.
const (
	DefaultRateLimit  = 10
	DefaultRateWindow = time.Minute
)

// RateLimiter is a sliding-window gate on outbound model calls.
//
// # Description
//
//	Keeps the timestamps of admitted calls within the trailing window.
//	Acquire blocks until admitting another call would keep the count
//	within the window at or below the ceiling. Admission is FIFO in the
//	sense that the oldest timestamp expires first; no stronger fairness
//	is guaranteed between concurrent waiters.
//
// # Thread Safety
//
//	Safe for concurrent use.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	stamps      []time.Time

	// now is swapped in tests.
	now func() time.Time
}

// NewRateLimiter creates a limiter admitting maxRequests per window.
// Non-positive arguments fall back to the defaults.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		stamps:      make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

// Acquire blocks until a call slot is available or ctx is done. The wait
// re-checks capacity after each sleep: under contention a single sleep is
// not enough, because other waiters may claim the freed slot first.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		if len(l.stamps) < l.maxRequests {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		// Wait until the oldest stamp exits the window, then re-check.
		wait := l.stamps[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Pending returns how many admitted calls are still inside the window.
func (l *RateLimiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.stamps)
}

// prune drops timestamps older than the window. Caller must hold mu.
func (l *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}
