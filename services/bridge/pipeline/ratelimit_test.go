// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAdmitsWithinBudget(t *testing.T) {
	limiter := NewRateLimiter(3, time.Second)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Acquire(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 3, limiter.Pending())
}

func TestRateLimiterBackpressure(t *testing.T) {
	limiter := NewRateLimiter(3, time.Second)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, limiter.Acquire(ctx))
	}
	// The 4th acquisition cannot complete before the first stamp exits
	// the window.
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestRateLimiterRespectsContext(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	require.NoError(t, limiter.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiterSlidesWindow(t *testing.T) {
	limiter := NewRateLimiter(2, 100*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx))
	require.NoError(t, limiter.Acquire(ctx))
	time.Sleep(150 * time.Millisecond)

	// Old stamps expired; new acquisitions are immediate again.
	start := time.Now()
	require.NoError(t, limiter.Acquire(ctx))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 1, limiter.Pending())
}
