// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorEmptySummary(t *testing.T) {
	s := NewCollector().Summary()
	assert.Zero(t, s.CacheHits)
	assert.Zero(t, s.CacheHitRate)
	assert.Zero(t, s.MitigationRuns)
	assert.Empty(t, s.StageAverageMS)
	assert.Empty(t, s.CollaboratorFailures)
}

func TestCollectorCacheHitRate(t *testing.T) {
	c := NewCollector()
	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheMiss()

	s := c.Summary()
	assert.Equal(t, int64(3), s.CacheHits)
	assert.Equal(t, int64(1), s.CacheMisses)
	assert.InDelta(t, 0.75, s.CacheHitRate, 1e-9)
}

func TestCollectorMitigationAggregates(t *testing.T) {
	c := NewCollector()
	c.RecordMitigation(1, true)
	c.RecordMitigation(2, false)
	c.RecordMitigation(2, true)

	s := c.Summary()
	assert.Equal(t, 3, s.MitigationRuns)
	assert.InDelta(t, 5.0/3.0, s.AverageRetries, 1e-9)
	assert.InDelta(t, 2.0/3.0, s.MitigationSuccessRate, 1e-9)
}

func TestCollectorStageAverages(t *testing.T) {
	c := NewCollector()
	c.RecordStageDuration(StageConnection, 100*time.Millisecond)
	c.RecordStageDuration(StageConnection, 300*time.Millisecond)
	c.RecordStageDuration(StageReview, 50*time.Millisecond)

	s := c.Summary()
	assert.InDelta(t, 200.0, s.StageAverageMS[StageConnection], 1.0)
	assert.InDelta(t, 50.0, s.StageAverageMS[StageReview], 1.0)
}

func TestCollectorConcurrentWrites(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordCacheHit()
			c.RecordCacheMiss()
			c.RecordStageDuration(StageNarrative, time.Millisecond)
			c.RecordCollaboratorFailure(CollaboratorBias)
		}()
	}
	wg.Wait()

	s := c.Summary()
	assert.Equal(t, int64(50), s.CacheHits)
	assert.Equal(t, int64(50), s.CacheMisses)
	assert.Equal(t, int64(50), s.CollaboratorFailures[CollaboratorBias])
}
