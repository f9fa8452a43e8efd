// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"sync"
	"time"
)

// Collaborator names used for failure counters.
const (
	CollaboratorConnection  = "connection"
	CollaboratorExplanation = "explanation"
	CollaboratorBias        = "bias"
	CollaboratorReview      = "review"
	CollaboratorPersistence = "persistence"
)

// Collector aggregates operational telemetry in memory. It is created
// once with the orchestrator and lives for the process lifetime; nothing
// is persisted or exported from here.
//
// # Thread Safety
//
//	Safe for concurrent use. Summary is a point-in-time aggregate;
//	exact linearizability with concurrent writers is not required.
type Collector struct {
	mu sync.Mutex

	cacheHits   int64
	cacheMisses int64

	// One sample per query that entered the mitigation loop.
	retryCounts   []int
	retryResolved []bool

	stageTotal map[string]time.Duration
	stageCount map[string]int64

	collaboratorFailures map[string]int64
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		stageTotal:           make(map[string]time.Duration),
		stageCount:           make(map[string]int64),
		collaboratorFailures: make(map[string]int64),
	}
}

// RecordCacheHit counts one cache hit.
func (c *Collector) RecordCacheHit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheHits++
}

// RecordCacheMiss counts one cache miss.
func (c *Collector) RecordCacheMiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheMisses++
}

// RecordMitigation records the retry count of one mitigation loop and
// whether it resolved the review flags.
func (c *Collector) RecordMitigation(retries int, resolved bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryCounts = append(c.retryCounts, retries)
	c.retryResolved = append(c.retryResolved, resolved)
}

// RecordStageDuration adds one duration sample for a pipeline stage.
func (c *Collector) RecordStageDuration(stage string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stageTotal[stage] += d
	c.stageCount[stage]++
}

// RecordCollaboratorFailure counts one failure of the named collaborator.
func (c *Collector) RecordCollaboratorFailure(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collaboratorFailures[name]++
}

// Summary is a snapshot of the collector's aggregates.
type Summary struct {
	CacheHits    int64   `json:"cache_hits"`
	CacheMisses  int64   `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	MitigationRuns        int     `json:"mitigation_runs"`
	AverageRetries        float64 `json:"average_retries"`
	MitigationSuccessRate float64 `json:"mitigation_success_rate"`

	// StageAverageMS maps stage name to its mean duration in
	// milliseconds.
	StageAverageMS map[string]float64 `json:"stage_average_ms"`

	CollaboratorFailures map[string]int64 `json:"collaborator_failures"`
}

// Summary computes a snapshot. Safe to call concurrently with writers.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		CacheHits:            c.cacheHits,
		CacheMisses:          c.cacheMisses,
		StageAverageMS:       make(map[string]float64, len(c.stageTotal)),
		CollaboratorFailures: make(map[string]int64, len(c.collaboratorFailures)),
	}

	if total := c.cacheHits + c.cacheMisses; total > 0 {
		s.CacheHitRate = float64(c.cacheHits) / float64(total)
	}

	s.MitigationRuns = len(c.retryCounts)
	if s.MitigationRuns > 0 {
		var retries, resolved int
		for i, n := range c.retryCounts {
			retries += n
			if c.retryResolved[i] {
				resolved++
			}
		}
		s.AverageRetries = float64(retries) / float64(s.MitigationRuns)
		s.MitigationSuccessRate = float64(resolved) / float64(s.MitigationRuns)
	}

	for stage, total := range c.stageTotal {
		if n := c.stageCount[stage]; n > 0 {
			s.StageAverageMS[stage] = float64(total.Milliseconds()) / float64(n)
		}
	}
	for name, n := range c.collaboratorFailures {
		s.CollaboratorFailures[name] = n
	}
	return s
}
