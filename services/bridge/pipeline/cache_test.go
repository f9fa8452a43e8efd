// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
)

func cacheKey(a, b string) datatypes.CacheKey {
	return datatypes.NewCacheKey(a, b, "intermediate")
}

func sampleResult(a, b string) *datatypes.Result {
	return &datatypes.Result{
		ConceptA: a,
		ConceptB: b,
		Level:    "intermediate",
		Connection: datatypes.Connection{
			Path:        []string{a, "link", b},
			Disciplines: []string{"x", "y", "z"},
			Strength:    0.7,
		},
		Narrative: datatypes.Narrative{Explanation: "text", Analogies: []string{"one"}},
	}
}

func TestCacheSetCopiesOnWrite(t *testing.T) {
	cache := NewResultCache(4)
	original := sampleResult("A", "B")
	cache.Set(cacheKey("A", "B"), original)

	// Mutating the caller's copy after Set must not reach the cache.
	original.Connection.Path[0] = "corrupted"

	got, ok := cache.Get(cacheKey("A", "B"))
	require.True(t, ok)
	assert.Equal(t, "A", got.Connection.Path[0])
}

func TestCacheGetCopiesOnRead(t *testing.T) {
	cache := NewResultCache(4)
	cache.Set(cacheKey("A", "B"), sampleResult("A", "B"))

	first, ok := cache.Get(cacheKey("A", "B"))
	require.True(t, ok)
	first.Narrative.Analogies[0] = "corrupted"
	first.Mitigation = &datatypes.Mitigation{Triggered: true}

	second, ok := cache.Get(cacheKey("A", "B"))
	require.True(t, ok)
	assert.Equal(t, "one", second.Narrative.Analogies[0])
	assert.Nil(t, second.Mitigation)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewResultCache(2)
	cache.Set(cacheKey("A", "B"), sampleResult("A", "B"))
	cache.Set(cacheKey("C", "D"), sampleResult("C", "D"))

	// Touch (A,B) so (C,D) becomes the eviction candidate.
	_, ok := cache.Get(cacheKey("A", "B"))
	require.True(t, ok)

	cache.Set(cacheKey("E", "F"), sampleResult("E", "F"))

	_, ok = cache.Get(cacheKey("C", "D"))
	assert.False(t, ok)
	_, ok = cache.Get(cacheKey("A", "B"))
	assert.True(t, ok)
	assert.Equal(t, int64(1), cache.Evictions())
}

func TestCacheDefaultCapacity(t *testing.T) {
	cache := NewResultCache(0)
	for i := 0; i < DefaultCacheCapacity+5; i++ {
		a := fmt.Sprintf("concept-%d", i)
		cache.Set(cacheKey(a, "B"), sampleResult(a, "B"))
	}
	assert.Equal(t, DefaultCacheCapacity, cache.Len())
}

func TestCacheStats(t *testing.T) {
	cache := NewResultCache(4)
	cache.Set(cacheKey("A", "B"), sampleResult("A", "B"))

	cache.Get(cacheKey("A", "B"))
	cache.Get(cacheKey("missing", "B"))

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	cache.Purge()
	hits, misses = cache.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
	assert.Zero(t, cache.Len())
}
