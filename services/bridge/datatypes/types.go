// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the bridge service.
//
// This file contains the domain artifacts produced by the pipeline:
// connections, narratives, review verdicts, fairness reports, and the
// externally visible Result. Request/response types for the HTTP layer
// live in request.go.
package datatypes

import (
	"strings"
	"time"
)

// =============================================================================
// Levels
// =============================================================================

// Learner proficiency tiers. Levels are free-form at the API edge (unknown
// values pass through to prompts) but are normalized into cache keys.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// NormalizeLevel lowercases and trims a level string, defaulting to
// intermediate when empty.
func NormalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return LevelIntermediate
	}
	return level
}

// =============================================================================
// Profile
// =============================================================================

// Profile holds per-session learner attributes. Familiarity ratings range
// 0-5. Free-form string fields are empty when unknown.
type Profile struct {
	SessionID         string `json:"session_id,omitempty"`
	KnowledgeLevel    string `json:"knowledge_level"`
	EducationLevel    string `json:"education_level,omitempty"`
	EducationSystem   string `json:"education_system,omitempty"`
	ConceptAKnowledge int    `json:"concept_a_knowledge"`
	ConceptBKnowledge int    `json:"concept_b_knowledge"`
}

// DefaultProfile returns the profile used when a session has none stored.
func DefaultProfile(sessionID string) Profile {
	return Profile{
		SessionID:      sessionID,
		KnowledgeLevel: LevelIntermediate,
	}
}

// ProfileOverrides carries caller-supplied per-request profile values.
// Nil fields leave the stored value unchanged; non-nil fields win.
type ProfileOverrides struct {
	KnowledgeLevel    *string `json:"knowledge_level,omitempty"`
	EducationLevel    *string `json:"education_level,omitempty"`
	EducationSystem   *string `json:"education_system,omitempty"`
	ConceptAKnowledge *int    `json:"concept_a_knowledge,omitempty"`
	ConceptBKnowledge *int    `json:"concept_b_knowledge,omitempty"`
}

// Apply returns a copy of p with non-nil override fields applied.
func (p Profile) Apply(o *ProfileOverrides) Profile {
	if o == nil {
		return p
	}
	if o.KnowledgeLevel != nil {
		p.KnowledgeLevel = *o.KnowledgeLevel
	}
	if o.EducationLevel != nil {
		p.EducationLevel = *o.EducationLevel
	}
	if o.EducationSystem != nil {
		p.EducationSystem = *o.EducationSystem
	}
	if o.ConceptAKnowledge != nil {
		p.ConceptAKnowledge = *o.ConceptAKnowledge
	}
	if o.ConceptBKnowledge != nil {
		p.ConceptBKnowledge = *o.ConceptBKnowledge
	}
	return p
}

// =============================================================================
// Query Context
// =============================================================================

// ConceptPair is one prior query of a session.
type ConceptPair struct {
	ConceptA string `json:"concept_a"`
	ConceptB string `json:"concept_b"`
}

// QueryContext is the ephemeral request-scoped record assembled at the
// start of every pipeline run. It is never persisted directly; its
// derivative, the Result, is.
type QueryContext struct {
	// History holds prior concept pairs for this session, most recent
	// first, bounded by the pipeline's history limit.
	History []ConceptPair

	SessionID string
	ConceptA  string
	ConceptB  string
	Level     string
	Profile   Profile

	// Guidance is the feedback-derived instruction text injected into
	// generation prompts. The mitigation loop replaces it per attempt.
	Guidance string
}

// =============================================================================
// Connection
// =============================================================================

// Path length bounds: the two inputs plus up to six intermediates.
const (
	MinPathLen = 2
	MaxPathLen = 8
)

// Connection is the discovered bridge between two concepts: an ordered
// concept chain, a parallel same-length discipline chain, and a strength
// score in [0,1]. Invariant: len(Path) == len(Disciplines).
type Connection struct {
	Path        []string `json:"path"`
	Disciplines []string `json:"disciplines"`
	Strength    float64  `json:"strength"`
}

// Empty reports whether no usable path was found. Downstream stages still
// run with an empty connection; the narrative degrades to a generic
// statement referencing both concept names.
func (c Connection) Empty() bool {
	return len(c.Path) == 0
}

// Normalize clamps the connection into its invariants: discipline list
// padded/truncated to the path length, strength clamped to [0,1], path
// truncated to MaxPathLen. Model output goes through this before it is
// allowed into a Result.
func (c Connection) Normalize() Connection {
	if len(c.Path) > MaxPathLen {
		c.Path = c.Path[:MaxPathLen]
	}
	switch {
	case len(c.Disciplines) > len(c.Path):
		c.Disciplines = c.Disciplines[:len(c.Path)]
	case len(c.Disciplines) < len(c.Path):
		padded := make([]string, len(c.Path))
		copy(padded, c.Disciplines)
		c.Disciplines = padded
	}
	if c.Strength < 0 {
		c.Strength = 0
	}
	if c.Strength > 1 {
		c.Strength = 1
	}
	return c
}

// Clone returns a deep copy.
func (c Connection) Clone() Connection {
	return Connection{
		Path:        append([]string(nil), c.Path...),
		Disciplines: append([]string(nil), c.Disciplines...),
		Strength:    c.Strength,
	}
}

// =============================================================================
// Narrative
// =============================================================================

// Narrative is the explanation plus its analogies. A Result always carries
// a non-empty explanation; the pipeline substitutes a fallback template
// when generation fails or returns empty content.
type Narrative struct {
	Explanation string   `json:"explanation"`
	Analogies   []string `json:"analogies"`
}

// Clone returns a deep copy.
func (n Narrative) Clone() Narrative {
	return Narrative{
		Explanation: n.Explanation,
		Analogies:   append([]string(nil), n.Analogies...),
	}
}

// =============================================================================
// Review Verdicts
// =============================================================================

// BiasVerdict is the bias monitor's output. Produced fresh per invocation;
// never mutated in place.
type BiasVerdict struct {
	HasBias bool     `json:"has_bias"`
	Reasons []string `json:"reasons"`

	// Note carries raw monitor output that fit no known format. It is
	// kept for operators reading stored results and never feeds the
	// regeneration guidance.
	Note string `json:"note,omitempty"`
}

// Clone returns a deep copy.
func (v BiasVerdict) Clone() BiasVerdict {
	return BiasVerdict{
		HasBias: v.HasBias,
		Reasons: append([]string(nil), v.Reasons...),
		Note:    v.Note,
	}
}

// BiasRisk tiers reported by the content reviewer.
type BiasRisk string

const (
	BiasRiskLow     BiasRisk = "low"
	BiasRiskMedium  BiasRisk = "medium"
	BiasRiskHigh    BiasRisk = "high"
	BiasRiskUnknown BiasRisk = "unknown"
)

// ContentVerdict is the content reviewer's level-alignment output.
type ContentVerdict struct {
	LevelAlignment   bool     `json:"level_alignment"`
	ReadingLevel     string   `json:"reading_level"`
	Issues           []string `json:"issues"`
	SuggestedActions []string `json:"suggested_actions"`
	BiasRisk         BiasRisk `json:"bias_risk"`
}

// Clone returns a deep copy.
func (v ContentVerdict) Clone() ContentVerdict {
	return ContentVerdict{
		LevelAlignment:   v.LevelAlignment,
		ReadingLevel:     v.ReadingLevel,
		Issues:           append([]string(nil), v.Issues...),
		SuggestedActions: append([]string(nil), v.SuggestedActions...),
		BiasRisk:         v.BiasRisk,
	}
}

// =============================================================================
// Fairness
// =============================================================================

// FairnessMetric is one explainable fairness score in [0,1].
type FairnessMetric struct {
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	Detail string  `json:"detail"`
}

// FairnessReport aggregates the three fairness metrics. Purely derived:
// recomputed whenever explanation or analogies change.
type FairnessReport struct {
	Overall float64          `json:"overall"`
	Metrics []FairnessMetric `json:"metrics"`
}

// Clone returns a deep copy.
func (r FairnessReport) Clone() FairnessReport {
	return FairnessReport{
		Overall: r.Overall,
		Metrics: append([]FairnessMetric(nil), r.Metrics...),
	}
}

// =============================================================================
// Timeline & Mitigation
// =============================================================================

// TimelineEntry records one pipeline stage's timing and a one-line
// description of its outcome.
type TimelineEntry struct {
	Stage       string    `json:"stage"`
	Description string    `json:"description"`
	DurationMS  int64     `json:"duration_ms"`
	At          time.Time `json:"at"`
}

// Mitigation is the metadata attached to a Result when the regeneration
// loop triggered.
type Mitigation struct {
	// Triggered is true when review flagged bias or level misalignment.
	Triggered bool `json:"triggered"`

	// Attempts counts regeneration attempts beyond the initial pass.
	Attempts int `json:"attempts"`

	// Guidance is the composed instruction text used on the last attempt.
	Guidance string `json:"guidance,omitempty"`

	// StrategyUsed names the retry strategy that cleared the review
	// flags, empty when none did.
	StrategyUsed string `json:"strategy_used,omitempty"`

	// Exhausted is true when the retry budget ran out with flags still
	// raised. This is a normal terminal outcome, not an error.
	Exhausted bool `json:"exhausted"`
}

// Mitigated reports whether the loop triggered and cleared the flags
// within the retry budget.
func (m *Mitigation) Mitigated() bool {
	return m != nil && m.Triggered && !m.Exhausted
}

// Clone returns a deep copy.
func (m *Mitigation) Clone() *Mitigation {
	if m == nil {
		return nil
	}
	out := *m
	return &out
}

// =============================================================================
// Result
// =============================================================================

// Result is the externally visible artifact of one query: created once,
// cached by lookup key, and persisted to session history as an opaque blob.
type Result struct {
	ConceptA string `json:"concept_a"`
	ConceptB string `json:"concept_b"`
	Level    string `json:"level"`

	Connection Connection     `json:"connection"`
	Narrative  Narrative      `json:"narrative"`
	Bias       BiasVerdict    `json:"bias"`
	Review     ContentVerdict `json:"review"`
	Fairness   FairnessReport `json:"fairness"`

	// Guidance is the feedback-derived text used on the initial pass.
	Guidance string `json:"guidance,omitempty"`

	Timeline   []TimelineEntry `json:"timeline"`
	Mitigation *Mitigation     `json:"mitigation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy. Deep-copy on cache read/write is load-bearing:
// callers mutate returned results freely without corrupting the cached copy.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	return &Result{
		ConceptA:   r.ConceptA,
		ConceptB:   r.ConceptB,
		Level:      r.Level,
		Connection: r.Connection.Clone(),
		Narrative:  r.Narrative.Clone(),
		Bias:       r.Bias.Clone(),
		Review:     r.Review.Clone(),
		Fairness:   r.Fairness.Clone(),
		Guidance:   r.Guidance,
		Timeline:   append([]TimelineEntry(nil), r.Timeline...),
		Mitigation: r.Mitigation.Clone(),
		CreatedAt:  r.CreatedAt,
	}
}

// =============================================================================
// Cache Key
// =============================================================================

// CacheKey identifies a cached result. Concept order is part of identity:
// (A,B) and (B,A) are distinct entries.
type CacheKey struct {
	ConceptA string
	ConceptB string
	Level    string
}

// NewCacheKey builds a normalized (lowercased, trimmed) cache key.
func NewCacheKey(conceptA, conceptB, level string) CacheKey {
	return CacheKey{
		ConceptA: strings.ToLower(strings.TrimSpace(conceptA)),
		ConceptB: strings.ToLower(strings.TrimSpace(conceptB)),
		Level:    NormalizeLevel(level),
	}
}

// =============================================================================
// Stored Records
// =============================================================================

// Interaction is one persisted query outcome.
type Interaction struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	ConceptA  string    `json:"concept_a"`
	ConceptB  string    `json:"concept_b"`
	Result    *Result   `json:"result,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StoreStats are whole-store history counts for the admin metrics
// endpoint.
type StoreStats struct {
	TotalInteractions int64 `json:"total_interactions"`
	UniqueSessions    int64 `json:"unique_sessions"`
	Interactions24h   int64 `json:"interactions_24h"`
}

// Feedback is one stored learner rating/comment row. Rating is nil when
// the learner left only a comment.
type Feedback struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Rating    *int      `json:"rating,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
