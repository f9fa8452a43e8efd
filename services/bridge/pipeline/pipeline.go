// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline contains the orchestration core: the controller that
// sequences the model-facing stages, the rate limiter gating outbound
// calls, the bounded result cache, the in-memory metrics collector, and
// the mitigation/retry state machine.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
	"github.com/IThioye/Concept-Connector/services/bridge/observability"
)

var pipelineTracer = otel.Tracer("connector.pipeline")

// Stage names used in timeline entries and duration metrics.
const (
	StageContext    = "context"
	StageConnection = "connection"
	StageNarrative  = "narrative"
	StageReview     = "review"
	StageMitigation = "mitigation"
)

// Default context-building limits.
const (
	DefaultHistoryLimit  = 3
	DefaultFeedbackLimit = 5
)

// ConnectionStage finds a conceptual path between the two concepts.
type ConnectionStage interface {
	Find(ctx context.Context, qc datatypes.QueryContext) (datatypes.Connection, error)
}

// NarrativeStage explains a connection and crafts analogies.
type NarrativeStage interface {
	Build(ctx context.Context, conn datatypes.Connection, qc datatypes.QueryContext) (datatypes.Narrative, error)
}

// BiasStage reviews the bundle for bias and stereotype issues.
type BiasStage interface {
	Review(ctx context.Context, content string) (datatypes.BiasVerdict, error)
}

// ReviewStage checks the bundle against the learner profile.
type ReviewStage interface {
	Evaluate(ctx context.Context, content string, qc datatypes.QueryContext) (datatypes.ContentVerdict, error)
}

// FairnessScorer computes the local fairness report. No model call.
type FairnessScorer interface {
	Evaluate(conn datatypes.Connection, explanation string, analogies []string) datatypes.FairnessReport
}

// GuidanceSource turns stored feedback into prompt guidance.
type GuidanceSource interface {
	Summarise(rows []datatypes.Feedback, level string) string
}

// HistoryStore persists and recalls per-session interactions.
type HistoryStore interface {
	LastQueries(ctx context.Context, sessionID string, limit int) ([]datatypes.ConceptPair, error)
	SaveInteraction(ctx context.Context, in datatypes.Interaction) error
}

// ProfileStore recalls stored learner profiles.
type ProfileStore interface {
	Profile(ctx context.Context, sessionID string) (datatypes.Profile, bool, error)
}

// FeedbackStore recalls recent learner feedback.
type FeedbackStore interface {
	RecentFeedback(ctx context.Context, sessionID string, limit int) ([]datatypes.Feedback, error)
}

// Deps are the orchestrator's collaborators. Finder, Explainer, Bias,
// Reviewer, Fairness, and Guidance are required; the stores may be nil,
// in which case sessions have no memory.
type Deps struct {
	Finder    ConnectionStage
	Explainer NarrativeStage
	Bias      BiasStage
	Reviewer  ReviewStage
	Fairness  FairnessScorer
	Guidance  GuidanceSource

	History  HistoryStore
	Profiles ProfileStore
	Feedback FeedbackStore

	Log *logging.Logger
}

// Config tunes the orchestrator. Zero values fall back to defaults.
type Config struct {
	CacheCapacity int
	HistoryLimit  int
	FeedbackLimit int
	MaxRetries    int
	RateLimit     int
	RateWindow    time.Duration
}

// Orchestrator is the pipeline controller. One instance serves all
// queries for the process lifetime; cache, limiter, and metrics are
// shared across concurrent queries.
type Orchestrator struct {
	deps    Deps
	cfg     Config
	cache   *ResultCache
	limiter *RateLimiter
	metrics *Collector
}

// Query is one processQuery invocation. Progress, when set, receives
// each timeline entry as the stage completes.
type Query struct {
	ConceptA  string
	ConceptB  string
	Level     string
	SessionID string
	Overrides *datatypes.ProfileOverrides
	Progress  func(datatypes.TimelineEntry)
}

// New validates deps, applies config defaults, and builds an
// orchestrator.
func New(deps Deps, cfg Config) (*Orchestrator, error) {
	switch {
	case deps.Finder == nil:
		return nil, errors.New("pipeline: connection stage is required")
	case deps.Explainer == nil:
		return nil, errors.New("pipeline: narrative stage is required")
	case deps.Bias == nil:
		return nil, errors.New("pipeline: bias stage is required")
	case deps.Reviewer == nil:
		return nil, errors.New("pipeline: review stage is required")
	case deps.Fairness == nil:
		return nil, errors.New("pipeline: fairness scorer is required")
	case deps.Guidance == nil:
		return nil, errors.New("pipeline: guidance source is required")
	case deps.Log == nil:
		return nil, errors.New("pipeline: logger is required")
	}

	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.FeedbackLimit <= 0 {
		cfg.FeedbackLimit = DefaultFeedbackLimit
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = MaxRetries
	}

	return &Orchestrator{
		deps:    deps,
		cfg:     cfg,
		cache:   NewResultCache(cfg.CacheCapacity),
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		metrics: NewCollector(),
	}, nil
}

// MetricsSummary snapshots the in-memory collector.
func (o *Orchestrator) MetricsSummary() Summary {
	return o.metrics.Summary()
}

// ProcessQuery runs the full pipeline for one query. Soft failures
// (malformed or empty model output) are absorbed into fallback content;
// only transport-level failures of required stages error out. The
// returned result is always structurally complete.
func (o *Orchestrator) ProcessQuery(ctx context.Context, q Query) (*datatypes.Result, error) {
	ctx, span := pipelineTracer.Start(ctx, "Orchestrator.ProcessQuery")
	defer span.End()
	span.SetAttributes(
		attribute.String("concept.a", q.ConceptA),
		attribute.String("concept.b", q.ConceptB),
	)

	level := datatypes.NormalizeLevel(q.Level)
	key := datatypes.NewCacheKey(q.ConceptA, q.ConceptB, level)

	if cached, ok := o.cache.Get(key); ok {
		o.metrics.RecordCacheHit()
		observability.RecordCacheLookup(true)
		// A cache hit is still served to the session: record it against
		// history before returning.
		o.persist(ctx, q.SessionID, cached)
		return cached, nil
	}
	o.metrics.RecordCacheMiss()
	observability.RecordCacheLookup(false)

	tl := &timeline{metrics: o.metrics, progress: q.Progress}

	start := time.Now()
	qc := o.buildContext(ctx, q, level)
	tl.add(StageContext, fmt.Sprintf("history=%d feedback_guidance=%t", len(qc.History), qc.Guidance != ""), start)

	start = time.Now()
	conn, err := o.deps.Finder.Find(ctx, qc)
	if err != nil {
		o.metrics.RecordCollaboratorFailure(CollaboratorConnection)
		observability.RecordCollaboratorFailure(CollaboratorConnection)
		return nil, fmt.Errorf("connection stage: %w", err)
	}
	connDesc := fmt.Sprintf("path of %d concepts", len(conn.Path))
	if conn.Empty() {
		connDesc = "no bridge identified"
	}
	tl.add(StageConnection, connDesc, start)

	start = time.Now()
	narrative, err := o.buildNarrative(ctx, conn, qc)
	if err != nil {
		return nil, err
	}
	tl.add(StageNarrative, fmt.Sprintf("%d analogies", len(narrative.Analogies)), start)

	start = time.Now()
	bias, review, err := o.runReview(ctx, conn, narrative, qc)
	if err != nil {
		return nil, err
	}
	fairness := o.deps.Fairness.Evaluate(conn, narrative.Explanation, narrative.Analogies)
	tl.add(StageReview, reviewDesc(bias, review, fairness), start)

	var mitigation *datatypes.Mitigation
	if needsMitigation(bias, review) {
		mitigation = &datatypes.Mitigation{Triggered: true}

		for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
			strategy := strategyFor(attempt)
			guidance := composeGuidance(strategy, qc.Guidance, review, bias)

			retryQC := qc
			retryQC.Guidance = guidance
			mitigation.Attempts = attempt
			mitigation.Guidance = guidance
			mitigation.StrategyUsed = string(strategy)

			start = time.Now()
			narrative, err = o.buildNarrative(ctx, conn, retryQC)
			if err != nil {
				return nil, err
			}
			bias, review, err = o.runReview(ctx, conn, narrative, retryQC)
			if err != nil {
				return nil, err
			}
			// Fairness is recomputed every pass so the report always
			// describes the narrative it ships with, even though it is
			// not part of the trigger condition.
			fairness = o.deps.Fairness.Evaluate(conn, narrative.Explanation, narrative.Analogies)
			tl.add(StageMitigation, fmt.Sprintf("attempt %d (%s): %s", attempt, strategy, reviewDesc(bias, review, fairness)), start)

			if !needsMitigation(bias, review) {
				break
			}
		}

		resolved := !needsMitigation(bias, review)
		if !resolved {
			mitigation.Exhausted = true
			mitigation.StrategyUsed = ""
			tl.add(StageMitigation, "mitigation aborted", time.Now())
		}
		o.metrics.RecordMitigation(mitigation.Attempts, resolved)
		observability.RecordMitigation(resolved)
	}

	result := &datatypes.Result{
		ConceptA:   q.ConceptA,
		ConceptB:   q.ConceptB,
		Level:      level,
		Connection: conn,
		Narrative:  narrative,
		Bias:       bias,
		Review:     review,
		Fairness:   fairness,
		Guidance:   qc.Guidance,
		Timeline:   tl.entries,
		Mitigation: mitigation,
		CreatedAt:  time.Now().UTC(),
	}

	// Nothing is committed to cache or history until the full pipeline,
	// including the mitigation loop, has completed.
	o.persist(ctx, q.SessionID, result)
	o.cache.Set(key, result)
	return result, nil
}

// buildContext assembles the request-scoped query context: session
// history, stored profile with overrides applied, and feedback-derived
// guidance. Store failures degrade to empty context, never errors.
func (o *Orchestrator) buildContext(ctx context.Context, q Query, level string) datatypes.QueryContext {
	qc := datatypes.QueryContext{
		SessionID: q.SessionID,
		ConceptA:  strings.TrimSpace(q.ConceptA),
		ConceptB:  strings.TrimSpace(q.ConceptB),
		Level:     level,
		Profile:   datatypes.DefaultProfile(q.SessionID),
	}
	qc.Profile.KnowledgeLevel = level

	var feedback []datatypes.Feedback
	if q.SessionID != "" {
		if o.deps.History != nil {
			history, err := o.deps.History.LastQueries(ctx, q.SessionID, o.cfg.HistoryLimit)
			if err != nil {
				o.deps.Log.Warn("failed to load session history", "session_id", q.SessionID, "error", err)
			} else {
				qc.History = history
			}
		}
		if o.deps.Profiles != nil {
			profile, ok, err := o.deps.Profiles.Profile(ctx, q.SessionID)
			if err != nil {
				o.deps.Log.Warn("failed to load learner profile", "session_id", q.SessionID, "error", err)
			} else if ok {
				qc.Profile = profile
			}
		}
		if o.deps.Feedback != nil {
			rows, err := o.deps.Feedback.RecentFeedback(ctx, q.SessionID, o.cfg.FeedbackLimit)
			if err != nil {
				o.deps.Log.Warn("failed to load feedback", "session_id", q.SessionID, "error", err)
			} else {
				feedback = rows
			}
		}
	}

	qc.Profile = qc.Profile.Apply(q.Overrides)
	qc.Profile.KnowledgeLevel = datatypes.NormalizeLevel(qc.Profile.KnowledgeLevel)
	qc.Guidance = o.deps.Guidance.Summarise(feedback, level)
	return qc
}

// buildNarrative is the safe wrapper around the narrative stage: limiter
// acquisition first, then the model call; a stage failure or blank
// explanation substitutes the deterministic fallback. This is the only
// place fallback text is generated.
func (o *Orchestrator) buildNarrative(ctx context.Context, conn datatypes.Connection, qc datatypes.QueryContext) (datatypes.Narrative, error) {
	if err := o.limiter.Acquire(ctx); err != nil {
		return datatypes.Narrative{}, fmt.Errorf("narrative stage: %w", err)
	}

	narrative, err := o.deps.Explainer.Build(ctx, conn, qc)
	if err != nil {
		o.metrics.RecordCollaboratorFailure(CollaboratorExplanation)
		observability.RecordCollaboratorFailure(CollaboratorExplanation)
		o.deps.Log.Warn("explainer failed, substituting fallback narrative",
			"concept_a", qc.ConceptA, "concept_b", qc.ConceptB, "error", err)
		return fallbackNarrative(qc.ConceptA, qc.ConceptB), nil
	}
	if strings.TrimSpace(narrative.Explanation) == "" {
		fb := fallbackNarrative(qc.ConceptA, qc.ConceptB)
		// Keep any analogies the stage did produce.
		fb.Analogies = narrative.Analogies
		return fb, nil
	}
	return narrative, nil
}

// runReview fans the same bundle snapshot out to the bias monitor and
// the content reviewer, joining on both. Transport errors propagate.
func (o *Orchestrator) runReview(ctx context.Context, conn datatypes.Connection, narrative datatypes.Narrative, qc datatypes.QueryContext) (datatypes.BiasVerdict, datatypes.ContentVerdict, error) {
	bundle, err := json.Marshal(map[string]any{
		"connection":  conn,
		"explanation": narrative.Explanation,
		"analogies":   narrative.Analogies,
	})
	if err != nil {
		return datatypes.BiasVerdict{}, datatypes.ContentVerdict{}, fmt.Errorf("review stage: encode bundle: %w", err)
	}
	content := string(bundle)

	var (
		bias   datatypes.BiasVerdict
		review datatypes.ContentVerdict
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := o.deps.Bias.Review(gctx, content)
		if err != nil {
			o.metrics.RecordCollaboratorFailure(CollaboratorBias)
			observability.RecordCollaboratorFailure(CollaboratorBias)
			return fmt.Errorf("bias stage: %w", err)
		}
		bias = v
		return nil
	})
	g.Go(func() error {
		v, err := o.deps.Reviewer.Evaluate(gctx, content, qc)
		if err != nil {
			o.metrics.RecordCollaboratorFailure(CollaboratorReview)
			observability.RecordCollaboratorFailure(CollaboratorReview)
			return fmt.Errorf("review stage: %w", err)
		}
		review = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return datatypes.BiasVerdict{}, datatypes.ContentVerdict{}, err
	}
	return bias, review, nil
}

// persist writes the result to session history. Best effort: failures
// are logged and counted, never surfaced to the caller.
func (o *Orchestrator) persist(ctx context.Context, sessionID string, result *datatypes.Result) {
	if o.deps.History == nil {
		return
	}
	in := datatypes.Interaction{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		ConceptA:  result.ConceptA,
		ConceptB:  result.ConceptB,
		Result:    result,
		Timestamp: time.Now().UTC(),
	}
	if err := o.deps.History.SaveInteraction(ctx, in); err != nil {
		o.metrics.RecordCollaboratorFailure(CollaboratorPersistence)
		observability.RecordCollaboratorFailure(CollaboratorPersistence)
		o.deps.Log.Warn("failed to persist interaction",
			"session_id", sessionID, "concept_a", result.ConceptA, "concept_b", result.ConceptB, "error", err)
	}
}

func fallbackNarrative(conceptA, conceptB string) datatypes.Narrative {
	return datatypes.Narrative{
		Explanation: fmt.Sprintf(
			"A full explanation could not be generated this time. At a high level, %s and %s connect through shared underlying principles; the connection path sketches the bridge between them. Please try the query again for a detailed walkthrough.",
			conceptA, conceptB),
		Analogies: []string{},
	}
}

func reviewDesc(bias datatypes.BiasVerdict, review datatypes.ContentVerdict, fairness datatypes.FairnessReport) string {
	return fmt.Sprintf("bias=%t aligned=%t fairness=%.2f", bias.HasBias, review.LevelAlignment, fairness.Overall)
}

// timeline accumulates stage entries, feeding the metrics collector and
// the optional progress callback as it goes.
type timeline struct {
	entries  []datatypes.TimelineEntry
	metrics  *Collector
	progress func(datatypes.TimelineEntry)
}

func (t *timeline) add(stage, description string, start time.Time) {
	elapsed := time.Since(start)
	entry := datatypes.TimelineEntry{
		Stage:       stage,
		Description: description,
		DurationMS:  elapsed.Milliseconds(),
		At:          time.Now().UTC(),
	}
	t.entries = append(t.entries, entry)
	t.metrics.RecordStageDuration(stage, elapsed)
	observability.RecordStageDuration(stage, elapsed)
	if t.progress != nil {
		t.progress(entry)
	}
}
