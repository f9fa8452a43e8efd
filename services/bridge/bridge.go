// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package bridge assembles the conceptual-bridge service: model client,
// query pipeline, persistence, HTTP surface, and telemetry, configured
// from one config.Config.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/IThioye/Concept-Connector/pkg/logging"
	"github.com/IThioye/Concept-Connector/services/bridge/agents"
	"github.com/IThioye/Concept-Connector/services/bridge/config"
	"github.com/IThioye/Concept-Connector/services/bridge/handlers"
	"github.com/IThioye/Concept-Connector/services/bridge/observability"
	"github.com/IThioye/Concept-Connector/services/bridge/pipeline"
	"github.com/IThioye/Concept-Connector/services/bridge/routes"
	"github.com/IThioye/Concept-Connector/services/bridge/store"
	"github.com/IThioye/Concept-Connector/services/llm"
)

const serviceName = "connector-bridge"

// Service is a fully wired bridge instance. Build with New, start with
// Run, stop with Shutdown.
type Service struct {
	cfg    config.Config
	log    *logging.Logger
	orch   *pipeline.Orchestrator
	db     *store.Store
	influx *observability.InfluxExporter
	server *http.Server

	// Reloadable state: the watcher re-applies these on config file
	// changes without restarting the server.
	adminToken  atomic.Value // string
	httpLimiter *rate.Limiter
	watcher     *config.Watcher

	traceShutdown func(context.Context)
}

// New assembles the service. The returned Service owns its store and
// exporters; Shutdown releases them.
func New(cfg config.Config) (*Service, error) {
	log := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "bridge",
		JSON:    cfg.Logging.JSON,
	})

	client, err := llm.NewFromEnv(log)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("bridge: model client: %w", err)
	}

	var db *store.Store
	if cfg.Store.Path != "" {
		storeCfg := store.DefaultConfig(cfg.Store.Path)
		if cfg.Store.GCInterval > 0 {
			storeCfg.GCInterval = cfg.Store.GCInterval
		}
		db, err = store.Open(storeCfg)
		if err != nil {
			log.Close()
			return nil, fmt.Errorf("bridge: open store: %w", err)
		}
	} else {
		log.Warn("store.path is empty, running without session memory")
	}

	deps := pipeline.Deps{
		Finder:    agents.NewConnectionFinder(client, log),
		Explainer: agents.NewExplanationBuilder(client, log),
		Bias:      agents.NewBiasMonitor(client, log),
		Reviewer:  agents.NewContentReviewer(client, log),
		Fairness:  agents.NewFairnessAuditor(),
		Guidance:  agents.NewFeedbackAdapter(),
		Log:       log,
	}
	if db != nil {
		deps.History = db
		deps.Profiles = db
		deps.Feedback = db
	}

	orch, err := pipeline.New(deps, pipeline.Config{
		CacheCapacity: cfg.Pipeline.CacheCapacity,
		HistoryLimit:  cfg.Pipeline.HistoryLimit,
		FeedbackLimit: cfg.Pipeline.FeedbackLimit,
		MaxRetries:    cfg.Pipeline.MaxRetries,
		RateLimit:     cfg.Pipeline.ModelCallsPerWindow,
		RateWindow:    cfg.Pipeline.Window,
	})
	if err != nil {
		if db != nil {
			db.Close()
		}
		log.Close()
		return nil, err
	}

	observability.InitMetrics()

	s := &Service{cfg: cfg, log: log, orch: orch, db: db}
	s.adminToken.Store(cfg.Server.AdminToken)
	s.httpLimiter = newHTTPLimiter(cfg.Server)

	if cfg.Influx.URL != "" {
		s.influx = observability.NewInfluxExporter(observability.InfluxConfig{
			URL:      cfg.Influx.URL,
			Token:    cfg.Influx.Token,
			Org:      cfg.Influx.Org,
			Bucket:   cfg.Influx.Bucket,
			Interval: cfg.Influx.Interval,
		}, s.metricsSnapshot, log)
	}

	return s, nil
}

// metricsSnapshot flattens the pipeline summary into Influx fields.
func (s *Service) metricsSnapshot() map[string]any {
	sum := s.orch.MetricsSummary()
	fields := map[string]any{
		"cache_hits":              sum.CacheHits,
		"cache_misses":            sum.CacheMisses,
		"cache_hit_rate":          sum.CacheHitRate,
		"mitigation_runs":         sum.MitigationRuns,
		"average_retries":         sum.AverageRetries,
		"mitigation_success_rate": sum.MitigationSuccessRate,
	}
	for stage, ms := range sum.StageAverageMS {
		fields["stage_ms_"+stage] = ms
	}
	for name, n := range sum.CollaboratorFailures {
		fields["failures_"+name] = n
	}
	return fields
}

// initTracer wires OTLP trace export over gRPC. Returns a shutdown
// function.
func (s *Service) initTracer(ctx context.Context) (func(context.Context), error) {
	conn, err := grpc.NewClient(s.cfg.Tracing.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)))
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := exporter.Shutdown(ctx); err != nil {
			s.log.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Service) Router() *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if s.cfg.Tracing.Endpoint != "" {
		router.Use(otelgin.Middleware(serviceName))
	}

	// A typed-nil *store.Store must not reach the handlers' interface
	// nil checks.
	var profiles handlers.ProfileStore
	var feedback handlers.FeedbackSink
	var stats handlers.StatsSource
	if s.db != nil {
		profiles = s.db
		feedback = s.db
		stats = s.db
	}
	routes.SetupRoutes(router, s.orch, profiles, feedback, stats, s.log, s.routeOptions())
	return router
}

func (s *Service) routeOptions() routes.Options {
	return routes.Options{
		AdminToken: s.currentAdminToken,
		Limiter:    s.httpLimiter,
	}
}

func (s *Service) currentAdminToken() string {
	token, _ := s.adminToken.Load().(string)
	return token
}

// newHTTPLimiter builds the /v1 limiter. A non-positive rate yields an
// unlimited limiter rather than none, so a reload can introduce a limit
// on a running server.
func newHTTPLimiter(cfg config.ServerConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
}

// applyReload re-applies the fields that can change while the server
// runs: log level, admin token, and the HTTP rate limit. The listener
// address, store path, and exporter endpoints keep their boot values.
func (s *Service) applyReload(cfg config.Config) {
	s.log.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	s.adminToken.Store(cfg.Server.AdminToken)

	fresh := newHTTPLimiter(cfg.Server)
	s.httpLimiter.SetLimit(fresh.Limit())
	s.httpLimiter.SetBurst(fresh.Burst())
}

// Run starts background exporters and the config hot-reload watcher,
// then serves HTTP until ctx is canceled and drains within the
// configured grace period.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Tracing.Endpoint != "" {
		shutdown, err := s.initTracer(ctx)
		if err != nil {
			return fmt.Errorf("bridge: tracer: %w", err)
		}
		s.traceShutdown = shutdown
	}
	if s.influx != nil {
		s.influx.Start(ctx)
	}
	if s.cfg.Path != "" {
		watcher, err := config.NewWatcher(s.cfg.Path, s.applyReload, s.log)
		if err != nil {
			s.log.Warn("config hot reload unavailable", "error", err)
		} else if err := watcher.Start(ctx); err != nil {
			s.log.Warn("config watcher failed to start", "error", err)
			watcher.Stop()
		} else {
			s.watcher = watcher
		}
	}

	s.server = &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("bridge server listening", "addr", s.cfg.Server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	grace := s.cfg.Server.ShutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	drainCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return s.Shutdown(drainCtx)
}

// Shutdown drains the HTTP server and releases the store and exporters.
// Safe to call after Run returns.
func (s *Service) Shutdown(ctx context.Context) error {
	var firstErr error
	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			firstErr = err
		}
		s.server = nil
	}
	if s.influx != nil {
		s.influx.Close()
		s.influx = nil
	}
	if s.traceShutdown != nil {
		s.traceShutdown(ctx)
		s.traceShutdown = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.db = nil
	}
	s.log.Info("bridge server stopped")
	s.log.Close()
	return firstErr
}
