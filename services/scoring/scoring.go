// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scoring wires the grading engine together: configuration,
// scenario catalog, score ledger, cycle scheduler, websocket broadcast,
// HTTP routing, and observability.
//
// The package exposes a small Service interface so the CLI and tests
// can drive the engine without knowing the wiring. Construction order
// matters: the ledger is reset before the scheduler starts, so every
// run begins from a zeroed scoreboard.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rangeops/scorekeep/services/scoring/broadcast"
	"github.com/rangeops/scorekeep/services/scoring/catalog"
	"github.com/rangeops/scorekeep/services/scoring/config"
	"github.com/rangeops/scorekeep/services/scoring/grader"
	"github.com/rangeops/scorekeep/services/scoring/ledger"
	"github.com/rangeops/scorekeep/services/scoring/observability"
	"github.com/rangeops/scorekeep/services/scoring/routes"
)

// Service is the grading engine's lifecycle contract. Run blocks until
// the HTTP server stops; Router exposes the gin engine for integration
// tests.
type Service interface {
	Run() error
	Router() *gin.Engine
}

// Config holds the engine's settings. All fields have defaults applied
// by New; a zero Config runs the built-in two-team exercise on :5000.
type Config struct {
	// Port is the HTTP server port. Default: 5000.
	Port int

	// ConfigPath is the master config YAML. Default: "master_config.yaml".
	ConfigPath string

	// OverridesPath is the team override JSON. Default: "team_configs.json".
	OverridesPath string

	// LedgerPath is the durable score file. Default: "scores.json".
	LedgerPath string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "scorekeep-otel-collector:4317".
	OTelEndpoint string

	// DisableMetrics skips Prometheus registration. Set only in tests
	// that construct multiple services per process.
	DisableMetrics bool

	// DisableConfigWatch turns off master config hot reload.
	DisableConfigWatch bool

	// GinMode sets the gin framework mode ("debug", "release", "test").
	GinMode string
}

type service struct {
	config        Config
	router        *gin.Engine
	cfgStore      *config.Store
	overrides     *config.OverrideStore
	ledger        *ledger.Ledger
	hub           *broadcast.Hub
	scheduler     *grader.Scheduler
	watcher       *config.Watcher
	tracerCleanup func(context.Context)
	cancel        context.CancelFunc
}

// New builds a ready-to-run grading engine.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if !s.config.DisableMetrics {
		observability.InitMetrics()
		slog.Info("initialized Prometheus grading metrics")
	}

	// Master config: a broken file degrades to the built-in exercise
	// rather than refusing to grade.
	s.cfgStore, err = config.NewStore(s.config.ConfigPath)
	if err != nil {
		slog.Warn("master config unusable, grading with built-in defaults", "error", err)
	}

	s.overrides = config.NewOverrideStore(s.config.OverridesPath)
	if len(s.overrides.Load()) == 0 {
		// First run: seed the override file from service defaults so
		// the config UI has a complete document to edit.
		seed := config.DefaultOverrides(s.cfgStore.Config())
		if err := s.overrides.Replace(seed); err != nil {
			slog.Warn("failed to seed team overrides", "error", err)
		}
	}

	s.ledger = ledger.New(s.config.LedgerPath, func() map[string][]string {
		return catalog.ScoreKeys(s.cfgStore.Config())
	})
	if err := s.ledger.Reset(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize score ledger: %w", err)
	}

	s.hub = broadcast.NewHub()

	masterCfg := s.cfgStore.Config()
	s.scheduler = grader.NewScheduler(
		s.expandScenarios,
		s.ledger,
		s.hub,
		grader.SchedulerConfig{
			Interval:            masterCfg.Interval(),
			MaxConcurrentProbes: masterCfg.Grading.MaxConcurrentProbes,
		},
	)

	if !s.config.DisableConfigWatch {
		s.watcher, err = config.NewWatcher(s.cfgStore)
		if err != nil {
			slog.Warn("config watcher unavailable, hot reload disabled", "error", err)
		}
	}

	s.initRouter()
	return s, nil
}

// Run starts the grading loop and the HTTP server, blocking until the
// server stops.
func (s *service) Run() error {
	defer s.cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start grading scheduler: %w", err)
	}
	if s.watcher != nil {
		go s.watcher.Start(ctx)
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("starting scorekeep server", "port", s.config.Port)
	return s.router.Run(addr)
}

// Router returns the gin engine for integration tests.
func (s *service) Router() *gin.Engine {
	return s.router
}

// expandScenarios is the scheduler's per-cycle scenario source: current
// master config crossed with the overrides as of this cycle's start.
func (s *service) expandScenarios() []catalog.Scenario {
	return catalog.Expand(s.cfgStore.Config(), s.overrides.Load())
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 5000
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = "master_config.yaml"
	}
	if cfg.OverridesPath == "" {
		cfg.OverridesPath = "team_configs.json"
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = "scores.json"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "scorekeep-otel-collector:4317"
	}
	return cfg
}

// initTracer sets up the OTLP trace exporter. The gRPC connection is
// lazy, so an unreachable collector degrades silently instead of
// blocking startup.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("scorekeep-grading")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("scorekeep-grading"))

	routes.SetupRoutes(s.router, s.cfgStore, s.overrides, s.ledger, s.scheduler, s.hub)
}

func (s *service) cleanup() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.scheduler != nil {
		if err := s.scheduler.Stop(); err != nil {
			slog.Warn("grading scheduler stop error", "error", err)
		}
	}
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			slog.Warn("config watcher close error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

var _ Service = (*service)(nil)
