// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator provides the core benchmark orchestration service.
//
// This package contains the main service type that coordinates all
// components: HTTP routing, the QAP solver client, the in-memory job
// store, the background scheduler, and observability infrastructure.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 12210}
//	svc, err := orchestrator.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package orchestrator

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

	"github.com/librex-ai/qapbench/services/orchestrator/history"
	"github.com/librex-ai/qapbench/services/orchestrator/jobstore"
	"github.com/librex-ai/qapbench/services/orchestrator/observability"
	"github.com/librex-ai/qapbench/services/orchestrator/qaplib"
	"github.com/librex-ai/qapbench/services/orchestrator/report"
	"github.com/librex-ai/qapbench/services/orchestrator/routes"
	"github.com/librex-ai/qapbench/services/orchestrator/scheduler"
	"github.com/librex-ai/qapbench/services/orchestrator/solver"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the orchestrator service.
//
// # Description
//
// Service abstracts the orchestrator lifecycle, enabling testing and
// alternative implementations. Only essential lifecycle methods are
// exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
//
// # Limitations
//
//   - No graceful shutdown method yet
//   - Run() blocks until server error
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing. Callers must
	// not register routes after construction.
	Router() *gin.Engine

	// Close releases background resources (catalog watcher, history log,
	// tracer). Safe to call after Run returns or if Run was never called.
	Close()
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds orchestrator configuration options.
//
// # Description
//
// Config centralizes all configuration for the service. Values can be
// populated from environment variables, a config file, or programmatically
// for testing. All fields have sensible defaults.
type Config struct {
	// Port is the HTTP server port. Default: 12210
	Port int

	// BackendURL overrides solver backend resolution. If empty, the URL is
	// resolved per request from QAP_BACKEND_* environment variables.
	BackendURL string

	// DataDir is the default QAPLIB instance directory.
	// Default: "./data/qaplib"
	DataDir string

	// SolveTimeout bounds synchronous /v1/solve requests. Default: 60s
	SolveTimeout time.Duration

	// MaxBodyBytes caps request body size. Default: 2 MiB
	MaxBodyBytes int64

	// MaxRetainedJobs caps the job store; oldest finished jobs are evicted
	// past the cap. Default: jobstore.DefaultMaxRetainedJobs
	MaxRetainedJobs int

	// Workers is the default per-job solve concurrency. Default: 1
	Workers int

	// HistoryEnabled turns on the JSONL benchmark history log.
	HistoryEnabled bool

	// HistoryPath is the history log file. Default: "./logs/bench_history.jsonl"
	HistoryPath string

	// ReportsEnabled turns on static HTML report generation.
	ReportsEnabled bool

	// ReportsDir is where HTML reports are written. Default: "./reports"
	ReportsDir string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "qapbench-otel-collector:4317"
	OTelEndpoint string

	// EnableMetrics enables the Prometheus metrics endpoint.
	// Default: true
	EnableMetrics bool

	// APIToken, when set, requires "Authorization: Bearer <token>" on /v1.
	APIToken string

	// RateLimitRPS throttles /v1 per client IP. 0 disables. Default: 0
	RateLimitRPS float64

	// RateLimitBurst is the per-IP burst allowance. Default: 20
	RateLimitBurst int

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	// Default: uses GIN_MODE env var or "debug"
	GinMode string
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns; the store and catalog synchronize internally.
type service struct {
	config        Config
	router        *gin.Engine
	store         *jobstore.Store
	catalog       *qaplib.Catalog
	solver        solver.Solver
	scheduler     *scheduler.Scheduler
	histLog       *history.Logger
	reports       *report.Generator
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new orchestrator Service with the given configuration.
//
// # Description
//
// New initializes all components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Creates the solver client, job store, and instance catalog
//  5. Creates the history logger and report generator when enabled
//  6. Wires the scheduler and registers HTTP routes
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready-to-run orchestrator service
//   - error: Non-nil if initialization fails
//
// # Limitations
//
//   - The solver backend is not probed at startup; unreachable backends
//     surface as per-request errors.
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	var metrics *observability.BenchMetrics
	if s.config.EnableMetrics {
		metrics = observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics")
	}

	var solverOpts []solver.Option
	if s.config.BackendURL != "" {
		solverOpts = append(solverOpts, solver.WithBaseURL(s.config.BackendURL))
	}
	s.solver = solver.NewHTTPSolver(solverOpts...)

	s.store = jobstore.NewStore(s.config.MaxRetainedJobs)

	s.catalog, err = qaplib.NewCatalog(s.config.DataDir)
	if err != nil {
		// The data dir may not exist yet; jobs naming it explicitly still
		// fail with a clear message at discovery time.
		slog.Warn("Instance catalog unavailable, falling back to direct listing",
			"data_dir", s.config.DataDir,
			"error", err)
		s.catalog = nil
	}

	if s.config.HistoryEnabled {
		s.histLog, err = history.NewLogger(s.config.HistoryPath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open history log: %w", err)
		}
		slog.Info("Benchmark history enabled", "path", s.config.HistoryPath)
	}

	if s.config.ReportsEnabled {
		s.reports, err = report.NewGenerator(s.config.ReportsDir)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to initialize report generator: %w", err)
		}
		slog.Info("HTML reports enabled", "dir", s.config.ReportsDir)
	}

	s.scheduler = scheduler.New(scheduler.Config{
		Store:          s.store,
		Solver:         s.solver,
		Catalog:        s.catalog,
		DefaultDataDir: s.config.DataDir,
		History:        s.histLog,
		Reports:        s.reports,
		Metrics:        metrics,
		Workers:        s.config.Workers,
	})

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.Close()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting orchestrator server",
		"port", s.config.Port,
		"data_dir", s.config.DataDir)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Close releases all resources held by the service. Idempotent.
func (s *service) Close() {
	if s.catalog != nil {
		if err := s.catalog.Close(); err != nil {
			slog.Warn("Catalog close error", "error", err)
		}
	}
	if s.histLog != nil {
		if err := s.histLog.Close(); err != nil {
			slog.Warn("History log close error", "error", err)
		}
		s.histLog = nil
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
		s.tracerCleanup = nil
	}
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12210
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data/qaplib"
	}
	if cfg.SolveTimeout == 0 {
		cfg.SolveTimeout = 60 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 2 << 20
	}
	if cfg.MaxRetainedJobs == 0 {
		cfg.MaxRetainedJobs = jobstore.DefaultMaxRetainedJobs
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = "./logs/bench_history.jsonl"
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = "./reports"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "qapbench-otel-collector:4317"
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 20
	}
	cfg.EnableMetrics = true

	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Limitations
//
//   - Uses insecure gRPC connection (appropriate for internal networks)
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
		resource.WithAttributes(semconv.ServiceNameKey.String("qapbench-orchestrator")))
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

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("qapbench-orchestrator"))

	reportsDir := ""
	if s.reports != nil {
		reportsDir = s.reports.Dir()
	}

	routes.SetupRoutes(s.router, routes.RouteDeps{
		Store:          s.store,
		Scheduler:      s.scheduler,
		Solver:         s.solver,
		DataDir:        s.config.DataDir,
		SolveTimeout:   s.config.SolveTimeout,
		MaxBodyBytes:   s.config.MaxBodyBytes,
		APIToken:       s.config.APIToken,
		RateLimitRPS:   s.config.RateLimitRPS,
		RateLimitBurst: s.config.RateLimitBurst,
		EnableMetrics:  s.config.EnableMetrics,
		ReportsDir:     reportsDir,
	})
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
