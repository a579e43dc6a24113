// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scheduler turns accepted benchmark requests into running
// background jobs.
//
// # Description
//
// The scheduler owns the job lifecycle: it validates the request, creates
// the job record synchronously, then launches the benchmark runner in a
// detached goroutine. That goroutine performs the job's single terminal
// store update (done with results, or error with a message) and then fans
// out the best-effort side effects: history log append and static report
// generation. Side-effect failures are logged and never touch job state.
//
// # Concurrency
//
// Each accepted job runs in its own goroutine, independent of the HTTP
// request that created it. The only shared state the goroutine touches is
// the job store, through its lock.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/librex-ai/qapbench/services/orchestrator/datatypes"
	"github.com/librex-ai/qapbench/services/orchestrator/history"
	"github.com/librex-ai/qapbench/services/orchestrator/jobstore"
	"github.com/librex-ai/qapbench/services/orchestrator/observability"
	"github.com/librex-ai/qapbench/services/orchestrator/qaplib"
	"github.com/librex-ai/qapbench/services/orchestrator/report"
	"github.com/librex-ai/qapbench/services/orchestrator/runner"
	"github.com/librex-ai/qapbench/services/orchestrator/solver"
)

// =============================================================================
// Errors
// =============================================================================

// ErrUnsupportedType rejects benchmark families other than qaplib.
// Handlers map it to 400.
var ErrUnsupportedType = fmt.Errorf("unsupported benchmark type")

// ErrNoDataDir rejects requests when neither the payload nor the server
// configuration names an instance directory. Handlers map it to 400.
var ErrNoDataDir = fmt.Errorf("no data directory configured")

// =============================================================================
// Scheduler
// =============================================================================

// Scheduler launches and tracks benchmark jobs.
//
// # Fields
//
//   - store: Job registry receiving the create and terminal updates.
//   - runner: Executes instance x mode combinations.
//   - catalog: Cached discovery for the default data directory. May be nil
//     when no default directory is configured.
//   - defaultDataDir: Fallback when requests omit data_dir.
//   - histLog: Optional JSONL history sink.
//   - reports: Optional static report generator.
//   - metrics: Optional metrics; nil means metrics disabled.
//   - workers: Default runner parallelism for requests that omit workers.
//
// # Thread Safety
//
// Safe for concurrent use; all mutable state lives in the job store.
type Scheduler struct {
	store          *jobstore.Store
	runner         *runner.Runner
	catalog        *qaplib.Catalog
	defaultDataDir string
	histLog        *history.Logger
	reports        *report.Generator
	metrics        *observability.BenchMetrics
	workers        int
}

// Config wires a Scheduler's collaborators. Store and Solver are required;
// everything else is optional.
type Config struct {
	Store          *jobstore.Store
	Solver         solver.Solver
	Catalog        *qaplib.Catalog
	DefaultDataDir string
	History        *history.Logger
	Reports        *report.Generator
	Metrics        *observability.BenchMetrics
	Workers        int
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	return &Scheduler{
		store:          cfg.Store,
		runner:         runner.New(cfg.Solver),
		catalog:        cfg.Catalog,
		defaultDataDir: cfg.DefaultDataDir,
		histLog:        cfg.History,
		reports:        cfg.Reports,
		metrics:        cfg.Metrics,
		workers:        cfg.Workers,
	}
}

// StartBenchmarkJob validates req, creates the job, and launches its
// background task.
//
// # Inputs
//
//   - req: The benchmark request. Structural validation (modes, limits) is
//     the handler's job; this method decides supportability.
//
// # Outputs
//
//   - string: The new job id on acceptance.
//   - error: ErrUnsupportedType or ErrNoDataDir on rejection (handler
//     answers 400); nothing else fails.
func (s *Scheduler) StartBenchmarkJob(req datatypes.BenchRequest) (string, error) {
	if req.Type != datatypes.BenchTypeQAPLIB {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, req.Type)
	}

	dataDir := req.DataDir
	if dataDir == "" {
		dataDir = s.defaultDataDir
	}
	if dataDir == "" {
		return "", ErrNoDataDir
	}
	req.DataDir = dataDir

	if req.Workers == 0 {
		req.Workers = s.workers
	}
	req.ApplyDefaults()

	jobID := s.store.CreateJob(req)
	if s.metrics != nil {
		s.metrics.JobStarted()
	}

	slog.Info("benchmark job accepted",
		"job_id", jobID,
		"modes", []string(req.Modes),
		"data_dir", dataDir,
		"backend", req.Backend)

	// Detached from the HTTP request: the job outlives the response.
	go s.execute(jobID, req)

	return jobID, nil
}

// execute is the background task for one job. It owns the job's single
// terminal store update.
func (s *Scheduler) execute(jobID string, req datatypes.BenchRequest) {
	started := time.Now()

	defer func() {
		// A panic anywhere in the run becomes the job's error state;
		// it must never take the server process down.
		if r := recover(); r != nil {
			msg := fmt.Sprintf("internal error: %v", r)
			slog.Error("benchmark job panicked", "job_id", jobID, "panic", r)
			s.finish(jobID, started, func() error { return s.store.Fail(jobID, msg) }, datatypes.JobStatusError)
		}
	}()

	instances, err := s.discover(req)
	if err != nil {
		slog.Error("instance discovery failed", "job_id", jobID, "error", err)
		s.finish(jobID, started, func() error { return s.store.Fail(jobID, err.Error()) }, datatypes.JobStatusError)
		return
	}

	results, summary := s.runner.Run(context.Background(), instances, req)

	if s.metrics != nil {
		for _, rec := range results {
			s.metrics.RecordSolve(rec.Mode, rec.SolveTime, rec.Error == "")
		}
	}

	s.finish(jobID, started, func() error {
		return s.store.Complete(jobID, results, summary)
	}, datatypes.JobStatusDone)

	slog.Info("benchmark job completed",
		"job_id", jobID,
		"results", len(results),
		"duration", time.Since(started).String())

	s.sideEffects(jobID, req, summary)
}

// finish applies the terminal update and records job metrics.
func (s *Scheduler) finish(jobID string, started time.Time, update func() error, status datatypes.JobStatus) {
	if err := update(); err != nil {
		// Only possible if the job was evicted mid-run; log and move on.
		slog.Warn("terminal job update failed", "job_id", jobID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.JobFinished(string(status), time.Since(started).Seconds())
	}
}

// discover lists the instances for a request, through the catalog when the
// request targets the default data directory.
func (s *Scheduler) discover(req datatypes.BenchRequest) ([]qaplib.Instance, error) {
	if s.catalog != nil && req.DataDir == s.catalog.Dir() {
		return s.catalog.Instances(req.Instances)
	}
	return qaplib.Discover(req.DataDir, req.Instances)
}

// sideEffects runs the feature-flagged persistence steps. Each is
// failure-isolated: an error is logged and the next step still runs.
func (s *Scheduler) sideEffects(jobID string, req datatypes.BenchRequest, summary *datatypes.BenchSummary) {
	if s.histLog != nil {
		rec := history.Record{
			JobID:       jobID,
			CompletedAt: time.Now().UTC().Format(time.RFC3339),
			Params:      req,
			Summary:     summary,
		}
		if err := s.histLog.Append(rec); err != nil {
			slog.Warn("history append failed", "job_id", jobID, "error", err)
		}
	}

	if s.reports != nil {
		job, err := s.store.GetJob(jobID)
		if err != nil {
			slog.Warn("report generation skipped, job evicted", "job_id", jobID)
			return
		}
		if err := s.reports.WriteJobReport(job); err != nil {
			slog.Warn("report generation failed", "job_id", jobID, "error", err)
		}
	}
}
