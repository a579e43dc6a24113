// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package runner executes one benchmark job: every discovered instance
// crossed with every requested mode, through the solver adapter.
//
// # Failure Isolation
//
// Each instance x mode invocation is independent. A failing invocation is
// recorded as a result with an error field and excluded from summary
// averages; it never aborts its siblings. Only errors outside the per-pair
// boundary (none exist in this package) fail a whole job.
//
// # Ordering
//
// Results are emitted in discovery order (instance, then mode) regardless
// of worker-pool parallelism: each pair writes into its pre-assigned slot.
package runner

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/librex-ai/qapbench/services/orchestrator/datatypes"
	"github.com/librex-ai/qapbench/services/orchestrator/qaplib"
	"github.com/librex-ai/qapbench/services/orchestrator/solver"
)

// =============================================================================
// Runner
// =============================================================================

// Runner executes benchmark jobs against a solver adapter.
type Runner struct {
	solver solver.Solver
}

// New creates a Runner backed by the given solver adapter.
func New(s solver.Solver) *Runner {
	return &Runner{solver: s}
}

// Run executes instances x req.Modes and returns the per-pair results and
// their aggregate summary.
//
// req must have had ApplyDefaults called; Modes is assumed non-empty.
// req.Workers > 1 enables a bounded worker pool; the default is strictly
// sequential execution.
func (r *Runner) Run(ctx context.Context, instances []qaplib.Instance, req datatypes.BenchRequest) ([]datatypes.ResultRecord, *datatypes.BenchSummary) {
	type pair struct {
		instance qaplib.Instance
		mode     string
	}

	pairs := make([]pair, 0, len(instances)*len(req.Modes))
	for _, inst := range instances {
		for _, mode := range req.Modes {
			pairs = append(pairs, pair{instance: inst, mode: mode})
		}
	}

	results := make([]datatypes.ResultRecord, len(pairs))

	runPair := func(i int) {
		p := pairs[i]
		results[i] = r.solveOne(ctx, p.instance, p.mode, req)
	}

	if req.Workers > 1 {
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(req.Workers)
		for i := range pairs {
			g.Go(func() error {
				runPair(i)
				return nil // per-pair failures are captured in the record
			})
		}
		_ = g.Wait()
	} else {
		for i := range pairs {
			runPair(i)
		}
	}

	return results, Summarize(results)
}

// solveOne runs a single instance x mode invocation and converts the
// outcome (success or failure) into a result record.
func (r *Runner) solveOne(ctx context.Context, inst qaplib.Instance, mode string, req datatypes.BenchRequest) datatypes.ResultRecord {
	record := datatypes.ResultRecord{
		Instance: inst.Name,
		N:        inst.N,
		Mode:     mode,
	}

	params := solver.Params{
		Mode:      mode,
		TimeLimit: req.TimeLimit,
		Backend:   req.Backend,
		RobustEps: req.RobustEps,
	}
	problem := solver.Problem{Name: inst.Name, Path: inst.Path}

	started := time.Now()
	solution, err := r.solver.Solve(ctx, problem, params)
	if err != nil {
		record.SolveTime = time.Since(started).Seconds()
		record.Error = err.Error()
		slog.Warn("solver invocation failed",
			"instance", inst.Name, "mode", mode, "error", err)
		return record
	}

	objective := solution.Objective
	record.Objective = &objective
	record.SolveTime = solution.SolveTime
	if record.SolveTime == 0 {
		record.SolveTime = time.Since(started).Seconds()
	}

	if solution.Bound != nil {
		bound := *solution.Bound
		record.Bound = &bound
		gap, pct := solver.Gap(objective, bound)
		record.BoundGap = &gap
		record.BoundGapPct = &pct
	}

	return record
}

// =============================================================================
// Summary
// =============================================================================

// Summarize aggregates successful records by mode and by size bucket x
// mode. Failed records contribute to neither counts nor averages.
func Summarize(results []datatypes.ResultRecord) *datatypes.BenchSummary {
	type acc struct {
		count     int
		objective float64
		solveTime float64
	}

	byMode := make(map[string]*acc)
	bySize := make(map[string]*acc)

	add := func(m map[string]*acc, key string, rec datatypes.ResultRecord) {
		a := m[key]
		if a == nil {
			a = &acc{}
			m[key] = a
		}
		a.count++
		a.objective += *rec.Objective
		a.solveTime += rec.SolveTime
	}

	for _, rec := range results {
		if rec.Error != "" || rec.Objective == nil {
			continue
		}
		add(byMode, rec.Mode, rec)
		add(bySize, datatypes.SizeModeKey(rec.N, rec.Mode), rec)
	}

	finish := func(m map[string]*acc) map[string]datatypes.ModeSummary {
		out := make(map[string]datatypes.ModeSummary, len(m))
		for key, a := range m {
			out[key] = datatypes.ModeSummary{
				Count:        a.count,
				AvgObjective: a.objective / float64(a.count),
				AvgSolveTime: a.solveTime / float64(a.count),
			}
		}
		return out
	}

	return &datatypes.BenchSummary{
		ByMode:     finish(byMode),
		BySizeMode: finish(bySize),
	}
}
