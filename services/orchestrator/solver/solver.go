// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package solver defines the boundary to the QAP solver backends.
//
// # Description
//
// The orchestrator never solves anything itself: every solve is delegated
// to an external backend (QAPFlow or a compatible service) through the
// Solver interface. The production implementation is an HTTP client; tests
// substitute in-process fakes.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. The benchmark runner
// may issue overlapping Solve calls from its worker pool.
package solver

import (
	"context"
	"math"
)

// =============================================================================
// Adapter Contract
// =============================================================================

// Params carries the per-call solver tuning knobs.
//
// RobustEps is forwarded only when > 0; backends treat 0 as "not set".
type Params struct {
	Mode      string  `json:"mode"`
	TimeLimit float64 `json:"time_limit"`
	Backend   string  `json:"backend,omitempty"`
	RobustEps float64 `json:"robust_eps,omitempty"`
}

// Problem identifies one problem input.
//
// Benchmark runs reference a named instance file shared with the backend
// (Name/Path set, matrices nil). Synchronous solves submit matrices inline
// (Fit, or the A/B pair).
type Problem struct {
	Name string      `json:"instance,omitempty"`
	Path string      `json:"path,omitempty"`
	Fit  [][]float64 `json:"fit,omitempty"`
	A    [][]float64 `json:"a,omitempty"`
	B    [][]float64 `json:"b,omitempty"`
}

// Solution is a backend's answer for one problem.
//
// Bound is the backend's optimality bound when it reports one; nil
// otherwise. SolveTime is wall-clock seconds spent by the backend.
type Solution struct {
	Objective  float64        `json:"objective"`
	Assignment []int          `json:"assignment,omitempty"`
	Bound      *float64       `json:"bound,omitempty"`
	SolveTime  float64        `json:"solve_time"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Solver is the capability interface implemented by backend adapters.
//
// # Description
//
// Solve runs one problem and returns the solution or an error. The context
// is honored on a best-effort basis: the HTTP adapter cancels the in-flight
// request, but a backend that has already started computing may run its
// budget out server-side. Callers must not assume preemption.
type Solver interface {
	Solve(ctx context.Context, problem Problem, params Params) (Solution, error)
}

// =============================================================================
// Bound Gap
// =============================================================================

// Gap computes the bound-gap diagnostics for a minimization objective.
//
// gap = objective - bound, pct = gap / max(1, |objective|). When the bound
// lies above the objective the gap is negative; it is deliberately not
// clamped, a negative gap flags a backend reporting an inconsistent bound.
func Gap(objective, bound float64) (gap, pct float64) {
	gap = objective - bound
	pct = gap / math.Max(1, math.Abs(objective))
	return gap, pct
}
