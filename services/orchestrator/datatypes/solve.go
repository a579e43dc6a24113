// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains request and response types for the synchronous solve
// endpoint. For asynchronous benchmark types, see bench.go.
package datatypes

import (
	"fmt"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxMatrixDim caps the dimension of submitted problem matrices.
	// A 512x512 float64 matrix is ~2 MB, matching the default request
	// body limit.
	MaxMatrixDim = 512
)

// =============================================================================
// Solve Request
// =============================================================================

// Matrix is a dense square problem matrix submitted inline.
type Matrix [][]float64

// Dim returns the row count of the matrix.
func (m Matrix) Dim() int { return len(m) }

// checkSquare verifies the matrix is square and within MaxMatrixDim.
func (m Matrix) checkSquare(name string) error {
	n := len(m)
	if n > MaxMatrixDim {
		return fmt.Errorf("%s matrix dimension %d exceeds maximum %d", name, n, MaxMatrixDim)
	}
	for i, row := range m {
		if len(row) != n {
			return fmt.Errorf("%s matrix row %d has %d entries, want %d", name, i, len(row), n)
		}
	}
	return nil
}

// SolveRequest is the payload for POST /v1/solve.
//
// # Description
//
// Carries one QAP problem either as a single pre-combined fitness matrix
// (Fit) or as a flow/distance matrix pair (A, B), plus solver parameters.
// Exactly one of the two shapes must be present.
//
// # Fields
//
//   - Fit: Pre-combined fitness matrix. Mutually exclusive with A/B.
//   - A, B: Flow and distance matrices. Both required when Fit is absent.
//   - Mode: Solver mode. Default applied by the adapter ("hybrid").
//   - TimeLimit: Time budget in seconds. Default: 30.
//   - Backend: Optional backend hint forwarded to the adapter.
//   - RobustEps: Robustness epsilon, forwarded when > 0.
type SolveRequest struct {
	Fit       Matrix  `json:"fit,omitempty"`
	A         Matrix  `json:"a,omitempty"`
	B         Matrix  `json:"b,omitempty"`
	Mode      string  `json:"mode,omitempty"`
	TimeLimit float64 `json:"time_limit,omitempty"`
	Backend   string  `json:"backend,omitempty"`
	RobustEps float64 `json:"robust_eps,omitempty"`
}

// ApplyDefaults fills zero-valued optional fields with their defaults.
func (r *SolveRequest) ApplyDefaults() {
	if r.Mode == "" {
		r.Mode = DefaultMode
	}
	if r.TimeLimit == 0 {
		r.TimeLimit = DefaultTimeLimitSeconds
	}
}

// Validate checks that the request carries a well-formed problem.
//
// Fails fast on missing matrices so the handler never touches the solver
// adapter with an incomplete payload.
func (r *SolveRequest) Validate() error {
	hasFit := len(r.Fit) > 0
	hasPair := len(r.A) > 0 || len(r.B) > 0

	switch {
	case hasFit && hasPair:
		return fmt.Errorf("provide either fit or the a/b matrix pair, not both")
	case hasFit:
		return r.Fit.checkSquare("fit")
	case len(r.A) == 0 || len(r.B) == 0:
		return fmt.Errorf("missing problem matrices: provide fit, or both a and b")
	}

	if err := r.A.checkSquare("a"); err != nil {
		return err
	}
	if err := r.B.checkSquare("b"); err != nil {
		return err
	}
	if r.A.Dim() != r.B.Dim() {
		return fmt.Errorf("matrix dimension mismatch: a is %dx%d, b is %dx%d",
			r.A.Dim(), r.A.Dim(), r.B.Dim(), r.B.Dim())
	}
	return nil
}

// =============================================================================
// Solve Response
// =============================================================================

// SolveResponse is the enriched response for a successful synchronous solve.
//
// BoundGap and BoundGapPct are computed by the handler when the backend
// reports a bound: gap = objective - bound, normalized by
// max(1, |objective|). A negative gap (bound above objective) is kept as a
// diagnostic signal.
type SolveResponse struct {
	Objective   float64        `json:"objective"`
	Assignment  []int          `json:"assignment,omitempty"`
	Bound       *float64       `json:"bound,omitempty"`
	BoundGap    *float64       `json:"bound_gap,omitempty"`
	BoundGapPct *float64       `json:"bound_gap_pct,omitempty"`
	SolveTime   float64        `json:"solve_time"`
	Mode        string         `json:"mode"`
	Backend     string         `json:"backend,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
