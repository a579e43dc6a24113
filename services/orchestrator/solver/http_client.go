// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
)

// solverTracer traces outbound backend calls.
var solverTracer = otel.Tracer("librex.orchestrator.solver")

// =============================================================================
// Backend Resolution
// =============================================================================

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeBackendName converts a backend display name to a standard slug.
// e.g. "QAPFlow (Nesterov)" -> "qapflow-nesterov"
func normalizeBackendName(input string) string {
	s := strings.ToLower(input)
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ResolveBackendURL returns the service URL for a backend name.
//
// Resolution order:
//  1. QAP_BACKEND_<SLUG> environment override for the specific backend
//     (slug uppercased, hyphens replaced with underscores).
//  2. QAPFLOW_SERVICE_URL, the primary backend container.
//  3. The compiled-in default "http://qapflow-service:8000".
func ResolveBackendURL(backend string) string {
	defaultURL := os.Getenv("QAPFLOW_SERVICE_URL")
	if defaultURL == "" {
		defaultURL = "http://qapflow-service:8000"
	}

	if backend == "" {
		return defaultURL
	}

	slug := normalizeBackendName(backend)
	envVarKey := fmt.Sprintf("QAP_BACKEND_%s", strings.ReplaceAll(strings.ToUpper(slug), "-", "_"))
	if override := os.Getenv(envVarKey); override != "" {
		slog.Info("Using environment override for backend", "backend", backend, "url", override)
		return override
	}
	return defaultURL
}

// =============================================================================
// HTTP Adapter
// =============================================================================

// HTTPSolver is the production Solver implementation.
//
// # Description
//
// Forwards each solve to a QAPFlow-compatible HTTP backend as
// POST {base}/solve with a JSON body combining the problem and parameters.
// The backend's URL is resolved per call from params.Backend so a single
// adapter instance can fan out to multiple backend containers.
//
// # Thread Safety
//
// Safe for concurrent use; the underlying http.Client is shared.
//
// # Limitations
//
//   - Context cancellation aborts the HTTP request but not any computation
//     the backend has already started.
type HTTPSolver struct {
	client *http.Client

	// baseURL overrides environment resolution when non-empty.
	// Used by tests and the CLI's --backend-url flag.
	baseURL string
}

// Option configures an HTTPSolver.
type Option func(*HTTPSolver)

// WithBaseURL pins the adapter to a fixed backend URL, bypassing
// environment-based resolution.
func WithBaseURL(url string) Option {
	return func(s *HTTPSolver) { s.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *HTTPSolver) { s.client = c }
}

// NewHTTPSolver creates the HTTP backend adapter.
//
// The default client carries no request timeout: the per-solve budget is
// the backend's concern (params.TimeLimit) and callers bound waiting via
// the context.
func NewHTTPSolver(opts ...Option) *HTTPSolver {
	s := &HTTPSolver{
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// solveWire is the request body sent to the backend.
type solveWire struct {
	Problem
	Mode      string   `json:"mode"`
	TimeLimit float64  `json:"time_limit"`
	RobustEps *float64 `json:"robust_eps,omitempty"`
}

// solveReply is the backend's response body. Error is set on failure
// replies; backends answer non-200 with {"error": "..."}.
type solveReply struct {
	Solution
	Error string `json:"error,omitempty"`
}

// Solve implements Solver over HTTP.
func (s *HTTPSolver) Solve(ctx context.Context, problem Problem, params Params) (Solution, error) {
	ctx, span := solverTracer.Start(ctx, "solver.Solve")
	defer span.End()

	base := s.baseURL
	if base == "" {
		base = ResolveBackendURL(params.Backend)
	}

	wire := solveWire{
		Problem:   problem,
		Mode:      params.Mode,
		TimeLimit: params.TimeLimit,
	}
	if params.RobustEps > 0 {
		eps := params.RobustEps
		wire.RobustEps = &eps
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return Solution{}, fmt.Errorf("failed to encode solve request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/solve", bytes.NewReader(body))
	if err != nil {
		return Solution{}, fmt.Errorf("failed to build solve request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return Solution{}, fmt.Errorf("solver backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return Solution{}, fmt.Errorf("failed to read solver response: %w", err)
	}

	var reply solveReply
	if err := json.Unmarshal(payload, &reply); err != nil {
		return Solution{}, fmt.Errorf("malformed solver response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := reply.Error
		if msg == "" {
			msg = strings.TrimSpace(string(payload))
		}
		return Solution{}, fmt.Errorf("solver backend error (status %d): %s", resp.StatusCode, msg)
	}

	if reply.SolveTime == 0 {
		// Older backends omit solve_time; fall back to wall clock.
		reply.SolveTime = time.Since(started).Seconds()
	}

	slog.Debug("solver call completed",
		"instance", problem.Name,
		"mode", params.Mode,
		"objective", reply.Objective,
		"solve_time", reply.SolveTime)

	return reply.Solution, nil
}

var _ Solver = (*HTTPSolver)(nil)
