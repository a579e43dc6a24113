// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/librex-ai/qapbench/services/orchestrator/datatypes"
	"github.com/librex-ai/qapbench/services/orchestrator/observability"
	"github.com/librex-ai/qapbench/services/orchestrator/solver"
)

// solveOutcome carries the adapter result across the timeout race.
type solveOutcome struct {
	solution solver.Solution
	err      error
}

// HandleSolve runs one synchronous solve through the solver adapter.
//
// # Description
//
// Parses the problem from JSON or form data, validates it before touching
// the adapter, and blocks until the adapter answers or the configured
// timeout elapses. The timeout is best-effort: the adapter call's context
// is cancelled, but a backend that does not honor cancellation keeps
// computing after the 408 has been sent.
//
// timeout <= 0 disables the timeout.
func HandleSolve(qapSolver solver.Solver, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := bindSolveRequest(c)
		if err != nil {
			recordError("solve", observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.ApplyDefaults()
		if err := req.Validate(); err != nil {
			recordError("solve", observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		problem := solver.Problem{Fit: req.Fit, A: req.A, B: req.B}
		params := solver.Params{
			Mode:      req.Mode,
			TimeLimit: req.TimeLimit,
			Backend:   req.Backend,
			RobustEps: req.RobustEps,
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		outcome := make(chan solveOutcome, 1)
		go func() {
			solution, err := qapSolver.Solve(ctx, problem, params)
			outcome <- solveOutcome{solution: solution, err: err}
		}()

		var timeoutCh <-chan time.Time
		if timeout > 0 {
			timer := time.NewTimer(timeout)
			defer timer.Stop()
			timeoutCh = timer.C
		}

		select {
		case <-timeoutCh:
			cancel() // best-effort: a non-cooperating backend runs on
			recordSolveRequest("timeout")
			recordError("solve", observability.ErrorCodeTimeout)
			slog.Warn("solve request timed out", "timeout", timeout.String(), "mode", req.Mode)
			c.JSON(http.StatusRequestTimeout, gin.H{"error": "solve timed out"})
			return

		case out := <-outcome:
			if out.err != nil {
				recordSolveRequest("error")
				recordError("solve", observability.ErrorCodeSolverError)
				c.JSON(http.StatusBadRequest, gin.H{"error": out.err.Error()})
				return
			}

			resp := datatypes.SolveResponse{
				Objective:  out.solution.Objective,
				Assignment: out.solution.Assignment,
				SolveTime:  out.solution.SolveTime,
				Mode:       req.Mode,
				Backend:    req.Backend,
				Metadata:   out.solution.Metadata,
			}
			if out.solution.Bound != nil {
				bound := *out.solution.Bound
				resp.Bound = &bound
				gap, pct := solver.Gap(out.solution.Objective, bound)
				resp.BoundGap = &gap
				resp.BoundGapPct = &pct
			}

			recordSolveRequest("success")
			c.JSON(http.StatusOK, resp)
		}
	}
}

// bindSolveRequest parses a solve request from JSON or form data.
//
// Form submissions carry matrices as JSON-encoded field values; numeric
// fields are parsed individually. Unknown content types get a best-effort
// JSON parse of the raw body.
func bindSolveRequest(c *gin.Context) (datatypes.SolveRequest, error) {
	var req datatypes.SolveRequest

	contentType := c.ContentType()
	switch {
	case strings.Contains(contentType, "json"):
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, err
		}
		return req, nil

	case contentType == "application/x-www-form-urlencoded" ||
		strings.HasPrefix(contentType, "multipart/form-data"):
		return solveRequestFromForm(c)

	default:
		// Best-effort JSON parse for clients that forget the header.
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return req, err
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return req, err
		}
		return req, nil
	}
}

func solveRequestFromForm(c *gin.Context) (datatypes.SolveRequest, error) {
	var req datatypes.SolveRequest

	for field, target := range map[string]*datatypes.Matrix{
		"fit": &req.Fit,
		"a":   &req.A,
		"b":   &req.B,
	} {
		raw := strings.TrimSpace(c.PostForm(field))
		if raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), target); err != nil {
			return req, err
		}
	}

	req.Mode = strings.TrimSpace(c.PostForm("mode"))
	req.Backend = strings.TrimSpace(c.PostForm("backend"))
	if v, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm("time_limit")), 64); err == nil {
		req.TimeLimit = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm("robust_eps")), 64); err == nil {
		req.RobustEps = v
	}
	return req, nil
}

// recordError increments the error counter when metrics are enabled.
func recordError(endpoint string, code observability.ErrorCode) {
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.RecordError(endpoint, code)
	}
}

// recordSolveRequest increments the solve outcome counter when metrics
// are enabled.
func recordSolveRequest(status string) {
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.RecordSolveRequest(status)
	}
}
