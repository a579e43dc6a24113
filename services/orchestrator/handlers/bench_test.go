// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librex-ai/qapbench/services/orchestrator/datatypes"
	"github.com/librex-ai/qapbench/services/orchestrator/jobstore"
	"github.com/librex-ai/qapbench/services/orchestrator/scheduler"
	"github.com/librex-ai/qapbench/services/orchestrator/solver"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// benchFixture wires a store, scheduler, and router around a stub solver
// and a temp data directory with the named instances.
type benchFixture struct {
	store  *jobstore.Store
	router *gin.Engine
}

type benchStubSolver struct {
	objective float64
	err       error
}

func (s *benchStubSolver) Solve(context.Context, solver.Problem, solver.Params) (solver.Solution, error) {
	if s.err != nil {
		return solver.Solution{}, s.err
	}
	return solver.Solution{Objective: s.objective, SolveTime: 0.1}, nil
}

func newBenchFixture(t *testing.T, s solver.Solver, instances ...string) *benchFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dataDir := t.TempDir()
	for i, name := range instances {
		content := fmt.Sprintf("%d\n", 10+i)
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name+".dat"), []byte(content), 0o644))
	}

	store := jobstore.NewStore(0)
	sched := scheduler.New(scheduler.Config{
		Store:          store,
		Solver:         s,
		DefaultDataDir: dataDir,
	})

	router := gin.New()
	router.POST("/v1/bench", HandleBenchStart(sched))
	router.GET("/v1/bench/summary", HandleBenchSummary(store))
	router.GET("/v1/bench/:jobId", HandleBenchGet(store))
	router.GET("/v1/bench/:jobId/csv", HandleBenchCSV(store))
	router.POST("/v1/bench/ui/new", HandleBenchUINew(sched))

	return &benchFixture{store: store, router: router}
}

// pollDone polls the GET endpoint until the job reports a terminal
// status, mirroring how API clients consume the 202 contract.
func (f *benchFixture) pollDone(t *testing.T, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		w := performRequest(f.router, http.MethodGet, "/v1/bench/"+jobID, "", "")
		require.Equal(t, http.StatusOK, w.Code)

		var job map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
		if s, _ := job["status"].(string); s != string(datatypes.JobStatusRunning) {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return nil
}

// =============================================================================
// Test: Start and poll
// =============================================================================

// TestHandleBenchStart_AcceptAndPoll verifies the 202 contract: immediate
// job id, then results visible through polling.
func TestHandleBenchStart_AcceptAndPoll(t *testing.T) {
	f := newBenchFixture(t, &benchStubSolver{objective: 50}, "nug12", "tai20a")

	w := performRequest(f.router, http.MethodPost, "/v1/bench", "application/json",
		`{"type": "qaplib"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	jobID, _ := accepted["job_id"].(string)
	assert.Equal(t, "b-1", jobID)
	assert.Equal(t, "running", accepted["status"])

	job := f.pollDone(t, jobID)
	assert.Equal(t, "done", job["status"])

	results, ok := job["results"].([]any)
	require.True(t, ok)
	assert.Len(t, results, 2)

	summary, ok := job["summary"].(map[string]any)
	require.True(t, ok)
	byMode := summary["by_mode"].(map[string]any)
	hybrid := byMode["hybrid"].(map[string]any)
	assert.Equal(t, 2.0, hybrid["count"])
	assert.Equal(t, 50.0, hybrid["avg_objective"])
}

// TestHandleBenchStart_FormEncoded verifies the HTML form shape is
// accepted on the JSON endpoint too.
func TestHandleBenchStart_FormEncoded(t *testing.T) {
	f := newBenchFixture(t, &benchStubSolver{objective: 1}, "nug12")

	form := url.Values{}
	form.Set("modes", "hybrid,fft")
	form.Set("time_limit", "5")

	w := performRequest(f.router, http.MethodPost, "/v1/bench",
		"application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	f.pollDone(t, accepted["job_id"])
}

// TestHandleBenchStart_Rejections verifies validation and scheduler
// rejections answer 400.
func TestHandleBenchStart_Rejections(t *testing.T) {
	f := newBenchFixture(t, &benchStubSolver{objective: 1}, "nug12")

	tests := []struct {
		name string
		body string
	}{
		{"unsupported type", `{"type": "tsplib"}`},
		{"missing type", `{}`},
		{"bad mode slug", `{"type": "qaplib", "modes": ["no spaces"]}`},
		{"negative time limit", `{"type": "qaplib", "time_limit": -5}`},
		{"malformed json", `{"type":`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(f.router, http.MethodPost, "/v1/bench", "application/json", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

// TestHandleBenchUINew_Redirects verifies the browser variant answers
// 303 to the job detail page.
func TestHandleBenchUINew_Redirects(t *testing.T) {
	f := newBenchFixture(t, &benchStubSolver{objective: 1}, "nug12")

	form := url.Values{}
	form.Set("modes", "hybrid")

	w := performRequest(f.router, http.MethodPost, "/v1/bench/ui/new",
		"application/x-www-form-urlencoded", form.Encode())

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/v1/bench/ui/b-1", w.Header().Get("Location"))
}

// =============================================================================
// Test: Job retrieval
// =============================================================================

func TestHandleBenchGet_UnknownJob(t *testing.T) {
	f := newBenchFixture(t, &benchStubSolver{objective: 1})

	w := performRequest(f.router, http.MethodGet, "/v1/bench/b-99", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown job id")
}

// TestHandleBenchGet_RepeatedReadsStable verifies polling a finished job
// returns identical content every time.
func TestHandleBenchGet_RepeatedReadsStable(t *testing.T) {
	f := newBenchFixture(t, &benchStubSolver{objective: 9}, "nug12")

	w := performRequest(f.router, http.MethodPost, "/v1/bench", "application/json", `{"type":"qaplib"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	f.pollDone(t, accepted["job_id"])

	first := performRequest(f.router, http.MethodGet, "/v1/bench/"+accepted["job_id"], "", "")
	second := performRequest(f.router, http.MethodGet, "/v1/bench/"+accepted["job_id"], "", "")
	assert.Equal(t, first.Body.String(), second.Body.String())
}

// =============================================================================
// Test: CSV export
// =============================================================================

// TestHandleBenchCSV verifies the fixed header, one row per result, and
// empty cells for absent optionals.
func TestHandleBenchCSV(t *testing.T) {
	f := newBenchFixture(t, &benchStubSolver{objective: 1})

	// Seed a completed job directly so the CSV content is deterministic.
	id := f.store.CreateJob(datatypes.BenchRequest{Type: datatypes.BenchTypeQAPLIB})
	obj, bound, gap, pct := 578.0, 520.0, 58.0, 0.1003
	require.NoError(t, f.store.Complete(id, []datatypes.ResultRecord{
		{Instance: "nug12", N: 12, Mode: "hybrid", Objective: &obj, SolveTime: 0.4,
			Bound: &bound, BoundGap: &gap, BoundGapPct: &pct},
		{Instance: "tai20a", N: 20, Mode: "hybrid", SolveTime: 0.1, Error: "backend timeout"},
	}, nil))

	w := performRequest(f.router, http.MethodGet, "/v1/bench/"+id+"/csv", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), id+".csv")

	rows, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"nug12", "12", "hybrid", "578", "0.4", "520", "58", "0.1003", ""}, rows[1])
	assert.Equal(t, []string{"tai20a", "20", "hybrid", "", "0.1", "", "", "", "backend timeout"}, rows[2])
}

func TestHandleBenchCSV_UnknownJob(t *testing.T) {
	f := newBenchFixture(t, &benchStubSolver{objective: 1})

	w := performRequest(f.router, http.MethodGet, "/v1/bench/b-42/csv", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =============================================================================
// Test: Summary listing
// =============================================================================

// TestHandleBenchSummary verifies the {status, created} projection.
func TestHandleBenchSummary(t *testing.T) {
	f := newBenchFixture(t, &benchStubSolver{objective: 1})

	id1 := f.store.CreateJob(datatypes.BenchRequest{Type: datatypes.BenchTypeQAPLIB})
	id2 := f.store.CreateJob(datatypes.BenchRequest{Type: datatypes.BenchTypeQAPLIB})
	require.NoError(t, f.store.Fail(id2, "boom"))

	w := performRequest(f.router, http.MethodGet, "/v1/bench/summary", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Jobs map[string]datatypes.JobListing `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, datatypes.JobStatusRunning, resp.Jobs[id1].Status)
	assert.Equal(t, datatypes.JobStatusError, resp.Jobs[id2].Status)
	assert.NotEmpty(t, resp.Jobs[id1].Created)
}

func TestHandleBenchSummary_Empty(t *testing.T) {
	f := newBenchFixture(t, &benchStubSolver{objective: 1})

	w := performRequest(f.router, http.MethodGet, "/v1/bench/summary", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"jobs": {}}`, w.Body.String())
}
