// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librex-ai/qapbench/services/orchestrator/datatypes"
	"github.com/librex-ai/qapbench/services/orchestrator/jobstore"
)

func uiRouter(store *jobstore.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/v1/bench/ui", HandleBenchDashboard(store))
	router.GET("/v1/bench/ui/:jobId", HandleBenchDetail(store))
	return router
}

// =============================================================================
// Test: Dashboard
// =============================================================================

// TestHandleBenchDashboard verifies job rows and the submission form are
// rendered.
func TestHandleBenchDashboard(t *testing.T) {
	store := jobstore.NewStore(0)
	id1 := store.CreateJob(datatypes.BenchRequest{Type: datatypes.BenchTypeQAPLIB})
	id2 := store.CreateJob(datatypes.BenchRequest{Type: datatypes.BenchTypeQAPLIB})
	require.NoError(t, store.Fail(id2, "boom"))

	w := performRequest(uiRouter(store), http.MethodGet, "/v1/bench/ui", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	html := w.Body.String()
	assert.Contains(t, html, id1)
	assert.Contains(t, html, id2)
	assert.Contains(t, html, `action="/v1/bench/ui/new"`)
}

func TestHandleBenchDashboard_Empty(t *testing.T) {
	w := performRequest(uiRouter(jobstore.NewStore(0)), http.MethodGet, "/v1/bench/ui", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No jobs yet")
}

// =============================================================================
// Test: Detail page
// =============================================================================

// TestHandleBenchDetail_Done verifies a finished job renders its results
// table without the auto-refresh tag.
func TestHandleBenchDetail_Done(t *testing.T) {
	store := jobstore.NewStore(0)
	id := store.CreateJob(datatypes.BenchRequest{Type: datatypes.BenchTypeQAPLIB})
	obj := 578.0
	require.NoError(t, store.Complete(id,
		[]datatypes.ResultRecord{{Instance: "nug12", N: 12, Mode: "hybrid", Objective: &obj, SolveTime: 0.4}},
		&datatypes.BenchSummary{
			ByMode: map[string]datatypes.ModeSummary{"hybrid": {Count: 1, AvgObjective: 578, AvgSolveTime: 0.4}},
		}))

	w := performRequest(uiRouter(store), http.MethodGet, "/v1/bench/ui/"+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)

	html := w.Body.String()
	assert.Contains(t, html, "nug12")
	assert.Contains(t, html, "578.0000")
	assert.NotContains(t, html, `http-equiv="refresh"`)
}

// TestHandleBenchDetail_Running verifies an in-flight job page
// auto-refreshes.
func TestHandleBenchDetail_Running(t *testing.T) {
	store := jobstore.NewStore(0)
	id := store.CreateJob(datatypes.BenchRequest{Type: datatypes.BenchTypeQAPLIB})

	w := performRequest(uiRouter(store), http.MethodGet, "/v1/bench/ui/"+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http-equiv="refresh"`)
}

func TestHandleBenchDetail_UnknownJob(t *testing.T) {
	w := performRequest(uiRouter(jobstore.NewStore(0)), http.MethodGet, "/v1/bench/ui/b-9", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
