// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librex-ai/qapbench/services/orchestrator/datatypes"
)

func ptr(v float64) *float64 { return &v }

func doneJob(id string) datatypes.Job {
	return datatypes.Job{
		ID:        id,
		Status:    datatypes.JobStatusDone,
		CreatedAt: "2026-08-28T10:00:00Z",
		Params:    datatypes.BenchRequest{Type: datatypes.BenchTypeQAPLIB, Modes: datatypes.ModeList{"hybrid"}},
		Results: []datatypes.ResultRecord{
			{Instance: "nug12", N: 12, Mode: "hybrid", Objective: ptr(578), SolveTime: 0.4,
				Bound: ptr(520), BoundGap: ptr(58), BoundGapPct: ptr(0.1003)},
			{Instance: "tai20a", N: 20, Mode: "hybrid", SolveTime: 0.1, Error: "backend timeout"},
		},
		Summary: &datatypes.BenchSummary{
			ByMode:     map[string]datatypes.ModeSummary{"hybrid": {Count: 1, AvgObjective: 578, AvgSolveTime: 0.4}},
			BySizeMode: map[string]datatypes.ModeSummary{"small|hybrid": {Count: 1, AvgObjective: 578, AvgSolveTime: 0.4}},
		},
	}
}

// =============================================================================
// Test: Generator
// =============================================================================

// TestGenerator_WriteJobReport verifies the page and the index are
// written with the job's content.
func TestGenerator_WriteJobReport(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGenerator(dir)
	require.NoError(t, err)

	require.NoError(t, g.WriteJobReport(doneJob("b-1")))

	page, err := os.ReadFile(filepath.Join(dir, "b-1.html"))
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, "b-1")
	assert.Contains(t, html, "nug12")
	assert.Contains(t, html, "578.0000")
	assert.Contains(t, html, "backend timeout")

	index, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "b-1.html")
}

// TestGenerator_IndexListsAllReports verifies successive jobs accumulate
// in the index.
func TestGenerator_IndexListsAllReports(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGenerator(dir)
	require.NoError(t, err)

	require.NoError(t, g.WriteJobReport(doneJob("b-1")))
	require.NoError(t, g.WriteJobReport(doneJob("b-2")))

	index, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "b-1.html")
	assert.Contains(t, string(index), "b-2.html")
	assert.NotContains(t, string(index), ">index.html<")
}

func TestGenerator_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	_, err := NewGenerator(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// =============================================================================
// Test: View model
// =============================================================================

// TestNewJobView_Bars verifies bar scaling against the largest average.
func TestNewJobView_Bars(t *testing.T) {
	job := datatypes.Job{
		ID:     "b-1",
		Status: datatypes.JobStatusDone,
		Summary: &datatypes.BenchSummary{
			ByMode: map[string]datatypes.ModeSummary{
				"fft":    {Count: 2, AvgObjective: 50},
				"hybrid": {Count: 2, AvgObjective: 100},
			},
		},
	}

	view := NewJobView(job)
	require.Len(t, view.ModeBars, 2)

	// Sorted by mode name.
	assert.Equal(t, "fft", view.ModeBars[0].Mode)
	assert.Equal(t, 50, view.ModeBars[0].WidthPct)
	assert.Equal(t, "hybrid", view.ModeBars[1].Mode)
	assert.Equal(t, 100, view.ModeBars[1].WidthPct)
}

func TestNewJobView_NoSummary(t *testing.T) {
	view := NewJobView(datatypes.Job{ID: "b-1", Status: datatypes.JobStatusRunning})
	assert.Empty(t, view.ModeBars)
}

// TestNewJobView_MinimumWidth verifies tiny averages still render a
// visible bar.
func TestNewJobView_MinimumWidth(t *testing.T) {
	job := datatypes.Job{
		Summary: &datatypes.BenchSummary{
			ByMode: map[string]datatypes.ModeSummary{
				"a": {Count: 1, AvgObjective: 0.01},
				"b": {Count: 1, AvgObjective: 1000},
			},
		},
	}

	view := NewJobView(job)
	require.Len(t, view.ModeBars, 2)
	assert.Equal(t, 2, view.ModeBars[0].WidthPct)
}

// =============================================================================
// Test: Template helpers
// =============================================================================

func TestFormatOptional(t *testing.T) {
	assert.Equal(t, "", FormatOptional(4, nil))
	assert.Equal(t, "1.5000", FormatOptional(4, ptr(1.5)))
	assert.Equal(t, "-0.10", FormatOptional(2, ptr(-0.1)))
}
