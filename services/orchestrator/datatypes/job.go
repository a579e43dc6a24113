// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the benchmark job record and its result/summary types.
package datatypes

// =============================================================================
// Job Status
// =============================================================================

// JobStatus is the lifecycle state of a benchmark job.
//
// A job makes exactly one forward transition: running -> done or
// running -> error. There is no re-entry and no cancellation state.
type JobStatus string

const (
	// JobStatusRunning means the background task has been launched and has
	// not yet written its terminal update.
	JobStatusRunning JobStatus = "running"

	// JobStatusDone means the background task completed. Results and
	// summary are populated; individual result records may still carry
	// per-instance errors.
	JobStatusDone JobStatus = "done"

	// JobStatusError means the background task failed outside the
	// per-instance error handling. The Error field carries the message.
	JobStatusError JobStatus = "error"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// =============================================================================
// Result Records
// =============================================================================

// ResultRecord is the outcome of one instance x mode solver invocation.
//
// Exactly one of (Objective, Error) is populated: a failed invocation
// carries Error and no objective, and is excluded from summary averages.
type ResultRecord struct {
	Instance    string   `json:"instance"`
	N           int      `json:"n"`
	Mode        string   `json:"mode"`
	Objective   *float64 `json:"objective,omitempty"`
	SolveTime   float64  `json:"solve_time"`
	Bound       *float64 `json:"bound,omitempty"`
	BoundGap    *float64 `json:"bound_gap,omitempty"`
	BoundGapPct *float64 `json:"bound_gap_pct,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// ModeSummary aggregates successful result records for one summary key.
type ModeSummary struct {
	Count        int     `json:"count"`
	AvgObjective float64 `json:"avg_objective"`
	AvgSolveTime float64 `json:"avg_solve_time"`
}

// BenchSummary holds aggregate statistics for a completed job.
//
// ByMode is keyed by mode name. BySizeMode is keyed by
// "<size bucket>|<mode>", e.g. "small|hybrid".
type BenchSummary struct {
	ByMode     map[string]ModeSummary `json:"by_mode"`
	BySizeMode map[string]ModeSummary `json:"by_size_mode"`
}

// SizeBucket groups a problem size into a coarse reporting bucket.
func SizeBucket(n int) string {
	switch {
	case n <= 20:
		return "small"
	case n <= 50:
		return "medium"
	case n <= 100:
		return "large"
	default:
		return "xlarge"
	}
}

// SizeModeKey builds the BySizeMode summary key for a record.
func SizeModeKey(n int, mode string) string {
	return SizeBucket(n) + "|" + mode
}

// =============================================================================
// Job Record
// =============================================================================

// Job is one asynchronous benchmark execution tracked by the job store.
//
// # Description
//
// Created with status running and empty results when a benchmark request
// is accepted. The background task performs the single terminal update:
// status done with results and summary, or status error with a message.
// Results are never partially visible while the job is running.
type Job struct {
	ID        string         `json:"id"`
	Status    JobStatus      `json:"status"`
	CreatedAt string         `json:"created_at"`
	Params    BenchRequest   `json:"params"`
	Results   []ResultRecord `json:"results,omitempty"`
	Summary   *BenchSummary  `json:"summary,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Clone returns a deep copy of the job. The store hands out clones so
// that callers can never mutate the stored record.
func (j *Job) Clone() Job {
	out := *j
	if j.Results != nil {
		out.Results = make([]ResultRecord, len(j.Results))
		copy(out.Results, j.Results)
	}
	if j.Summary != nil {
		s := BenchSummary{
			ByMode:     make(map[string]ModeSummary, len(j.Summary.ByMode)),
			BySizeMode: make(map[string]ModeSummary, len(j.Summary.BySizeMode)),
		}
		for k, v := range j.Summary.ByMode {
			s.ByMode[k] = v
		}
		for k, v := range j.Summary.BySizeMode {
			s.BySizeMode[k] = v
		}
		out.Summary = &s
	}
	return out
}

// JobListing is the lightweight projection served by the summary and
// dashboard endpoints.
type JobListing struct {
	Status  JobStatus `json:"status"`
	Created string    `json:"created"`
}
