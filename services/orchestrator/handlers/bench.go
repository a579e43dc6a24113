// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/librex-ai/qapbench/services/orchestrator/datatypes"
	"github.com/librex-ai/qapbench/services/orchestrator/jobstore"
	"github.com/librex-ai/qapbench/services/orchestrator/observability"
	"github.com/librex-ai/qapbench/services/orchestrator/scheduler"
)

// csvHeader is the fixed column order of the CSV export.
var csvHeader = []string{
	"instance", "n", "mode", "objective", "solve_time",
	"bound", "bound_gap", "bound_gap_pct", "error",
}

// HandleBenchStart accepts an asynchronous benchmark request.
// Answers 202 with the job id, or 400 when the scheduler rejects it.
func HandleBenchStart(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.BenchRequest
		contentType := c.ContentType()
		if contentType == "application/x-www-form-urlencoded" ||
			strings.HasPrefix(contentType, "multipart/form-data") {
			req = datatypes.BenchRequestFromForm(c.PostForm)
		} else if err := c.ShouldBindJSON(&req); err != nil {
			recordError("bench", observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		jobID, err := startJob(sched, req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"job_id": jobID,
			"status": string(datatypes.JobStatusRunning),
		})
	}
}

// HandleBenchUINew is the HTML form variant of HandleBenchStart: it
// redirects to the job detail page instead of answering JSON.
func HandleBenchUINew(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := datatypes.BenchRequestFromForm(c.PostForm)

		jobID, err := startJob(sched, req)
		if err != nil {
			c.String(http.StatusBadRequest, "benchmark request rejected: %s", err.Error())
			return
		}

		c.Redirect(http.StatusSeeOther, "/v1/bench/ui/"+jobID)
	}
}

// startJob validates and submits a request, mapping rejections to one
// client-facing error.
func startJob(sched *scheduler.Scheduler, req datatypes.BenchRequest) (string, error) {
	if err := req.Validate(); err != nil {
		recordError("bench", observability.ErrorCodeValidation)
		return "", err
	}

	jobID, err := sched.StartBenchmarkJob(req)
	if err != nil {
		recordError("bench", observability.ErrorCodeValidation)
		slog.Info("benchmark request rejected", "type", req.Type, "error", err)
		if errors.Is(err, scheduler.ErrUnsupportedType) || errors.Is(err, scheduler.ErrNoDataDir) {
			return "", err
		}
		return "", fmt.Errorf("benchmark request rejected: %w", err)
	}
	return jobID, nil
}

// HandleBenchGet serves the full job record as JSON, or 404.
func HandleBenchGet(store *jobstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := store.GetJob(c.Param("jobId"))
		if err != nil {
			recordError("bench", observability.ErrorCodeNotFound)
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown job id"})
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

// HandleBenchCSV streams the job's results as a CSV attachment, or 404.
func HandleBenchCSV(store *jobstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("jobId")
		job, err := store.GetJob(jobID)
		if err != nil {
			recordError("bench", observability.ErrorCodeNotFound)
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown job id"})
			return
		}

		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+".csv"))
		c.Status(http.StatusOK)

		w := csv.NewWriter(c.Writer)
		_ = w.Write(csvHeader)
		for _, rec := range job.Results {
			_ = w.Write(csvRow(rec))
		}
		w.Flush()
	}
}

// csvRow flattens one result record in csvHeader order. Absent optional
// values become empty cells.
func csvRow(rec datatypes.ResultRecord) []string {
	optional := func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'g', -1, 64)
	}
	return []string{
		rec.Instance,
		strconv.Itoa(rec.N),
		rec.Mode,
		optional(rec.Objective),
		strconv.FormatFloat(rec.SolveTime, 'g', -1, 64),
		optional(rec.Bound),
		optional(rec.BoundGap),
		optional(rec.BoundGapPct),
		rec.Error,
	}
}

// HandleBenchSummary serves the {status, created} projection of all jobs.
func HandleBenchSummary(store *jobstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"jobs": store.ListJobs()})
	}
}
