// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package report renders static HTML reports for completed benchmark jobs.
//
// Reports are a best-effort side effect, like the history log: a render
// or write failure is logged by the scheduler and never affects job state.
// The report directory is served read-only under /reports.
package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/librex-ai/qapbench/services/orchestrator/datatypes"
)

// Generator writes per-job report pages and maintains the index page.
//
// # Thread Safety
//
// WriteJobReport is safe for concurrent use; index regeneration is
// serialized via mutex so two finishing jobs cannot interleave writes.
type Generator struct {
	dir string

	mu        sync.Mutex
	jobTmpl   *template.Template
	indexTmpl *template.Template
}

// NewGenerator creates a Generator writing into dir, creating it if needed.
func NewGenerator(dir string) (*Generator, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &Generator{
		dir:       dir,
		jobTmpl:   template.Must(template.New("job").Funcs(TemplateFuncs()).Parse(jobReportHTML)),
		indexTmpl: template.Must(template.New("index").Parse(indexHTML)),
	}, nil
}

// Dir returns the report directory.
func (g *Generator) Dir() string { return g.dir }

// WriteJobReport renders the job's report page and refreshes the index.
func (g *Generator) WriteJobReport(job datatypes.Job) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	path := filepath.Join(g.dir, job.ID+".html")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := g.jobTmpl.Execute(f, NewJobView(job)); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render report for %s: %w", job.ID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report for %s: %w", job.ID, err)
	}

	return g.writeIndexLocked()
}

// writeIndexLocked regenerates index.html listing reports newest first.
func (g *Generator) writeIndexLocked() error {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return fmt.Errorf("failed to list report directory: %w", err)
	}

	type indexEntry struct {
		Name     string
		Modified string
		modNanos int64
	}
	var reports []indexEntry
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == "index.html" || !strings.HasSuffix(name, ".html") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, indexEntry{
			Name:     name,
			Modified: info.ModTime().UTC().Format("2006-01-02 15:04:05"),
			modNanos: info.ModTime().UnixNano(),
		})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].modNanos > reports[j].modNanos })

	f, err := os.Create(filepath.Join(g.dir, "index.html"))
	if err != nil {
		return fmt.Errorf("failed to create report index: %w", err)
	}
	if err := g.indexTmpl.Execute(f, reports); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render report index: %w", err)
	}
	return f.Close()
}

// =============================================================================
// View Model
// =============================================================================

// JobView is the data handed to the job report template.
type JobView struct {
	Job      datatypes.Job
	ModeBars []ModeBar
}

// ModeBar is one bar in the per-mode average objective chart. Width is a
// percentage of the largest average so the chart needs no client-side code.
type ModeBar struct {
	Mode     string
	Avg      float64
	Count    int
	WidthPct int
	AvgSolve float64
}

// NewJobView builds the template view model for a job. Shared with the
// live HTML handlers, which render the same table and bar chart.
func NewJobView(job datatypes.Job) JobView {
	view := JobView{Job: job}
	if job.Summary == nil {
		return view
	}

	var maxAvg float64
	modes := make([]string, 0, len(job.Summary.ByMode))
	for mode, s := range job.Summary.ByMode {
		modes = append(modes, mode)
		if s.AvgObjective > maxAvg {
			maxAvg = s.AvgObjective
		}
	}
	sort.Strings(modes)

	for _, mode := range modes {
		s := job.Summary.ByMode[mode]
		width := 100
		if maxAvg > 0 {
			width = int(s.AvgObjective / maxAvg * 100)
		}
		if width < 2 {
			width = 2
		}
		view.ModeBars = append(view.ModeBars, ModeBar{
			Mode:     mode,
			Avg:      s.AvgObjective,
			Count:    s.Count,
			WidthPct: width,
			AvgSolve: s.AvgSolveTime,
		})
	}
	return view
}

// =============================================================================
// Template Helpers
// =============================================================================

// FormatOptional renders an optional float with prec decimals, or "" when
// the value is absent. Templates cannot dereference pointers in printf
// arguments, so optional cells go through this helper.
func FormatOptional(prec int, v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// TemplateFuncs returns the function map shared by the static report
// templates and the live dashboard templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{"opt": FormatOptional}
}
