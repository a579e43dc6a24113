// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"html/template"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/librex-ai/qapbench/services/orchestrator/jobstore"
	"github.com/librex-ai/qapbench/services/orchestrator/observability"
	"github.com/librex-ai/qapbench/services/orchestrator/report"
)

var (
	dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardHTML))
	detailTmpl    = template.Must(template.New("detail").Funcs(report.TemplateFuncs()).Parse(detailHTML))
)

// dashboardRow is one job line on the dashboard, newest first.
type dashboardRow struct {
	ID      string
	Status  string
	Created string
}

// HandleBenchDashboard renders the job list with a submission form.
func HandleBenchDashboard(store *jobstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		listing := store.ListJobs()
		rows := make([]dashboardRow, 0, len(listing))
		for id, entry := range listing {
			rows = append(rows, dashboardRow{
				ID:      id,
				Status:  string(entry.Status),
				Created: entry.Created,
			})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Created != rows[j].Created {
				return rows[i].Created > rows[j].Created
			}
			return rows[i].ID > rows[j].ID
		})

		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/html; charset=utf-8")
		_ = dashboardTmpl.Execute(c.Writer, rows)
	}
}

// HandleBenchDetail renders one job's results table and mode chart.
func HandleBenchDetail(store *jobstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := store.GetJob(c.Param("jobId"))
		if err != nil {
			recordError("bench_ui", observability.ErrorCodeNotFound)
			c.String(http.StatusNotFound, "unknown job id")
			return
		}

		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/html; charset=utf-8")
		_ = detailTmpl.Execute(c.Writer, report.NewJobView(job))
	}
}

// dashboardHTML lists jobs and offers a minimal submission form.
const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Benchmark jobs</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 10px; }
th { background: #f0f0f0; }
.status-running { color: #b80; }
.status-done { color: #070; }
.status-error { color: #a00; }
form { margin-top: 1.5em; }
label { display: inline-block; width: 8em; }
</style>
</head>
<body>
<h1>Benchmark jobs</h1>
<table>
<tr><th>job</th><th>status</th><th>created</th></tr>
{{range .}}
<tr>
<td><a href="/v1/bench/ui/{{.ID}}">{{.ID}}</a></td>
<td class="status-{{.Status}}">{{.Status}}</td>
<td>{{.Created}}</td>
</tr>
{{else}}
<tr><td colspan="3">No jobs yet.</td></tr>
{{end}}
</table>

<h2>New benchmark</h2>
<form method="post" action="/v1/bench/ui/new">
<label>modes</label><input name="modes" value="hybrid"><br>
<label>instances</label><input name="instances" placeholder="all"><br>
<label>time limit (s)</label><input name="time_limit" value="30"><br>
<label>backend</label><input name="backend"><br>
<input type="hidden" name="type" value="qaplib">
<button type="submit">Run</button>
</form>
</body>
</html>
`

// detailHTML renders one job: status, mode bars, results table. It shares
// the view model with the static report pages.
const detailHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Job {{.Job.ID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-top: 1em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #f0f0f0; }
td:first-child, th:first-child { text-align: left; }
.bar { background: #4a7db5; height: 18px; display: inline-block; }
.barrow { margin: 4px 0; font-size: 0.9em; }
.err { color: #a00; }
.status-running { color: #b80; }
.status-done { color: #070; }
.status-error { color: #a00; }
</style>
{{if eq .Job.Status "running"}}<meta http-equiv="refresh" content="3">{{end}}
</head>
<body>
<p><a href="/v1/bench/ui">&larr; all jobs</a></p>
<h1>Job {{.Job.ID}}</h1>
<p>Status: <span class="status-{{.Job.Status}}">{{.Job.Status}}</span> &middot; created {{.Job.CreatedAt}}
&middot; <a href="/v1/bench/{{.Job.ID}}/csv">CSV</a></p>
{{if .Job.Error}}<p class="err">{{.Job.Error}}</p>{{end}}

{{if .ModeBars}}
<h2>Average objective by mode</h2>
{{range .ModeBars}}
<div class="barrow">{{.Mode}} ({{.Count}} runs, avg {{printf "%.2f" .Avg}}, {{printf "%.2fs" .AvgSolve}})<br>
<span class="bar" style="width: {{.WidthPct}}%"></span></div>
{{end}}
{{end}}

{{if .Job.Results}}
<h2>Results</h2>
<table>
<tr><th>instance</th><th>n</th><th>mode</th><th>objective</th><th>solve_time</th><th>bound</th><th>bound_gap</th><th>gap %</th><th>error</th></tr>
{{range .Job.Results}}
<tr>
<td>{{.Instance}}</td>
<td>{{.N}}</td>
<td>{{.Mode}}</td>
<td>{{opt 4 .Objective}}</td>
<td>{{printf "%.3f" .SolveTime}}</td>
<td>{{opt 4 .Bound}}</td>
<td>{{opt 4 .BoundGap}}</td>
<td>{{opt 4 .BoundGapPct}}</td>
<td class="err">{{.Error}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`
