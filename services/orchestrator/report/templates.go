// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package report

// jobReportHTML is the static per-job report page. Bars are sized
// server-side so the page carries no scripts.
const jobReportHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Benchmark {{.Job.ID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-top: 1em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #f0f0f0; }
td:first-child, th:first-child { text-align: left; }
.bar { background: #4a7db5; height: 18px; display: inline-block; }
.barrow { margin: 4px 0; font-size: 0.9em; }
.err { color: #a00; }
.status-done { color: #070; }
.status-error { color: #a00; }
</style>
</head>
<body>
<h1>Benchmark job {{.Job.ID}}</h1>
<p>Status: <span class="status-{{.Job.Status}}">{{.Job.Status}}</span> &middot; created {{.Job.CreatedAt}}</p>
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

// indexHTML lists report pages newest first.
const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Benchmark reports</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
li { margin: 4px 0; }
.ts { color: #777; font-size: 0.85em; }
</style>
</head>
<body>
<h1>Benchmark reports</h1>
<ul>
{{range .}}
<li><a href="{{.Name}}">{{.Name}}</a> <span class="ts">{{.Modified}}</span></li>
{{else}}
<li>No reports yet.</li>
{{end}}
</ul>
</body>
</html>
`
