// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/librex-ai/qapbench/services/orchestrator/datatypes"
	"github.com/librex-ai/qapbench/services/orchestrator/qaplib"
	"github.com/librex-ai/qapbench/services/orchestrator/runner"
	"github.com/librex-ai/qapbench/services/orchestrator/solver"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	benchBackendURL string
	benchDataDir    string
	benchModes      string // comma-separated solver modes
	benchInstances  string // comma-separated instance name filter
	benchTimeLimit  float64
	benchWorkers    int
	benchJSONOutput bool // full job payload as JSON instead of CSV
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a one-shot QAPLIB benchmark without the server",
	Long: `Runs a QAPLIB benchmark sweep directly against a solver backend.

Instances are discovered in the data directory, each is solved in every
requested mode, and the results are written to stdout as CSV (or JSON
with --json).

Examples:
  qapbench bench --data-dir ./data/qaplib
  qapbench bench --modes hybrid,fft --instances nug,tai --json
  qapbench bench --backend-url http://localhost:8000 --workers 4`,
	RunE: runBenchCommand,
}

func init() {
	benchCmd.Flags().StringVar(&benchBackendURL, "backend-url", "",
		"Solver backend base URL (default from QAPFLOW_SERVICE_URL)")
	benchCmd.Flags().StringVar(&benchDataDir, "data-dir", "./data/qaplib",
		"QAPLIB instance directory")
	benchCmd.Flags().StringVar(&benchModes, "modes", datatypes.DefaultMode,
		"Comma-separated solver modes")
	benchCmd.Flags().StringVar(&benchInstances, "instances", "",
		"Comma-separated instance name filter (substring match)")
	benchCmd.Flags().Float64Var(&benchTimeLimit, "time-limit", 0,
		"Per-solve time limit in seconds (default 30)")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 1,
		"Concurrent solves")
	benchCmd.Flags().BoolVar(&benchJSONOutput, "json", false,
		"Emit results and summary as JSON instead of CSV")
	rootCmd.AddCommand(benchCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runBenchCommand(cmd *cobra.Command, args []string) error {
	req := datatypes.BenchRequest{
		Type:      datatypes.BenchTypeQAPLIB,
		Modes:     datatypes.ParseModeList(benchModes),
		Instances: benchInstances,
		TimeLimit: benchTimeLimit,
		DataDir:   benchDataDir,
		Workers:   benchWorkers,
	}
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return err
	}

	instances, err := qaplib.Discover(req.DataDir, req.Instances)
	if err != nil {
		return fmt.Errorf("discovering instances in %s: %w", req.DataDir, err)
	}
	if len(instances) == 0 {
		return fmt.Errorf("no instances matched in %s", req.DataDir)
	}

	var solverOpts []solver.Option
	if benchBackendURL != "" {
		solverOpts = append(solverOpts, solver.WithBaseURL(benchBackendURL))
	}
	r := runner.New(solver.NewHTTPSolver(solverOpts...))

	results, summary := r.Run(context.Background(), instances, req)

	if benchJSONOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"results": results,
			"summary": summary,
		})
	}
	return writeResultsCSV(os.Stdout, results)
}

func writeResultsCSV(out *os.File, results []datatypes.ResultRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"instance", "n", "mode", "objective",
		"solve_time", "bound", "bound_gap", "bound_gap_pct", "error"}); err != nil {
		return err
	}
	for _, rec := range results {
		row := []string{
			rec.Instance,
			strconv.Itoa(rec.N),
			rec.Mode,
			optCSV(rec.Objective),
			strconv.FormatFloat(rec.SolveTime, 'g', -1, 64),
			optCSV(rec.Bound),
			optCSV(rec.BoundGap),
			optCSV(rec.BoundGapPct),
			rec.Error,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func optCSV(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
