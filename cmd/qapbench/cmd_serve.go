// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/librex-ai/qapbench/services/orchestrator"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	servePort       int
	serveBackendURL string
	serveDataDir    string
	serveConfigPath string // optional YAML config, flags win over file values
	serveHistory    bool
	serveReports    bool
	serveWorkers    int
	serveAPIToken   string
	serveRateRPS    float64
)

// serveFileConfig mirrors the YAML config file layout.
type serveFileConfig struct {
	Port            int     `yaml:"port"`
	BackendURL      string  `yaml:"backend_url"`
	DataDir         string  `yaml:"data_dir"`
	SolveTimeoutSec int     `yaml:"solve_timeout_seconds"`
	HistoryEnabled  bool    `yaml:"history_enabled"`
	HistoryPath     string  `yaml:"history_path"`
	ReportsEnabled  bool    `yaml:"reports_enabled"`
	ReportsDir      string  `yaml:"reports_dir"`
	Workers         int     `yaml:"workers"`
	APIToken        string  `yaml:"api_token"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps"`
	OTelEndpoint    string  `yaml:"otel_endpoint"`
}

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the benchmark orchestrator HTTP server",
	Long: `Starts the orchestrator server.

Configuration comes from an optional YAML file plus flags; a flag set on
the command line overrides the file value.

Examples:
  qapbench serve                          # defaults, port 12210
  qapbench serve --port 8080 --reports
  qapbench serve --config qapbench.yaml`,
	RunE: runServeCommand,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"HTTP server port (default 12210)")
	serveCmd.Flags().StringVar(&serveBackendURL, "backend-url", "",
		"Solver backend base URL (default from QAPFLOW_SERVICE_URL)")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "",
		"QAPLIB instance directory (default ./data/qaplib)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "",
		"YAML config file (optional)")
	serveCmd.Flags().BoolVar(&serveHistory, "history", false,
		"Append finished jobs to a JSONL history log")
	serveCmd.Flags().BoolVar(&serveReports, "reports", false,
		"Write static HTML reports for finished jobs")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0,
		"Default per-job solve concurrency (default 1)")
	serveCmd.Flags().StringVar(&serveAPIToken, "api-token", "",
		"Require this bearer token on /v1 endpoints")
	serveCmd.Flags().Float64Var(&serveRateRPS, "rate-limit", 0,
		"Per-IP request rate limit on /v1 (0 disables)")
	rootCmd.AddCommand(serveCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}

	svc, err := orchestrator.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	return svc.Run()
}

// buildServeConfig merges the YAML file (when given) with flags. Flags
// explicitly set on the command line take precedence.
func buildServeConfig(cmd *cobra.Command) (orchestrator.Config, error) {
	var cfg orchestrator.Config

	if serveConfigPath != "" {
		raw, err := os.ReadFile(serveConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("error reading config %s: %w", serveConfigPath, err)
		}
		var fc serveFileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return cfg, fmt.Errorf("error parsing config %s: %w", serveConfigPath, err)
		}
		cfg = orchestrator.Config{
			Port:           fc.Port,
			BackendURL:     fc.BackendURL,
			DataDir:        fc.DataDir,
			SolveTimeout:   time.Duration(fc.SolveTimeoutSec) * time.Second,
			HistoryEnabled: fc.HistoryEnabled,
			HistoryPath:    fc.HistoryPath,
			ReportsEnabled: fc.ReportsEnabled,
			ReportsDir:     fc.ReportsDir,
			Workers:        fc.Workers,
			APIToken:       fc.APIToken,
			RateLimitRPS:   fc.RateLimitRPS,
			OTelEndpoint:   fc.OTelEndpoint,
		}
	}

	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("backend-url") {
		cfg.BackendURL = serveBackendURL
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = serveDataDir
	}
	if cmd.Flags().Changed("history") {
		cfg.HistoryEnabled = serveHistory
	}
	if cmd.Flags().Changed("reports") {
		cfg.ReportsEnabled = serveReports
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = serveWorkers
	}
	if cmd.Flags().Changed("api-token") {
		cfg.APIToken = serveAPIToken
	}
	if cmd.Flags().Changed("rate-limit") {
		cfg.RateLimitRPS = serveRateRPS
	}

	return cfg, nil
}
