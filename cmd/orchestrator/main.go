// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command orchestrator starts the qapbench orchestrator HTTP server.
//
// This is the main entry point for the containerized service. It reads
// configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - ORCHESTRATOR_PORT: HTTP server port (default: 12210)
//   - QAPFLOW_SERVICE_URL: solver backend base URL (optional)
//   - QAPLIB_DATA_DIR: QAPLIB instance directory (default: ./data/qaplib)
//   - BENCH_HISTORY_ENABLED: "true" to append finished jobs to a JSONL log
//   - BENCH_HISTORY_PATH: history log file (default: ./logs/bench_history.jsonl)
//   - BENCH_REPORTS_ENABLED: "true" to write static HTML reports
//   - BENCH_REPORTS_DIR: report output directory (default: ./reports)
//   - BENCH_WORKERS: default per-job solve concurrency (default: 1)
//   - API_TOKEN: bearer token required on /v1 when set
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: qapbench-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o orchestrator ./cmd/orchestrator
//
//	# Run
//	./orchestrator
//
//	# Or via container
//	podman-compose up orchestrator
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/librex-ai/qapbench/services/orchestrator"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := orchestrator.Config{
		Port:           getEnvInt("ORCHESTRATOR_PORT", 12210),
		BackendURL:     os.Getenv("QAPFLOW_SERVICE_URL"),
		DataDir:        getEnvString("QAPLIB_DATA_DIR", "./data/qaplib"),
		HistoryEnabled: getEnvBool("BENCH_HISTORY_ENABLED", false),
		HistoryPath:    getEnvString("BENCH_HISTORY_PATH", "./logs/bench_history.jsonl"),
		ReportsEnabled: getEnvBool("BENCH_REPORTS_ENABLED", false),
		ReportsDir:     getEnvString("BENCH_REPORTS_DIR", "./reports"),
		Workers:        getEnvInt("BENCH_WORKERS", 1),
		APIToken:       os.Getenv("API_TOKEN"),
		OTelEndpoint:   getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "qapbench-otel-collector:4317"),
	}

	slog.Info("Starting orchestrator",
		"port", cfg.Port,
		"backend_url", cfg.BackendURL,
		"data_dir", cfg.DataDir,
	)

	svc, err := orchestrator.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Orchestrator error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
