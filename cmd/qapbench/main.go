// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command qapbench is the operator CLI for the qapbench stack.
//
// It can run the orchestrator server (qapbench serve) or execute a
// one-shot benchmark against a solver backend without the server
// (qapbench bench).
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "qapbench",
	Short: "Run and benchmark QAP solver backends",
	Long: `qapbench orchestrates Quadratic Assignment Problem benchmarks.

It drives a qapflow-compatible solver backend over HTTP, runs QAPLIB
instance sweeps across solver modes, and serves results as JSON, CSV,
and HTML.`,
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
