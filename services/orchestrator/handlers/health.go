// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin HTTP handlers for the orchestrator.
package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/librex-ai/qapbench/services/orchestrator/solver"
)

// HealthCheck reports liveness and the capabilities this deployment has
// configured: whether a solver backend URL resolves and whether a data
// directory is available for benchmark jobs.
func HealthCheck(dataDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataDirOK := false
		if dataDir != "" {
			if info, err := os.Stat(dataDir); err == nil && info.IsDir() {
				dataDirOK = true
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"service":     "qapbench-orchestrator",
			"backend_url": solver.ResolveBackendURL(""),
			"data_dir":    dataDir,
			"data_dir_ok": dataDirOK,
		})
	}
}
