// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/librex-ai/qapbench/services/orchestrator/handlers"
	"github.com/librex-ai/qapbench/services/orchestrator/jobstore"
	"github.com/librex-ai/qapbench/services/orchestrator/middleware"
	"github.com/librex-ai/qapbench/services/orchestrator/scheduler"
	"github.com/librex-ai/qapbench/services/orchestrator/solver"
)

// RouteDeps carries everything the HTTP surface needs. Handlers get
// their dependencies injected here rather than reaching for globals.
type RouteDeps struct {
	Store          *jobstore.Store
	Scheduler      *scheduler.Scheduler
	Solver         solver.Solver
	DataDir        string
	SolveTimeout   time.Duration
	MaxBodyBytes   int64
	APIToken       string
	RateLimitRPS   float64
	RateLimitBurst int
	EnableMetrics  bool
	ReportsDir     string
}

func SetupRoutes(router *gin.Engine, deps RouteDeps) {
	router.Use(middleware.RequestID())
	if deps.MaxBodyBytes > 0 {
		router.Use(middleware.BodyLimit(deps.MaxBodyBytes))
	}

	router.GET("/health", handlers.HealthCheck(deps.DataDir))
	if deps.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if deps.ReportsDir != "" {
		router.StaticFS("/reports", http.Dir(deps.ReportsDir))
	}

	// Friendly redirect to the dashboard.
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/v1/bench/ui")
	})

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.BearerAuth(deps.APIToken))
	if deps.RateLimitRPS > 0 {
		v1.Use(middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst))
	}
	{
		v1.POST("/solve", handlers.HandleSolve(deps.Solver, deps.SolveTimeout))

		bench := v1.Group("/bench")
		{
			bench.POST("", handlers.HandleBenchStart(deps.Scheduler))
			bench.GET("/summary", handlers.HandleBenchSummary(deps.Store))
			bench.GET("/:jobId", handlers.HandleBenchGet(deps.Store))
			bench.GET("/:jobId/csv", handlers.HandleBenchCSV(deps.Store))
			// Browser-facing routes. POSTs here answer with redirects
			// instead of JSON so plain HTML forms work.
			bench.GET("/ui", handlers.HandleBenchDashboard(deps.Store))
			bench.POST("/ui/new", handlers.HandleBenchUINew(deps.Scheduler))
			bench.GET("/ui/:jobId", handlers.HandleBenchDetail(deps.Store))
		}
	}
}
