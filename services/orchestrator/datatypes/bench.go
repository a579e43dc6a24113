// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the orchestrator service.
//
// This file contains request types for asynchronous benchmark jobs.
// For synchronous solve types, see solve.go; for job records, see job.go.
package datatypes

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxModesPerRequest caps the number of solver modes in one benchmark
	// request. Each mode multiplies the instance workload.
	MaxModesPerRequest = 16

	// MaxInstanceFilterBytes caps the instance filter string size.
	MaxInstanceFilterBytes = 1024

	// MaxBenchWorkers caps the runner worker pool size.
	MaxBenchWorkers = 64

	// DefaultTimeLimitSeconds is the per-solve time budget applied when a
	// request omits time_limit.
	DefaultTimeLimitSeconds = 30.0

	// DefaultMode is the solver mode used when a request omits modes.
	DefaultMode = "hybrid"

	// BenchTypeQAPLIB is the only supported benchmark family.
	BenchTypeQAPLIB = "qaplib"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// benchValidate is the validator instance for benchmark datatypes.
// Initialized in init() with custom validators.
var benchValidate *validator.Validate

var modeSlugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

func init() {
	benchValidate = validator.New()
	_ = benchValidate.RegisterValidation("modeslug", validateModeSlug)
}

// validateModeSlug validates that a mode name is a lowercase slug.
//
// Mode names are forwarded verbatim to solver backends and embedded in
// summary keys and CSV rows, so they are restricted to a safe character set.
func validateModeSlug(fl validator.FieldLevel) bool {
	return modeSlugPattern.MatchString(fl.Field().String())
}

// =============================================================================
// Mode List
// =============================================================================

// ModeList is a list of solver mode names.
//
// # Description
//
// Benchmark requests may carry modes either as a JSON array
// (["hybrid","nesterov"]) or as a comma-separated string
// ("hybrid,nesterov"), the latter being what HTML forms submit.
// ModeList normalizes both shapes on unmarshal.
type ModeList []string

// UnmarshalJSON accepts either a JSON array of strings or a single
// comma-separated string. Empty entries are dropped, surrounding
// whitespace is trimmed.
func (m *ModeList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		*m = normalizeModes(asList)
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("modes must be a string or array of strings")
	}
	*m = ParseModeList(asString)
	return nil
}

// ParseModeList splits a comma-separated mode string into a normalized
// ModeList. Entries are trimmed and empties dropped.
func ParseModeList(s string) ModeList {
	return normalizeModes(strings.Split(s, ","))
}

func normalizeModes(raw []string) ModeList {
	out := make(ModeList, 0, len(raw))
	for _, m := range raw {
		m = strings.TrimSpace(strings.ToLower(m))
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// =============================================================================
// Benchmark Request
// =============================================================================

// BenchRequest is the payload for POST /v1/bench.
//
// # Description
//
// Describes one asynchronous benchmark job: which benchmark family to run,
// which solver modes, an optional instance filter, and solver tuning knobs.
// All fields other than Type are optional with defaults applied by
// ApplyDefaults.
//
// # Fields
//
//   - Type: Benchmark family. Only "qaplib" is supported.
//   - Modes: Solver modes to run per instance. Default: ["hybrid"].
//   - Instances: Comma-separated, case-insensitive substring filter
//     matched against instance names. Empty means all instances.
//   - TimeLimit: Per-solve time budget in seconds. Default: 30.
//   - Backend: Optional backend hint forwarded to the solver adapter.
//   - RobustEps: Robustness epsilon, forwarded to the adapter when > 0.
//   - DataDir: Instance directory override. Falls back to the server's
//     configured data directory when empty.
//   - Workers: Runner parallelism. 0 or 1 means sequential execution.
type BenchRequest struct {
	Type      string   `json:"type" validate:"required"`
	Modes     ModeList `json:"modes,omitempty" validate:"max=16,dive,modeslug"`
	Instances string   `json:"instances,omitempty"`
	TimeLimit float64  `json:"time_limit,omitempty" validate:"gte=0,lte=86400"`
	Backend   string   `json:"backend,omitempty"`
	RobustEps float64  `json:"robust_eps,omitempty" validate:"gte=0"`
	DataDir   string   `json:"data_dir,omitempty"`
	Workers   int      `json:"workers,omitempty" validate:"gte=0,lte=64"`
}

// ApplyDefaults fills zero-valued optional fields with their defaults.
func (r *BenchRequest) ApplyDefaults() {
	if len(r.Modes) == 0 {
		r.Modes = ModeList{DefaultMode}
	}
	if r.TimeLimit == 0 {
		r.TimeLimit = DefaultTimeLimitSeconds
	}
}

// Validate checks structural validity of the request. It does not check
// that Type is supported or that DataDir resolves; the scheduler owns
// those decisions.
func (r *BenchRequest) Validate() error {
	if len(r.Instances) > MaxInstanceFilterBytes {
		return fmt.Errorf("instances filter exceeds %d bytes", MaxInstanceFilterBytes)
	}
	if err := benchValidate.Struct(r); err != nil {
		return err
	}
	return nil
}

// BenchRequestFromForm builds a BenchRequest from HTML form fields.
//
// Numeric fields that fail to parse are left at their zero value so
// ApplyDefaults can fill them.
func BenchRequestFromForm(get func(string) string) BenchRequest {
	req := BenchRequest{
		Type:      strings.TrimSpace(get("type")),
		Modes:     ParseModeList(get("modes")),
		Instances: strings.TrimSpace(get("instances")),
		Backend:   strings.TrimSpace(get("backend")),
		DataDir:   strings.TrimSpace(get("data_dir")),
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(get("time_limit")), 64); err == nil {
		req.TimeLimit = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(get("robust_eps")), 64); err == nil {
		req.RobustEps = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(get("workers"))); err == nil {
		req.Workers = v
	}
	if req.Type == "" {
		req.Type = BenchTypeQAPLIB
	}
	return req
}
