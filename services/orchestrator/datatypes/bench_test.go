// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test: ModeList
// =============================================================================

// TestModeList_UnmarshalJSON_Array verifies the JSON array form.
func TestModeList_UnmarshalJSON_Array(t *testing.T) {
	var m ModeList
	err := json.Unmarshal([]byte(`["hybrid","nesterov"]`), &m)
	require.NoError(t, err)
	assert.Equal(t, ModeList{"hybrid", "nesterov"}, m)
}

// TestModeList_UnmarshalJSON_CommaString verifies the form-style string
// shape, including trimming and case folding.
func TestModeList_UnmarshalJSON_CommaString(t *testing.T) {
	var m ModeList
	err := json.Unmarshal([]byte(`"Hybrid, FFT ,,nesterov"`), &m)
	require.NoError(t, err)
	assert.Equal(t, ModeList{"hybrid", "fft", "nesterov"}, m)
}

// TestModeList_UnmarshalJSON_Invalid verifies non-string shapes are rejected.
func TestModeList_UnmarshalJSON_Invalid(t *testing.T) {
	var m ModeList
	err := json.Unmarshal([]byte(`{"mode":"hybrid"}`), &m)
	assert.Error(t, err)
}

func TestParseModeList(t *testing.T) {
	assert.Equal(t, ModeList{"hybrid"}, ParseModeList("hybrid"))
	assert.Equal(t, ModeList{"a", "b"}, ParseModeList(" A , b "))
	assert.Empty(t, ParseModeList(""))
	assert.Empty(t, ParseModeList(" , , "))
}

// =============================================================================
// Test: BenchRequest defaults and validation
// =============================================================================

// TestBenchRequest_ApplyDefaults verifies modes and time limit defaults.
func TestBenchRequest_ApplyDefaults(t *testing.T) {
	req := BenchRequest{Type: BenchTypeQAPLIB}
	req.ApplyDefaults()

	assert.Equal(t, ModeList{DefaultMode}, req.Modes)
	assert.Equal(t, DefaultTimeLimitSeconds, req.TimeLimit)
}

// TestBenchRequest_ApplyDefaults_PreservesExplicit verifies explicit
// values are not overwritten.
func TestBenchRequest_ApplyDefaults_PreservesExplicit(t *testing.T) {
	req := BenchRequest{
		Type:      BenchTypeQAPLIB,
		Modes:     ModeList{"fft"},
		TimeLimit: 5,
	}
	req.ApplyDefaults()

	assert.Equal(t, ModeList{"fft"}, req.Modes)
	assert.Equal(t, 5.0, req.TimeLimit)
}

func TestBenchRequest_Validate_OK(t *testing.T) {
	req := BenchRequest{Type: BenchTypeQAPLIB}
	req.ApplyDefaults()
	assert.NoError(t, req.Validate())
}

// TestBenchRequest_Validate_Rejections covers the structural limits:
// missing type, bad mode slugs, oversized mode and filter lists, and
// out-of-range numeric knobs.
func TestBenchRequest_Validate_Rejections(t *testing.T) {
	tooManyModes := make(ModeList, MaxModesPerRequest+1)
	for i := range tooManyModes {
		tooManyModes[i] = "m"
	}

	tests := []struct {
		name string
		req  BenchRequest
	}{
		{"missing type", BenchRequest{}},
		{"uppercase mode", BenchRequest{Type: BenchTypeQAPLIB, Modes: ModeList{"Hybrid"}}},
		{"mode with slash", BenchRequest{Type: BenchTypeQAPLIB, Modes: ModeList{"a/b"}}},
		{"too many modes", BenchRequest{Type: BenchTypeQAPLIB, Modes: tooManyModes}},
		{"negative time limit", BenchRequest{Type: BenchTypeQAPLIB, TimeLimit: -1}},
		{"huge time limit", BenchRequest{Type: BenchTypeQAPLIB, TimeLimit: 100000}},
		{"negative eps", BenchRequest{Type: BenchTypeQAPLIB, RobustEps: -0.1}},
		{"too many workers", BenchRequest{Type: BenchTypeQAPLIB, Workers: MaxBenchWorkers + 1}},
		{"oversized filter", BenchRequest{
			Type:      BenchTypeQAPLIB,
			Instances: strings.Repeat("x", MaxInstanceFilterBytes+1),
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.req.Validate())
		})
	}
}

// Note that ModeList normalization lowercases before validation in the
// JSON path, so the uppercase rejection above only fires for requests
// constructed programmatically.

// =============================================================================
// Test: Form decoding
// =============================================================================

// TestBenchRequestFromForm verifies form field mapping and defaulting.
func TestBenchRequestFromForm(t *testing.T) {
	form := map[string]string{
		"modes":      "hybrid, fft",
		"instances":  " nug ",
		"time_limit": "12.5",
		"workers":    "4",
	}
	req := BenchRequestFromForm(func(k string) string { return form[k] })

	assert.Equal(t, BenchTypeQAPLIB, req.Type, "empty type should default")
	assert.Equal(t, ModeList{"hybrid", "fft"}, req.Modes)
	assert.Equal(t, "nug", req.Instances)
	assert.Equal(t, 12.5, req.TimeLimit)
	assert.Equal(t, 4, req.Workers)
}

// TestBenchRequestFromForm_BadNumbers verifies unparseable numerics stay
// zero so ApplyDefaults can fill them.
func TestBenchRequestFromForm_BadNumbers(t *testing.T) {
	form := map[string]string{"time_limit": "soon", "workers": "many"}
	req := BenchRequestFromForm(func(k string) string { return form[k] })

	assert.Zero(t, req.TimeLimit)
	assert.Zero(t, req.Workers)

	req.ApplyDefaults()
	assert.Equal(t, DefaultTimeLimitSeconds, req.TimeLimit)
}
