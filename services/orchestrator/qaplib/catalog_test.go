// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package qaplib

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test: Catalog
// =============================================================================

// TestCatalog_Instances verifies listing and per-call filtering through
// the cache.
func TestCatalog_Instances(t *testing.T) {
	dir := t.TempDir()
	writeInstance(t, dir, "nug12.dat", "12\n")
	writeInstance(t, dir, "tai20a.dat", "20\n")

	cat, err := NewCatalog(dir)
	require.NoError(t, err)
	defer cat.Close()

	assert.Equal(t, dir, cat.Dir())

	all, err := cat.Instances("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := cat.Instances("tai")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "tai20a", filtered[0].Name)
}

// TestCatalog_Invalidate verifies an explicit invalidation picks up new
// files regardless of watcher delivery timing.
func TestCatalog_Invalidate(t *testing.T) {
	dir := t.TempDir()
	writeInstance(t, dir, "nug12.dat", "12\n")

	cat, err := NewCatalog(dir)
	require.NoError(t, err)
	defer cat.Close()

	first, err := cat.Instances("")
	require.NoError(t, err)
	require.Len(t, first, 1)

	writeInstance(t, dir, "tai20a.dat", "20\n")
	cat.Invalidate()

	second, err := cat.Instances("")
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

func TestCatalog_MissingDir(t *testing.T) {
	_, err := NewCatalog(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

// TestCatalog_Close_Idempotent verifies double Close is safe.
func TestCatalog_Close_Idempotent(t *testing.T) {
	cat, err := NewCatalog(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, cat.Close())
	assert.NoError(t, cat.Close())
}
