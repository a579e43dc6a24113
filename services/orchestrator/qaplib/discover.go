// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package qaplib discovers QAPLIB problem instances on disk.
//
// Parsing of the full instance format is the solver backends' concern;
// this package only lists instance files and sniffs the problem size from
// the file header so the orchestrator can name, filter, and bucket them.
package qaplib

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Instance is one discovered problem input.
type Instance struct {
	// Name is the filename stem, e.g. "tai20a" for tai20a.dat.
	Name string

	// N is the problem size read from the file header, 0 if unreadable.
	N int

	// Path is the absolute or dir-relative path to the instance file.
	Path string
}

// Discover lists QAPLIB instance files (*.dat, case-insensitive) under
// dataDir, sorted by name.
//
// filter is a comma-separated list of substrings matched case-insensitively
// against instance names; an instance is kept when it matches any entry.
// An empty filter keeps everything.
func Discover(dataDir, filter string) ([]Instance, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list instance directory %s: %w", dataDir, err)
	}

	needles := filterNeedles(filter)

	var instances []Instance
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".dat") {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if !matchesAny(stem, needles) {
			continue
		}
		path := filepath.Join(dataDir, name)
		instances = append(instances, Instance{
			Name: stem,
			N:    ReadSize(path),
			Path: path,
		})
	}

	sort.Slice(instances, func(i, j int) bool { return instances[i].Name < instances[j].Name })
	return instances, nil
}

// ReadSize sniffs the problem size from an instance file.
//
// QAPLIB files start with the dimension n as the first integer token.
// Returns 0 when the file cannot be read or does not start with an integer;
// a zero size lands the instance in the "small" summary bucket rather than
// failing discovery.
func ReadSize(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	if !scanner.Scan() {
		return 0
	}
	n, err := strconv.Atoi(scanner.Text())
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func filterNeedles(filter string) []string {
	var needles []string
	for _, part := range strings.Split(filter, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			needles = append(needles, part)
		}
	}
	return needles
}

func matchesAny(name string, needles []string) bool {
	if len(needles) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, needle := range needles {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}
