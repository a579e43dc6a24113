// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package history persists completed benchmark jobs as an append-only
// JSON-lines log.
//
// The log is a best-effort side effect: the scheduler logs append failures
// and moves on, so a full disk can never affect a job's recorded status.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/librex-ai/qapbench/services/orchestrator/datatypes"
)

// historyFileMode restricts the log to owner read/write. The log names
// data directories and backend hints, which deployment operators may not
// want world-readable.
const historyFileMode = 0600

// Record is one JSON line in the history log.
type Record struct {
	JobID       string                  `json:"job_id"`
	CompletedAt string                  `json:"completed_at"`
	Params      datatypes.BenchRequest  `json:"params"`
	Summary     *datatypes.BenchSummary `json:"summary"`
}

// Logger appends history records to a single file.
//
// # Thread Safety
//
// Append and Close are safe for concurrent use; file writes are
// serialized via mutex.
//
// # Limitations
//
//   - Log rotation must be handled externally (e.g. logrotate).
//   - Each Append flushes, trading throughput for durability.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
	path string
}

// NewLogger opens (creating if needed) the history log in append mode.
// Parent directories are created on demand.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, historyFileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open history log %s: %w", path, err)
	}
	return &Logger{
		file: file,
		w:    bufio.NewWriter(file),
		path: path,
	}, nil
}

// Path returns the log file path.
func (l *Logger) Path() string { return l.path }

// Append writes one record as a JSON line and flushes.
func (l *Logger) Append(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode history record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.w.Write(line); err != nil {
		return fmt.Errorf("failed to write history record: %w", err)
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write history record: %w", err)
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush history log: %w", err)
	}
	return nil
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.w.Flush(); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("failed to flush history log on close: %w", err)
	}
	return l.file.Close()
}
