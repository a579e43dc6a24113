// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package qaplib

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// Instance Catalog
// =============================================================================

// Catalog caches the instance listing for a data directory.
//
// # Description
//
// Discovery hits the filesystem once per directory change rather than once
// per benchmark job. A fsnotify watcher on the data directory invalidates
// the cache whenever files are created, removed, or renamed; the next
// Instances call re-lists. Size sniffing (ReadSize) runs only on re-list.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
//
// # Limitations
//
//   - The watcher is non-recursive; instances must live directly in the
//     data directory, which matches the QAPLIB layout.
//   - On watcher errors the catalog degrades to caching forever; callers
//     can force a re-list with Invalidate.
type Catalog struct {
	dir string

	mu     sync.Mutex
	cached []Instance
	valid  bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewCatalog creates a catalog for dataDir and starts the directory watcher.
//
// The directory must exist; a missing directory is a configuration error
// surfaced at startup rather than per-job.
func NewCatalog(dataDir string) (*Catalog, error) {
	c := &Catalog{
		dir:  dataDir,
		done: make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create data directory watcher: %w", err)
	}
	if err := watcher.Add(dataDir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch data directory %s: %w", dataDir, err)
	}
	c.watcher = watcher

	go c.watchLoop()
	return c, nil
}

// Dir returns the watched data directory.
func (c *Catalog) Dir() string { return c.dir }

// Instances returns the discovered instances matching filter.
//
// The unfiltered listing is cached; the substring filter is applied per
// call since it is request-specific.
func (c *Catalog) Instances(filter string) ([]Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid {
		listed, err := Discover(c.dir, "")
		if err != nil {
			return nil, err
		}
		c.cached = listed
		c.valid = true
		slog.Debug("instance catalog refreshed", "dir", c.dir, "count", len(listed))
	}

	needles := filterNeedles(filter)
	out := make([]Instance, 0, len(c.cached))
	for _, inst := range c.cached {
		if matchesAny(inst.Name, needles) {
			out = append(out, inst)
		}
	}
	return out, nil
}

// Invalidate drops the cached listing; the next Instances call re-lists.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// Close stops the watcher goroutine and releases the fsnotify handle.
func (c *Catalog) Close() error {
	select {
	case <-c.done:
		return nil // already closed
	default:
	}
	close(c.done)
	return c.watcher.Close()
}

// watchLoop invalidates the cache on directory mutations.
func (c *Catalog) watchLoop() {
	for {
		select {
		case <-c.done:
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				slog.Debug("data directory changed, invalidating catalog",
					"dir", c.dir, "event", event.Op.String(), "name", event.Name)
				c.Invalidate()
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("data directory watcher error", "dir", c.dir, "error", err)
		}
	}
}
