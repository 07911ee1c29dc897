// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"

	"github.com/ManuGH/timelinesink/internal/domain/timeline/model"
)

// SinkState is the part of the data sink the checker reads.
type SinkState interface {
	Closed() bool
	Snapshot() model.Snapshot
}

// SinkChecker reports the data sink unhealthy once it has been closed.
type SinkChecker struct {
	sink SinkState
}

func NewSinkChecker(sink SinkState) *SinkChecker {
	return &SinkChecker{sink: sink}
}

func (c *SinkChecker) Name() string { return "sink" }

func (c *SinkChecker) Check(_ context.Context) CheckResult {
	if c.sink.Closed() {
		return CheckResult{Status: StatusUnhealthy, Error: "sink closed"}
	}
	snap := c.sink.Snapshot()
	return CheckResult{
		Status: StatusHealthy,
		Message: fmt.Sprintf("%d clients, %d producers started, recording=%t",
			len(snap.RegisteredUI), len(snap.StartedProducers), snap.Active),
	}
}

// CatalogChecker reports unhealthy when no producer is registered.
type CatalogChecker struct {
	producers func() []model.ProducerID
}

func NewCatalogChecker(producers func() []model.ProducerID) *CatalogChecker {
	return &CatalogChecker{producers: producers}
}

func (c *CatalogChecker) Name() string { return "producers" }

func (c *CatalogChecker) Check(_ context.Context) CheckResult {
	n := len(c.producers())
	if n == 0 {
		return CheckResult{Status: StatusUnhealthy, Error: "no producers registered"}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d producers registered", n)}
}

// FileChecker checks an optional file. A missing file is degraded because
// callers fall back to built-in defaults.
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for file existence
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{name: name, path: path}
}

func (c *FileChecker) Name() string { return c.name }

func (c *FileChecker) Check(_ context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (in-memory defaults)"}
	}

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusDegraded, Message: "file not found, using defaults"}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected file, got directory"}
	}
	return CheckResult{Status: StatusHealthy, Message: "file exists"}
}
