// Package memory provides an in-memory run store for development and tests.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"domainscout/internal/extract"
)

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// ErrReportNotFound is returned when a run has no recorded report yet.
var ErrReportNotFound = errors.New("report not found")

// RunStore keeps run metadata and reports in memory.
type RunStore struct {
	mu      sync.RWMutex
	runs    map[string]extract.Run
	reports map[string]extract.RunReport
}

// NewRunStore constructs a RunStore.
func NewRunStore() *RunStore {
	return &RunStore{
		runs:    make(map[string]extract.Run),
		reports: make(map[string]extract.RunReport),
	}
}

// CreateRun stores a new run in queued status.
func (s *RunStore) CreateRun(_ context.Context, run extract.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return errors.New("run already exists")
	}
	s.runs[run.ID] = run
	return nil
}

// UpdateRunStatus updates the status and counters for a run.
func (s *RunStore) UpdateRunStatus(
	_ context.Context,
	runID string,
	status extract.RunStatus,
	errText string,
	counters extract.RunCounters,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	run.Status = status
	run.ErrorText = errText
	run.Counters = counters
	now := time.Now().UTC()
	if status == extract.RunStatusRunning && run.Started == nil {
		run.Started = pointerTime(now)
	}
	if status.Terminal() {
		run.Finished = pointerTime(now)
	}
	s.runs[runID] = run
	return nil
}

// RecordReport stores the outcome of a run.
func (s *RunStore) RecordReport(_ context.Context, runID string, report extract.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; !ok {
		return ErrRunNotFound
	}
	s.reports[runID] = report
	return nil
}

// GetRun fetches a run by ID.
func (s *RunStore) GetRun(_ context.Context, runID string) (extract.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return extract.Run{}, ErrRunNotFound
	}
	return run, nil
}

// GetReport fetches the report recorded for a run.
func (s *RunStore) GetReport(_ context.Context, runID string) (extract.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[runID]
	if !ok {
		return extract.RunReport{}, ErrReportNotFound
	}
	return report, nil
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
