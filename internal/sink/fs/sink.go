// Package fs provides a file-backed domain sink for local runs.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"domainscout/internal/extract"
)

// Sink stores domain records as a JSON array in a single file. Upserts merge
// on domain, replacing the previous row.
type Sink struct {
	mu   sync.Mutex
	path string
}

// New creates a file-backed Sink writing to path.
func New(path string) (*Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("fs sink: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("fs sink: creating directory: %w", err)
		}
	}
	return &Sink{path: path}, nil
}

// Upsert merges records into the file, keyed on domain.
func (s *Sink) Upsert(_ context.Context, records []extract.DomainRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, order, err := s.load()
	if err != nil {
		return err
	}

	for _, rec := range records {
		if _, exists := current[rec.Domain]; !exists {
			order = append(order, rec.Domain)
		}
		current[rec.Domain] = rec
	}

	merged := make([]extract.DomainRecord, 0, len(order))
	for _, domain := range order {
		merged = append(merged, current[domain])
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("fs sink: encoding records: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("fs sink: writing %s: %w", s.path, err)
	}
	extract.SinkUpserts.Add(float64(len(records)))
	return nil
}

// ExistingDomains returns the domains currently stored in the file.
func (s *Sink) ExistingDomains(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _, err := s.load()
	if err != nil {
		return nil, err
	}
	existing := make(map[string]struct{}, len(current))
	for domain := range current {
		existing[domain] = struct{}{}
	}
	return existing, nil
}

func (s *Sink) load() (map[string]extract.DomainRecord, []string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]extract.DomainRecord{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("fs sink: reading %s: %w", s.path, err)
	}

	var records []extract.DomainRecord
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, nil, fmt.Errorf("fs sink: decoding %s: %w", s.path, err)
		}
	}

	current := make(map[string]extract.DomainRecord, len(records))
	order := make([]string, 0, len(records))
	for _, rec := range records {
		if _, exists := current[rec.Domain]; !exists {
			order = append(order, rec.Domain)
		}
		current[rec.Domain] = rec
	}
	return current, order, nil
}
