// Package memory provides an in-memory domain sink for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"domainscout/internal/extract"
)

// Sink keeps domain records in memory, keyed on domain.
type Sink struct {
	mu      sync.Mutex
	records map[string]extract.DomainRecord
}

// New creates an empty in-memory Sink.
func New() *Sink {
	return &Sink{records: make(map[string]extract.DomainRecord)}
}

// Upsert merges records, replacing rows with the same domain.
func (s *Sink) Upsert(_ context.Context, records []extract.DomainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.records[rec.Domain] = rec
	}
	return nil
}

// ExistingDomains returns the set of stored domains.
func (s *Sink) ExistingDomains(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := make(map[string]struct{}, len(s.records))
	for domain := range s.records {
		existing[domain] = struct{}{}
	}
	return existing, nil
}

// Records returns a copy of the stored records for assertions in tests.
func (s *Sink) Records() map[string]extract.DomainRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]extract.DomainRecord, len(s.records))
	for domain, rec := range s.records {
		out[domain] = rec
	}
	return out
}
