// Package store declares interfaces for reading the persisted domain catalog.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("catalog record not found")

// CatalogEntry models one row of the domains table for API responses.
type CatalogEntry struct {
	// Domain is the registrable host the entry was discovered under.
	Domain string
	// Score is the cumulative keyword relevance score.
	Score float64
	// Matches maps keyword -> occurrence count at last upsert.
	Matches map[string]int
	// Keywords lists the distinct matched keywords.
	Keywords []string
	// LastUpdated captures the most recent upsert time.
	LastUpdated time.Time
}

// CatalogRepository reads the accumulated domain catalog across runs.
type CatalogRepository interface {
	// GetDomain loads a single entry or returns ErrNotFound.
	GetDomain(ctx context.Context, domain string) (CatalogEntry, error)
	// ListDomains returns entries at or above minScore, ordered by score
	// descending, with limit/offset pagination.
	ListDomains(ctx context.Context, minScore float64, limit, offset int) ([]CatalogEntry, error)
}
