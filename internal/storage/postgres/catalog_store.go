// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"domainscout/internal/store"
)

type pgxQuerier interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// CatalogStore implements store.CatalogRepository using Postgres.
type CatalogStore struct {
	pool pgxQuerier
}

// NewCatalogStore creates a new CatalogStore.
func NewCatalogStore(ctx context.Context, dsn string) (*CatalogStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &CatalogStore{pool: pool}, nil
}

// NewCatalogStoreWithPool wraps an existing pool; tests use this with pgxmock.
func NewCatalogStoreWithPool(pool pgxQuerier) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// Close closes the underlying connection pool.
func (s *CatalogStore) Close() {
	s.pool.Close()
}

// GetDomain loads a single catalog entry or returns store.ErrNotFound.
func (s *CatalogStore) GetDomain(ctx context.Context, domain string) (store.CatalogEntry, error) {
	query := `
		SELECT domain, score, matches, keywords, last_updated
		FROM domains
		WHERE domain = $1;
	`
	row := s.pool.QueryRow(ctx, query, domain)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.CatalogEntry{}, store.ErrNotFound
		}
		return store.CatalogEntry{}, fmt.Errorf("failed to load domain: %w", err)
	}
	return entry, nil
}

// ListDomains returns entries at or above minScore, highest score first.
func (s *CatalogStore) ListDomains(
	ctx context.Context,
	minScore float64,
	limit, offset int,
) ([]store.CatalogEntry, error) {
	query := `
		SELECT domain, score, matches, keywords, last_updated
		FROM domains
		WHERE score >= $1
		ORDER BY score DESC, domain ASC
		LIMIT $2 OFFSET $3;
	`
	rows, err := s.pool.Query(ctx, query, minScore, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var entries []store.CatalogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan domain row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domain rows: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (store.CatalogEntry, error) {
	var entry store.CatalogEntry
	var matchesJSON, keywordsJSON []byte
	if err := row.Scan(&entry.Domain, &entry.Score, &matchesJSON, &keywordsJSON, &entry.LastUpdated); err != nil {
		return store.CatalogEntry{}, err
	}
	if len(matchesJSON) > 0 {
		if err := json.Unmarshal(matchesJSON, &entry.Matches); err != nil {
			return store.CatalogEntry{}, fmt.Errorf("decode matches: %w", err)
		}
	}
	if len(keywordsJSON) > 0 {
		if err := json.Unmarshal(keywordsJSON, &entry.Keywords); err != nil {
			return store.CatalogEntry{}, fmt.Errorf("decode keywords: %w", err)
		}
	}
	return entry, nil
}
