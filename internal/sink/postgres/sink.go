// Package postgres provides a Postgres-backed domain sink.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"domainscout/internal/extract"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const (
	defaultBatchSize     = 100
	defaultExistingLimit = 10000
)

// Config controls the Postgres connection pool used for domain rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Sink upserts domain records into Postgres, keyed on the domain column.
type Sink struct {
	pool          pgxPool
	table         string
	batchSize     int
	existingLimit int
}

// New creates a Postgres-backed Sink using the provided config.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "domains"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Sink{
		pool:          pool,
		table:         table,
		batchSize:     defaultBatchSize,
		existingLimit: defaultExistingLimit,
	}, nil
}

// NewWithPool constructs a sink from an existing pool (primarily for testing).
func NewWithPool(pool pgxPool, table string) (*Sink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "domains"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Sink{
		pool:          pool,
		table:         table,
		batchSize:     defaultBatchSize,
		existingLimit: defaultExistingLimit,
	}, nil
}

// Close releases the underlying pool resources.
func (s *Sink) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Upsert writes records in batches. A conflicting domain row is overwritten
// with the new score and match counts.
func (s *Sink) Upsert(ctx context.Context, records []extract.DomainRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres sink is not configured")
	}
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.upsertBatch(ctx, records[start:end], now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) upsertBatch(ctx context.Context, batch []extract.DomainRecord, now time.Time) error {
	var (
		placeholders []string
		args         []any
	)
	for i, rec := range batch {
		matchesJSON, err := json.Marshal(rec.Matches)
		if err != nil {
			return fmt.Errorf("marshal matches for %s: %w", rec.Domain, err)
		}
		keywordsJSON, err := json.Marshal(matchedKeywords(rec.Matches))
		if err != nil {
			return fmt.Errorf("marshal keywords for %s: %w", rec.Domain, err)
		}
		base := i * 5
		placeholders = append(placeholders, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, rec.Domain, rec.Score, matchesJSON, keywordsJSON, now)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (domain, score, matches, keywords, last_updated)
VALUES %s
ON CONFLICT (domain) DO UPDATE SET
	score = EXCLUDED.score,
	matches = EXCLUDED.matches,
	keywords = EXCLUDED.keywords,
	last_updated = EXCLUDED.last_updated`,
		s.table, strings.Join(placeholders, ","))

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert domains: %w", err)
	}
	extract.SinkUpserts.Add(float64(len(batch)))
	return nil
}

// ExistingDomains returns the set of domains already stored, up to the
// configured limit.
func (s *Sink) ExistingDomains(ctx context.Context) (map[string]struct{}, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("postgres sink is not configured")
	}
	query := fmt.Sprintf("SELECT domain FROM %s LIMIT $1", s.table)
	rows, err := s.pool.Query(ctx, query, s.existingLimit)
	if err != nil {
		return nil, fmt.Errorf("query existing domains: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		existing[domain] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read existing domains: %w", err)
	}
	return existing, nil
}

func matchedKeywords(matches extract.MatchCounter) []string {
	keywords := make([]string, 0, len(matches))
	for kw, count := range matches {
		if count > 0 {
			keywords = append(keywords, kw)
		}
	}
	sort.Strings(keywords)
	return keywords
}
