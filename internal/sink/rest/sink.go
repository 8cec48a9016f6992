// Package rest provides a domain sink speaking the PostgREST wire protocol,
// as exposed by hosted Postgres services.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"domainscout/internal/extract"
)

const (
	defaultBatchSize     = 100
	defaultExistingLimit = 10000
)

// Config holds connection parameters for the REST endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Table   string
	Timeout time.Duration
}

// Sink upserts domain records over the PostgREST API. Conflicts on the
// domain column merge into the existing row.
type Sink struct {
	baseURL       string
	apiKey        string
	table         string
	httpClient    *http.Client
	batchSize     int
	existingLimit int
	logger        *zap.Logger
}

// New creates a REST-backed Sink.
func New(cfg Config, logger *zap.Logger) (*Sink, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("rest sink url and api key are required")
	}
	table := cfg.Table
	if table == "" {
		table = "domains"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Sink{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		table:         table,
		httpClient:    &http.Client{Timeout: timeout},
		batchSize:     defaultBatchSize,
		existingLimit: defaultExistingLimit,
		logger:        logger,
	}, nil
}

type domainRow struct {
	Domain      string   `json:"domain"`
	Score       float64  `json:"score"`
	Matches     string   `json:"matches"`
	Keywords    []string `json:"keywords"`
	LastUpdated string   `json:"last_updated"`
}

// Upsert writes records in batches of at most 100 rows.
func (s *Sink) Upsert(ctx context.Context, records []extract.DomainRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows, err := formatRows(records)
	if err != nil {
		return err
	}

	total := (len(rows) + s.batchSize - 1) / s.batchSize
	for start, n := 0, 0; start < len(rows); start, n = start+s.batchSize, n+1 {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		s.logger.Info("uploading batch",
			zap.Int("batch", n+1),
			zap.Int("batches", total),
			zap.Int("rows", end-start))
		if err := s.upsertBatch(ctx, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) upsertBatch(ctx context.Context, rows []domainRow) error {
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("rest sink: encoding batch: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?on_conflict=domain", s.baseURL, url.PathEscape(s.table))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rest sink: building request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rest sink: upserting batch: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		extract.SinkUpserts.Add(float64(len(rows)))
		return nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("rest sink: upsert failed with status %d: %s", resp.StatusCode, detail)
	}
}

// ExistingDomains fetches the domains already stored, up to the configured
// limit.
func (s *Sink) ExistingDomains(ctx context.Context) (map[string]struct{}, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?select=domain&limit=%s",
		s.baseURL, url.PathEscape(s.table), strconv.Itoa(s.existingLimit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("rest sink: building request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rest sink: fetching existing domains: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rest sink: existing domains failed with status %d: %s", resp.StatusCode, detail)
	}

	var items []struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("rest sink: decoding existing domains: %w", err)
	}

	existing := make(map[string]struct{}, len(items))
	for _, item := range items {
		existing[item.Domain] = struct{}{}
	}
	return existing, nil
}

func (s *Sink) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func formatRows(records []extract.DomainRecord) ([]domainRow, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	rows := make([]domainRow, 0, len(records))
	for _, rec := range records {
		matchesJSON, err := json.Marshal(rec.Matches)
		if err != nil {
			return nil, fmt.Errorf("rest sink: encoding matches for %s: %w", rec.Domain, err)
		}
		keywords := make([]string, 0, len(rec.Matches))
		for kw, count := range rec.Matches {
			if count > 0 {
				keywords = append(keywords, kw)
			}
		}
		sort.Strings(keywords)
		rows = append(rows, domainRow{
			Domain:      rec.Domain,
			Score:       rec.Score,
			Matches:     string(matchesJSON),
			Keywords:    keywords,
			LastUpdated: now,
		})
	}
	return rows, nil
}
