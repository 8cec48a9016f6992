package commoncrawl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"domainscout/internal/extract"
)

// WATSource streams WAT metadata records and emits one observation per
// record, built from the target URI, response headers, page title, and meta
// tags the crawler captured.
type WATSource struct {
	client     *Client
	paths      []string
	maxRecords int
	logger     *zap.Logger
}

// NewWATSource builds a source over the given archive paths. maxRecords
// bounds the records emitted per file; zero means unbounded.
func NewWATSource(client *Client, paths []string, maxRecords int, logger *zap.Logger) *WATSource {
	return &WATSource{client: client, paths: paths, maxRecords: maxRecords, logger: logger}
}

// Name implements extract.Source.
func (s *WATSource) Name() string { return "wat" }

// Produce implements extract.Source.
func (s *WATSource) Produce(ctx context.Context, emit func(extract.Observation)) error {
	for _, path := range s.paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.produceFile(ctx, path, emit); err != nil {
			return err
		}
		extract.ArchiveFilesScanned.Inc()
	}
	return nil
}

func (s *WATSource) produceFile(ctx context.Context, path string, emit func(extract.Observation)) error {
	s.logger.Info("scanning wat file", zap.String("path", path))

	rc, err := s.client.OpenArchive(ctx, path)
	if err != nil {
		return err
	}
	defer rc.Close()

	tag := "wat:" + path
	emitted := 0
	err = scanWAT(rc, func(url string, payload []byte) bool {
		domain, _ := extract.ExtractDomain(url)
		emit(extract.Observation{
			Domain:    domain,
			Text:      watSearchText(url, payload),
			URL:       url,
			SourceTag: tag,
		})
		emitted++
		return s.maxRecords <= 0 || emitted < s.maxRecords
	})
	if err != nil {
		return fmt.Errorf("commoncrawl: scanning %s: %w", path, err)
	}

	s.logger.Info("wat file scanned", zap.String("path", path), zap.Int("records", emitted))
	return nil
}

// scanWAT pairs each WARC-Target-URI header with the JSON payload line that
// follows it. Lines that look like JSON but fail to parse are dropped with
// their record.
func scanWAT(r io.Reader, flush func(url string, payload []byte) bool) error {
	var (
		currentURL string
		payload    []byte
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		switch {
		case strings.HasPrefix(line, warcTargetURIPrefix):
			if currentURL != "" && payload != nil {
				if !flush(currentURL, payload) {
					return nil
				}
			}
			currentURL = strings.TrimSpace(strings.TrimPrefix(line, warcTargetURIPrefix))
			payload = nil

		case strings.HasPrefix(line, "{") && strings.HasSuffix(line, "}"):
			if json.Valid([]byte(line)) {
				payload = []byte(line)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	if currentURL != "" && payload != nil {
		flush(currentURL, payload)
	}
	return nil
}

// watEnvelope mirrors the slice of a WAT record's metadata worth matching
// against: HTTP response headers plus the parsed HTML title and meta tags.
type watEnvelope struct {
	Envelope struct {
		PayloadMetadata struct {
			HTTPResponseMetadata struct {
				Headers      map[string]string `json:"Headers"`
				HTMLMetadata struct {
					Head struct {
						Title string              `json:"Title"`
						Metas []map[string]string `json:"Metas"`
					} `json:"Head"`
				} `json:"HTML-Metadata"`
			} `json:"HTTP-Response-Metadata"`
		} `json:"Payload-Metadata"`
	} `json:"Envelope"`
}

// watSearchText flattens the searchable fields of one WAT record into a
// single string for keyword matching.
func watSearchText(url string, payload []byte) string {
	fields := []string{url}

	var env watEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return extract.JoinFragments(fields)
	}

	meta := env.Envelope.PayloadMetadata.HTTPResponseMetadata
	for k, v := range meta.Headers {
		fields = append(fields, k+": "+v)
	}
	if title := meta.HTMLMetadata.Head.Title; title != "" {
		fields = append(fields, title)
	}
	for _, m := range meta.HTMLMetadata.Head.Metas {
		for k, v := range m {
			fields = append(fields, k+": "+v)
		}
	}
	return extract.JoinFragments(fields)
}
