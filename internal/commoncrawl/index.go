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

// IndexSource streams CDX index files and emits one observation per index
// entry. The observation text is the captured URL itself, so keyword matching
// runs against URLs without fetching any page content. This is the cheapest
// acquisition channel: one crawl's index covers every capture in the snapshot.
type IndexSource struct {
	client     *Client
	paths      []string
	maxRecords int
	logger     *zap.Logger
}

// NewIndexSource builds a source over the given CDX shard paths. maxRecords
// bounds the entries emitted per shard; zero means unbounded.
func NewIndexSource(client *Client, paths []string, maxRecords int, logger *zap.Logger) *IndexSource {
	return &IndexSource{client: client, paths: paths, maxRecords: maxRecords, logger: logger}
}

// Name implements extract.Source.
func (s *IndexSource) Name() string { return "index" }

// Produce implements extract.Source.
func (s *IndexSource) Produce(ctx context.Context, emit func(extract.Observation)) error {
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

func (s *IndexSource) produceFile(ctx context.Context, path string, emit func(extract.Observation)) error {
	s.logger.Info("scanning index shard", zap.String("path", path))

	rc, err := s.client.OpenArchive(ctx, path)
	if err != nil {
		return err
	}
	defer rc.Close()

	tag := "index:" + path
	emitted := 0
	err = scanCDX(rc, func(url string) bool {
		domain, _ := extract.ExtractDomain(url)
		emit(extract.Observation{
			Domain:    domain,
			Text:      url,
			URL:       url,
			SourceTag: tag,
		})
		emitted++
		return s.maxRecords <= 0 || emitted < s.maxRecords
	})
	if err != nil {
		return fmt.Errorf("commoncrawl: scanning %s: %w", path, err)
	}

	s.logger.Info("index shard scanned", zap.String("path", path), zap.Int("entries", emitted))
	return nil
}

// cdxEntry is the JSON tail of a CDX index line. Only the capture URL matters
// here; the rest of the entry (mime, status, offsets) is skipped.
type cdxEntry struct {
	URL string `json:"url"`
}

// scanCDX walks a decompressed CDX shard. Each line is
// "<urlkey> <timestamp> <json>"; lines without a parseable JSON tail or a url
// field are dropped silently, matching the skip-don't-abort archive rule.
// flush returns false to stop early.
func scanCDX(r io.Reader, flush func(url string) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		start := strings.IndexByte(line, '{')
		if start < 0 {
			continue
		}
		var entry cdxEntry
		if err := json.Unmarshal([]byte(line[start:]), &entry); err != nil {
			continue
		}
		if entry.URL == "" {
			continue
		}
		if !flush(entry.URL) {
			return nil
		}
	}
	return sc.Err()
}
