package commoncrawl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"domainscout/internal/extract"
)

const warcTargetURIPrefix = "WARC-Target-URI:"

// WETSource streams plain-text WET records from a set of archive files and
// emits one observation per record. Records whose target URI yields no usable
// domain are still emitted so the caller can count them as skipped.
type WETSource struct {
	client     *Client
	paths      []string
	maxRecords int
	logger     *zap.Logger
}

// NewWETSource builds a source over the given archive paths. maxRecords
// bounds the records emitted per file; zero means unbounded.
func NewWETSource(client *Client, paths []string, maxRecords int, logger *zap.Logger) *WETSource {
	return &WETSource{client: client, paths: paths, maxRecords: maxRecords, logger: logger}
}

// Name implements extract.Source.
func (s *WETSource) Name() string { return "wet" }

// Produce implements extract.Source.
func (s *WETSource) Produce(ctx context.Context, emit func(extract.Observation)) error {
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

func (s *WETSource) produceFile(ctx context.Context, path string, emit func(extract.Observation)) error {
	s.logger.Info("scanning wet file", zap.String("path", path))

	rc, err := s.client.OpenArchive(ctx, path)
	if err != nil {
		return err
	}
	defer rc.Close()

	tag := "wet:" + path
	emitted := 0
	err = scanWET(rc, func(url string, content []string) bool {
		domain, _ := extract.ExtractDomain(url)
		emit(extract.Observation{
			Domain:    domain,
			Text:      extract.JoinFragments(content),
			URL:       url,
			SourceTag: tag,
		})
		emitted++
		return s.maxRecords <= 0 || emitted < s.maxRecords
	})
	if err != nil {
		return fmt.Errorf("commoncrawl: scanning %s: %w", path, err)
	}

	s.logger.Info("wet file scanned", zap.String("path", path), zap.Int("records", emitted))
	return nil
}

// scanWET walks the decompressed WET record stream. A record starts at a
// WARC-Target-URI header; content lines begin after the first blank line and
// run until the next record's header. flush returns false to stop early.
func scanWET(r io.Reader, flush func(url string, content []string) bool) error {
	var (
		currentURL string
		recording  bool
		content    []string
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		switch {
		case strings.HasPrefix(line, warcTargetURIPrefix):
			if recording && currentURL != "" && len(content) > 0 {
				if !flush(currentURL, content) {
					return nil
				}
			}
			currentURL = strings.TrimSpace(strings.TrimPrefix(line, warcTargetURIPrefix))
			content = nil
			recording = false

		case !recording && line == "":
			recording = true

		case recording && currentURL != "" && line != "":
			content = append(content, line)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	if recording && currentURL != "" && len(content) > 0 {
		flush(currentURL, content)
	}
	return nil
}
