// Package commoncrawl streams WET and WAT archive files and CDX index shards
// from the public Common Crawl dataset and turns their records into scoring
// observations.
package commoncrawl

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://commoncrawl.s3.amazonaws.com"

// Client downloads paths listings and archive files for one crawl snapshot.
type Client struct {
	httpClient *http.Client
	baseURL    string
	crawlID    string
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the dataset base URL (tests point this at a local server).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a Client for the given crawl snapshot, e.g. "CC-MAIN-2025-33".
func NewClient(crawlID string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		baseURL:    defaultBaseURL,
		crawlID:    crawlID,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CrawlID returns the snapshot this client reads from.
func (c *Client) CrawlID() string { return c.crawlID }

// PathsList fetches and decompresses the paths listing for one archive type
// ("wet", "wat", or "cc-index"), returning one archive path per line.
func (c *Client) PathsList(ctx context.Context, fileType string) ([]string, error) {
	pathsURL := fmt.Sprintf("%s/crawl-data/%s/%s.paths.gz", c.baseURL, c.crawlID, fileType)
	c.logger.Info("downloading paths list", zap.String("url", pathsURL))

	body, err := c.get(ctx, pathsURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	gz, err := gzip.NewReader(body)
	if err != nil {
		return nil, fmt.Errorf("commoncrawl: decompressing paths list: %w", err)
	}
	defer gz.Close()

	var paths []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			paths = append(paths, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("commoncrawl: reading paths list: %w", err)
	}

	c.logger.Info("retrieved paths",
		zap.String("file_type", fileType),
		zap.Int("count", len(paths)))
	return paths, nil
}

// OpenArchive streams one gzipped archive file. The returned reader yields the
// decompressed record stream and must be closed by the caller.
func (c *Client) OpenArchive(ctx context.Context, path string) (io.ReadCloser, error) {
	archiveURL := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))

	body, err := c.get(ctx, archiveURL)
	if err != nil {
		return nil, err
	}
	gz, err := gzip.NewReader(body)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("commoncrawl: decompressing %s: %w", path, err)
	}
	return &archiveReader{gz: gz, body: body}, nil
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("commoncrawl: building request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("commoncrawl: fetching %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("commoncrawl: fetching %s: unexpected status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

type archiveReader struct {
	gz   *gzip.Reader
	body io.ReadCloser
}

func (r *archiveReader) Read(p []byte) (int, error) { return r.gz.Read(p) }

func (r *archiveReader) Close() error {
	gzErr := r.gz.Close()
	bodyErr := r.body.Close()
	if gzErr != nil {
		return gzErr
	}
	return bodyErr
}
