// Package sources builds the observation sources for each run based on its
// requested channel and scan limits.
package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"domainscout/internal/commoncrawl"
	"domainscout/internal/config"
	"domainscout/internal/dork"
	"domainscout/internal/extract"
)

// Factory resolves run parameters into concrete sources: Common Crawl WET or
// WAT archive scanners, a CDX index scanner, or a search-engine dork searcher.
type Factory struct {
	client   *commoncrawl.Client
	ccCfg    config.CommonCrawlConfig
	dorkCfg  config.DorkConfig
	renderer dork.Renderer
	logger   *zap.Logger
}

// New constructs a Factory. The renderer may be nil; dork sources then skip
// the headless fallback.
func New(
	client *commoncrawl.Client,
	ccCfg config.CommonCrawlConfig,
	dorkCfg config.DorkConfig,
	renderer dork.Renderer,
	logger *zap.Logger,
) *Factory {
	return &Factory{
		client:   client,
		ccCfg:    ccCfg,
		dorkCfg:  dorkCfg,
		renderer: renderer,
		logger:   logger,
	}
}

// Sources builds the sources for one run.
func (f *Factory) Sources(ctx context.Context, params extract.RunParameters) ([]extract.Source, error) {
	switch params.Channel {
	case extract.ChannelWET, extract.ChannelWAT:
		return f.archiveSources(ctx, params)
	case extract.ChannelIndex:
		return f.indexSources(ctx, params)
	case extract.ChannelDork:
		return f.dorkSources(params)
	default:
		return nil, fmt.Errorf("unknown channel %q", params.Channel)
	}
}

func (f *Factory) archiveSources(ctx context.Context, params extract.RunParameters) ([]extract.Source, error) {
	fileType := string(params.Channel)
	paths, err := f.client.PathsList(ctx, fileType)
	if err != nil {
		return nil, fmt.Errorf("list %s paths: %w", fileType, err)
	}

	maxFiles := params.MaxFiles
	if maxFiles <= 0 {
		maxFiles = f.ccCfg.MaxFilesDefault
	}
	if maxFiles > 0 && len(paths) > maxFiles {
		paths = paths[:maxFiles]
	}

	maxRecords := params.MaxRecords
	if maxRecords <= 0 {
		maxRecords = f.ccCfg.MaxRecordsDefault
	}

	f.logger.Info("building archive source",
		zap.String("file_type", fileType),
		zap.Int("files", len(paths)),
		zap.Int("max_records", maxRecords),
	)

	if params.Channel == extract.ChannelWAT {
		return []extract.Source{commoncrawl.NewWATSource(f.client, paths, maxRecords, f.logger)}, nil
	}
	return []extract.Source{commoncrawl.NewWETSource(f.client, paths, maxRecords, f.logger)}, nil
}

// indexSources scans the crawl's CDX index shards. The paths listing for
// cc-index mixes gzipped shards with the cluster.idx lookup file; only the
// shards are scannable.
func (f *Factory) indexSources(ctx context.Context, params extract.RunParameters) ([]extract.Source, error) {
	all, err := f.client.PathsList(ctx, "cc-index")
	if err != nil {
		return nil, fmt.Errorf("list cc-index paths: %w", err)
	}
	var paths []string
	for _, p := range all {
		if strings.HasSuffix(p, ".gz") {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no CDX shards in cc-index paths listing (%d entries)", len(all))
	}

	maxFiles := params.MaxFiles
	if maxFiles <= 0 {
		maxFiles = f.ccCfg.MaxFilesDefault
	}
	if maxFiles > 0 && len(paths) > maxFiles {
		paths = paths[:maxFiles]
	}

	maxRecords := params.MaxRecords
	if maxRecords <= 0 {
		maxRecords = f.ccCfg.MaxRecordsDefault
	}

	f.logger.Info("building index source",
		zap.Int("shards", len(paths)),
		zap.Int("max_records", maxRecords),
	)

	return []extract.Source{commoncrawl.NewIndexSource(f.client, paths, maxRecords, f.logger)}, nil
}

func (f *Factory) dorkSources(params extract.RunParameters) ([]extract.Source, error) {
	dorks := dork.GenerateDorks(params.Keywords, nil)
	if len(dorks) == 0 {
		return nil, fmt.Errorf("no dork queries generated from %d keywords", len(params.Keywords))
	}

	maxQueries := params.MaxQueries
	if maxQueries <= 0 {
		maxQueries = f.dorkCfg.MaxQueriesDefault
	}

	cfg := dork.Config{
		SearchBaseURL:   f.dorkCfg.SearchBaseURL,
		ResultsPerQuery: f.dorkCfg.ResultsPerQuery,
		MaxQueries:      maxQueries,
		RequestTimeout:  time.Duration(f.dorkCfg.TimeoutSeconds) * time.Second,
		SearchRPS:       f.dorkCfg.SearchRPS,
	}

	f.logger.Info("building dork source",
		zap.Int("queries", len(dorks)),
		zap.Int("max_queries", maxQueries),
	)

	return []extract.Source{dork.NewSearcher(cfg, dorks, f.renderer, f.logger)}, nil
}
