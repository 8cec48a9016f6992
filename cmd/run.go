package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"domainscout/internal/commoncrawl"
	"domainscout/internal/config"
	"domainscout/internal/extract"
	"domainscout/internal/keywords"
	"domainscout/internal/logging"
	"domainscout/internal/runner"
	fssink "domainscout/internal/sink/fs"
	"domainscout/internal/sources"
)

type runFlags struct {
	keywords     []string
	keywordsFile string
	channel      string
	minScore     float64
	limit        int
	maxFiles     int
	maxRecords   int
	maxQueries   int
	output       string
	upload       bool
}

// newRunCmd creates the 'run' subcommand: a one-shot extraction run without
// the server, printing the ranked report as JSON.
func newRunCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a single extraction run and print the ranked report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, flags)
		},
	}
	cmd.Flags().StringSliceVar(&flags.keywords, "keywords", nil, "keywords to match (comma separated)")
	cmd.Flags().StringVar(&flags.keywordsFile, "keywords-file", "", "file with one seed keyword per line")
	cmd.Flags().StringVar(&flags.channel, "channel", "wet", "acquisition channel: wet, wat, index, or dork")
	cmd.Flags().Float64Var(&flags.minScore, "min-score", 0, "minimum score to include in the report")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "maximum ranked results (0 = default)")
	cmd.Flags().IntVar(&flags.maxFiles, "max-files", 0, "maximum archive files to scan (0 = config default)")
	cmd.Flags().IntVar(&flags.maxRecords, "max-records", 0, "maximum records per archive file (0 = config default)")
	cmd.Flags().IntVar(&flags.maxQueries, "max-queries", 0, "maximum dork queries (0 = config default)")
	cmd.Flags().StringVar(&flags.output, "output", "", "write the report to this file instead of stdout")
	cmd.Flags().BoolVar(&flags.upload, "upload", false, "upsert ranked domains into the configured file sink")
	return cmd
}

func runOnce(cmd *cobra.Command, flags *runFlags) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	terms := flags.keywords
	if flags.keywordsFile != "" {
		f, err := os.Open(flags.keywordsFile)
		if err != nil {
			return fmt.Errorf("open keywords file: %w", err)
		}
		defer f.Close() //nolint:errcheck // read-only file
		seeds, err := keywords.ReadSeeds(f)
		if err != nil {
			return fmt.Errorf("read keywords file: %w", err)
		}
		terms = append(terms, seeds...)
	}

	params := extract.RunParameters{
		Keywords:   terms,
		Channel:    extract.Channel(flags.channel),
		MinScore:   flags.minScore,
		Limit:      flags.limit,
		MaxFiles:   flags.maxFiles,
		MaxRecords: flags.maxRecords,
		MaxQueries: flags.maxQueries,
	}

	client := commoncrawl.NewClient(cfg.CommonCrawl.CrawlID, logger.Named("commoncrawl"))
	factory := sources.New(client, cfg.CommonCrawl, cfg.Dork, nil, logger.Named("sources"))
	srcs, err := factory.Sources(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("build sources: %w", err)
	}

	run := runner.New(runner.Config{SourceConcurrency: cfg.Worker.SourceConcurrency}, logger.Named("runner"))
	started := time.Now()
	report, runErr := run.Execute(cmd.Context(), params, srcs)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run extraction: %w", runErr)
	}
	logger.Info("run finished",
		zap.Int("domains", report.Domains),
		zap.Int64("processed", report.Processed),
		zap.Int64("skipped", report.Skipped),
		zap.Duration("elapsed", time.Since(started)),
	)

	if flags.upload && len(report.Ranked) > 0 {
		sink, err := fssink.New(cfg.Sink.FilePath)
		if err != nil {
			return fmt.Errorf("open sink: %w", err)
		}
		if err := sink.Upsert(cmd.Context(), report.Ranked); err != nil {
			return fmt.Errorf("upsert domains: %w", err)
		}
		logger.Info("domains uploaded", zap.Int("count", len(report.Ranked)))
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if flags.output != "" {
		if err := os.WriteFile(flags.output, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
