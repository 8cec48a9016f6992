package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"domainscout/internal/config"
	"domainscout/internal/extract"
	"domainscout/internal/logging"
	fssink "domainscout/internal/sink/fs"
	pgsink "domainscout/internal/sink/postgres"
	restsink "domainscout/internal/sink/rest"
)

// newUploadCmd creates the 'upload' subcommand, which pushes a previously
// generated run report into the configured sink.
func newUploadCmd() *cobra.Command {
	var reportPath string
	var filterKnown bool
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upsert the ranked domains from a report file into the sink",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return uploadReport(cmd.Context(), reportPath, filterKnown)
		},
	}
	cmd.Flags().StringVar(&reportPath, "report", "report.json", "run report JSON file")
	cmd.Flags().BoolVar(&filterKnown, "filter-known", true, "skip domains the sink already holds")
	return cmd
}

func uploadReport(ctx context.Context, reportPath string, filterKnown bool) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	data, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	var report extract.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}
	if len(report.Ranked) == 0 {
		logger.Info("report contains no ranked domains, nothing to upload")
		return nil
	}

	sink, closeSink, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	records := report.Ranked
	if filterKnown {
		existing, err := sink.ExistingDomains(ctx)
		if err != nil {
			logger.Warn("existing-domain lookup failed, uploading all", zap.Error(err))
		} else {
			records = extract.FilterNew(records, existing)
		}
	}
	if len(records) == 0 {
		logger.Info("all domains already present in sink")
		return nil
	}
	if err := sink.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert domains: %w", err)
	}
	logger.Info("upload complete",
		zap.Int("uploaded", len(records)),
		zap.Int("ranked", len(report.Ranked)),
	)
	return nil
}

func buildSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (extract.Sink, func(), error) {
	noop := func() {}
	switch cfg.Sink.Backend {
	case "postgres":
		sink, err := pgsink.New(ctx, pgsink.Config{DSN: cfg.Sink.DSN, Table: cfg.Sink.Table})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres sink init: %w", err)
		}
		return sink, sink.Close, nil
	case "rest":
		sink, err := restsink.New(restsink.Config{
			BaseURL: cfg.Sink.RESTBaseURL,
			APIKey:  cfg.Sink.RESTAPIKey,
			Table:   cfg.Sink.Table,
			Timeout: cfg.SinkTimeout(),
		}, logger.Named("sink"))
		if err != nil {
			return nil, nil, fmt.Errorf("rest sink init: %w", err)
		}
		return sink, noop, nil
	default:
		sink, err := fssink.New(cfg.Sink.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("file sink init: %w", err)
		}
		return sink, noop, nil
	}
}
