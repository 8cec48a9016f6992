// Package worker implements the discovery run execution loop.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"domainscout/internal/extract"
	"domainscout/internal/runner"
)

// SourceFactory builds the observation sources for one run, based on its
// parameters (channel, keywords, file/query caps).
type SourceFactory interface {
	Sources(ctx context.Context, params extract.RunParameters) ([]extract.Source, error)
}

// SourceFactoryFunc adapts a function to the SourceFactory interface.
type SourceFactoryFunc func(ctx context.Context, params extract.RunParameters) ([]extract.Source, error)

// Sources implements SourceFactory.
func (f SourceFactoryFunc) Sources(ctx context.Context, params extract.RunParameters) ([]extract.Source, error) {
	return f(ctx, params)
}

// Config controls Worker behavior.
type Config struct {
	BlobPrefix string
	Topic      string
}

// Worker consumes queue items and executes the discovery pipeline: run the
// sources, rank the domains, dedupe against the sink, upsert, archive the
// report, publish a completion event.
type Worker struct {
	queue    extract.Queue
	runStore extract.RunStore
	sink     extract.Sink
	blobs    extract.BlobStore
	pub      extract.Publisher
	hasher   extract.Hasher
	clock    extract.Clock
	factory  SourceFactory
	runner   *runner.Runner
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Worker.
func New(
	queue extract.Queue,
	runStore extract.RunStore,
	sink extract.Sink,
	blobs extract.BlobStore,
	pub extract.Publisher,
	hasher extract.Hasher,
	clock extract.Clock,
	factory SourceFactory,
	run *runner.Runner,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		queue:    queue,
		runStore: runStore,
		sink:     sink,
		blobs:    blobs,
		pub:      pub,
		hasher:   hasher,
		clock:    clock,
		factory:  factory,
		runner:   run,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued run", zap.String("run_id", item.RunID))
		w.processRun(ctx, item)
	}
}

func (w *Worker) processRun(ctx context.Context, item extract.QueueItem) {
	// A run canceled while still queued must not execute; its status is
	// already terminal when the item comes off the queue.
	if run, err := w.runStore.GetRun(ctx, item.RunID); err == nil && run.Status.Terminal() {
		w.logger.Info("skipping terminal run",
			zap.String("run_id", item.RunID),
			zap.String("status", string(run.Status)))
		return
	}

	if err := w.runStore.UpdateRunStatus(
		ctx, item.RunID, extract.RunStatusRunning, "", extract.RunCounters{},
	); err != nil {
		w.logger.Error("update run status failed", zap.String("run_id", item.RunID), zap.Error(err))
		return
	}

	started := w.clock.Now()

	// TODO: derive a per-run context so an API cancel can interrupt a run
	// mid-flight instead of only flipping the stored status.
	report, uploaded, runErr := w.executeRun(ctx, item, started)

	counters := extract.RunCounters{
		Processed: report.Processed,
		Skipped:   report.Skipped,
		Domains:   report.Domains,
		Uploaded:  uploaded,
	}

	status, errText := w.deriveFinalStatus(ctx, runErr)

	if err := w.runStore.RecordReport(ctx, item.RunID, report); err != nil {
		w.logger.Error("record report failed", zap.String("run_id", item.RunID), zap.Error(err))
	}
	if err := w.runStore.UpdateRunStatus(ctx, item.RunID, status, errText, counters); err != nil {
		w.logger.Error("final run status update failed", zap.String("run_id", item.RunID), zap.Error(err))
	}
}

// executeRun produces the report and pushes results downstream. A partial
// report from a canceled or failed run is still deduped, uploaded, and
// archived before the error propagates.
func (w *Worker) executeRun(ctx context.Context, item extract.QueueItem, started time.Time) (extract.RunReport, int, error) {
	sources, err := w.factory.Sources(ctx, item.Params)
	if err != nil {
		return extract.RunReport{}, 0, fmt.Errorf("build sources: %w", err)
	}

	report, runErr := w.runner.Execute(ctx, item.Params, sources)
	if runErr != nil && len(report.Ranked) == 0 {
		return report, 0, runErr
	}

	uploaded, err := w.deliver(ctx, item, report, started)
	if err != nil {
		return report, uploaded, err
	}
	return report, uploaded, runErr
}

func (w *Worker) deliver(ctx context.Context, item extract.QueueItem, report extract.RunReport, started time.Time) (int, error) {
	records := report.Ranked

	if item.Params.FilterKnown && len(records) > 0 {
		existing, err := w.sink.ExistingDomains(ctx)
		if err != nil {
			// Advisory dedup: upload everything rather than lose the run.
			w.logger.Warn("existing domains lookup failed, uploading all",
				zap.String("run_id", item.RunID), zap.Error(err))
		} else {
			before := len(records)
			records = extract.FilterNew(records, existing)
			w.logger.Info("filtered known domains",
				zap.String("run_id", item.RunID),
				zap.Int("dropped", before-len(records)))
		}
	}

	if len(records) > 0 {
		if err := w.sink.Upsert(ctx, records); err != nil {
			return 0, fmt.Errorf("sink upsert: %w", err)
		}
	}

	uri, err := w.archiveReport(ctx, item.RunID, report)
	if err != nil {
		return len(records), err
	}

	if err := w.publishCompletion(ctx, item.RunID, uri, report, len(records), started); err != nil {
		return len(records), err
	}
	return len(records), nil
}

func (w *Worker) archiveReport(ctx context.Context, runID string, report extract.RunReport) (string, error) {
	if w.blobs == nil {
		return "", nil
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	hash, err := w.hasher.Hash(payload)
	if err != nil {
		return "", fmt.Errorf("hash report: %w", err)
	}
	blobPath := w.buildBlobPath(runID, hash)
	uri, err := w.blobs.PutObject(ctx, blobPath, "application/json", payload)
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return uri, nil
}

func (w *Worker) buildBlobPath(runID, hash string) string {
	prefix := strings.Trim(w.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.json", runID, hash)
	}
	return fmt.Sprintf("%s/%s/%s.json", prefix, runID, hash)
}

func (w *Worker) publishCompletion(
	ctx context.Context,
	runID string,
	blobURI string,
	report extract.RunReport,
	uploaded int,
	started time.Time,
) error {
	if w.cfg.Topic == "" || w.pub == nil {
		return nil
	}
	now := w.clock.Now()
	payload := map[string]any{
		"run_id":    runID,
		"blob_uri":  blobURI,
		"domains":   report.Domains,
		"uploaded":  uploaded,
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"duration":  now.Sub(started).String(),
		"timestamp": now.Format(time.RFC3339),
	}
	if _, err := w.pub.Publish(ctx, w.cfg.Topic, payload); err != nil {
		return fmt.Errorf("publish payload: %w", err)
	}
	w.logger.Info("run published",
		zap.String("run_id", runID),
		zap.String("blob_uri", blobURI),
		zap.Int("uploaded", uploaded),
	)
	return nil
}

func (w *Worker) deriveFinalStatus(ctx context.Context, runErr error) (extract.RunStatus, string) {
	switch {
	case errors.Is(runErr, context.Canceled) || ctx.Err() != nil:
		errText := ""
		if runErr != nil {
			errText = runErr.Error()
		}
		return extract.RunStatusCanceled, errText
	case runErr != nil:
		return extract.RunStatusFailed, runErr.Error()
	default:
		return extract.RunStatusSucceeded, ""
	}
}
