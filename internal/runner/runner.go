// Package runner executes one discovery run: it drains observation sources
// through the keyword matcher into the score accumulator, then ranks the
// result.
package runner

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"domainscout/internal/extract"
)

const defaultLimit = 1000

// Config controls run execution.
type Config struct {
	// SourceConcurrency bounds how many sources produce at once.
	SourceConcurrency int
}

// Runner turns run parameters and sources into a ranked report.
type Runner struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs a Runner.
func New(cfg Config, logger *zap.Logger) *Runner {
	if cfg.SourceConcurrency <= 0 {
		cfg.SourceConcurrency = 4
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Execute scores every observation the sources emit and returns the ranked
// report. An invalid keyword set fails before any source starts. Malformed
// observations are skipped and counted, never silently dropped. On context
// cancellation the report holds everything accumulated so far, alongside the
// context error.
func (r *Runner) Execute(
	ctx context.Context,
	params extract.RunParameters,
	sources []extract.Source,
) (extract.RunReport, error) {
	ks, err := extract.NewKeywordSet(params.Keywords)
	if err != nil {
		return extract.RunReport{}, err
	}

	acc := extract.NewAccumulator()
	var processed, skipped atomic.Int64

	emit := func(obs extract.Observation) {
		if obs.Domain == "" || strings.TrimSpace(obs.Text) == "" {
			skipped.Add(1)
			extract.ObservationsSkipped.Inc()
			return
		}
		acc.Accumulate(obs.Domain, ks.Match(obs.Text), obs.URL)
		processed.Add(1)
		extract.ObservationsProcessed.Inc()
	}

	sourceErr := r.drainSources(ctx, sources, emit)

	report, buildErr := r.buildReport(acc, params, processed.Load(), skipped.Load())
	if buildErr != nil {
		return extract.RunReport{}, buildErr
	}

	switch {
	case ctx.Err() != nil:
		return report, ctx.Err()
	case sourceErr != nil:
		return report, sourceErr
	default:
		return report, nil
	}
}

// drainSources runs each source in its own goroutine, bounded by the
// configured concurrency, and returns the first source error.
func (r *Runner) drainSources(
	ctx context.Context,
	sources []extract.Source,
	emit func(extract.Observation),
) error {
	sem := make(chan struct{}, r.cfg.SourceConcurrency)
	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)

	for _, src := range sources {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return firstErr
		}

		wg.Add(1)
		go func(src extract.Source) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := src.Produce(ctx, emit); err != nil && ctx.Err() == nil {
				r.logger.Error("source failed",
					zap.String("source", src.Name()), zap.Error(err))
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}(src)
	}
	wg.Wait()
	return firstErr
}

func (r *Runner) buildReport(
	acc *extract.Accumulator,
	params extract.RunParameters,
	processed, skipped int64,
) (extract.RunReport, error) {
	snap, err := acc.Snapshot()
	if err != nil {
		return extract.RunReport{}, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	ranked, err := extract.Rank(snap, params.MinScore, limit)
	if err != nil {
		return extract.RunReport{}, err
	}

	return extract.RunReport{
		Ranked:    ranked,
		Processed: processed,
		Skipped:   skipped,
		Domains:   acc.Len(),
	}, nil
}
