package extract

import (
	"context"
	"time"
)

// Source produces observations for one unit of acquisition work (one archive
// file, one batch of search queries). Emit may be called from the source's
// goroutine only; the runner makes accumulation safe across sources.
type Source interface {
	Name() string
	Produce(ctx context.Context, emit func(Observation)) error
}

// Sink persists ranked domain records and reports the domains it already
// holds, for advisory pre-upload deduplication. Implementations batch
// internally; batch size is invisible to the core.
type Sink interface {
	Upsert(ctx context.Context, records []DomainRecord) error
	ExistingDomains(ctx context.Context) (map[string]struct{}, error)
}

// RunStore persists run metadata and results.
type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	UpdateRunStatus(ctx context.Context, runID string, status RunStatus, errText string, counters RunCounters) error
	RecordReport(ctx context.Context, runID string, report RunReport) error
	GetRun(ctx context.Context, runID string) (Run, error)
	GetReport(ctx context.Context, runID string) (RunReport, error)
}

// BlobStore archives raw artifacts (serialized run results) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes run-completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Queue provides enqueue/dequeue semantics for extraction runs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Hasher computes digests for archive object naming.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (injectable for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
