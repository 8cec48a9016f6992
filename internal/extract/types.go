package extract

import (
	"time"
)

// RunStatus represents the lifecycle state of an extraction run.
type RunStatus string

// Run status values persisted in the run store.
const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// Terminal reports whether the status is final: a terminal run is never
// picked up by a worker or transitioned again.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCanceled:
		return true
	default:
		return false
	}
}

// Channel selects which acquisition channel a run scans.
type Channel string

// Acquisition channels.
const (
	ChannelWET   Channel = "wet"
	ChannelWAT   Channel = "wat"
	ChannelIndex Channel = "index"
	ChannelDork  Channel = "dork"
)

// Observation is one text fragment attributable to a candidate domain. It is
// a transient unit of work and is never persisted individually.
type Observation struct {
	Domain    string
	Text      string
	URL       string
	SourceTag string
}

// MatchCounter maps keyword -> occurrence count for one accumulation input.
type MatchCounter map[string]int

// Total returns the sum of all keyword counts.
func (c MatchCounter) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Distinct returns the number of keywords with a positive count.
func (c MatchCounter) Distinct() int {
	distinct := 0
	for _, n := range c {
		if n > 0 {
			distinct++
		}
	}
	return distinct
}

// Clone returns an independent copy of the counter.
func (c MatchCounter) Clone() MatchCounter {
	out := make(MatchCounter, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// DomainRecord is the within-run aggregate of score and match counts for one
// domain. Score is derived from observations, never set directly.
type DomainRecord struct {
	Domain  string       `json:"domain"`
	Score   float64      `json:"score"`
	Matches MatchCounter `json:"matches"`
	URLs    []string     `json:"urls,omitempty"`
}

// RunParameters captures per-run configuration requested by the client.
type RunParameters struct {
	Keywords    []string          `json:"keywords"`
	Channel     Channel           `json:"channel"`
	MinScore    float64           `json:"min_score" mapstructure:"min_score"`
	Limit       int               `json:"limit"`
	MaxFiles    int               `json:"max_files" mapstructure:"max_files"`
	MaxRecords  int               `json:"max_records" mapstructure:"max_records"`
	MaxQueries  int               `json:"max_queries" mapstructure:"max_queries"`
	FilterKnown bool              `json:"filter_known" mapstructure:"filter_known"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Run is the metadata persisted for each submitted extraction request.
type Run struct {
	ID         string        `json:"id"`
	Status     RunStatus     `json:"status"`
	Submitted  time.Time     `json:"submitted_at"`
	Started    *time.Time    `json:"started_at,omitempty"`
	Finished   *time.Time    `json:"finished_at,omitempty"`
	ErrorText  string        `json:"error_text,omitempty"`
	Parameters RunParameters `json:"parameters"`
	Counters   RunCounters   `json:"counters"`
}

// RunCounters tracks observation stats per run. Skipped counts malformed
// observations that were dropped; a run never silently hides them.
type RunCounters struct {
	Processed int64 `json:"observations_processed"`
	Skipped   int64 `json:"observations_skipped"`
	Domains   int   `json:"domains_discovered"`
	Uploaded  int   `json:"domains_uploaded"`
}

// RunReport is the outcome of one extraction run: the ranked records plus
// processed/skipped accounting so partial success is always visible.
type RunReport struct {
	Ranked    []DomainRecord `json:"ranked"`
	Processed int64          `json:"observations_processed"`
	Skipped   int64          `json:"observations_skipped"`
	Domains   int            `json:"domains_discovered"`
}

// QueueItem wraps a run ready to execute.
type QueueItem struct {
	RunID     string
	Params    RunParameters
	Attempt   int
	Submitted int64
}
