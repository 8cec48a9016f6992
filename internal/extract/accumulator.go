package extract

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSnapshotInconsistent signals that the accumulator's internal state no
// longer agrees with itself. It should never occur with correct locking; when
// it does, the run must fail loudly instead of ranking mismatched data.
var ErrSnapshotInconsistent = errors.New("accumulator snapshot inconsistent")

// maxURLsPerDomain caps the contributing-URL list kept per record.
const maxURLsPerDomain = 25

// ObservationScore computes a single observation's score contribution:
// match volume boosted by match diversity. A counter with no positive counts
// scores zero.
func ObservationScore(counter MatchCounter) float64 {
	total := counter.Total()
	if total == 0 {
		return 0
	}
	return float64(total) * (1 + 0.1*float64(counter.Distinct()))
}

// Accumulator maintains running per-domain aggregates over an unbounded
// stream of observations. All mutations go through one mutex, so concurrent
// producers never lose a counter increment, and Snapshot observes score and
// counts for a domain together.
//
// A fresh run always starts a fresh Accumulator; there is no cross-run state.
type Accumulator struct {
	mu      sync.Mutex
	records map[string]*DomainRecord
	order   []string
	urls    map[string]map[string]struct{}
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		records: make(map[string]*DomainRecord),
		urls:    make(map[string]map[string]struct{}),
	}
}

// Accumulate folds one observation's counter into the domain's running
// aggregate. All-zero counters are a no-op: a domain only exists in the
// accumulator once it has at least one positive-count observation. Scores and
// per-keyword counts only ever increase within a run, and because each call
// adds an independent term, the final state is the same for any arrival order.
func (a *Accumulator) Accumulate(domain string, counter MatchCounter, urls ...string) {
	score := ObservationScore(counter)
	if score == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.records[domain]
	if !ok {
		rec = &DomainRecord{Domain: domain, Matches: make(MatchCounter)}
		a.records[domain] = rec
		a.order = append(a.order, domain)
		DomainsDiscovered.Inc()
	}
	rec.Score += score
	for term, count := range counter {
		if count > 0 {
			rec.Matches[term] += count
		}
	}
	for _, u := range urls {
		if u == "" {
			continue
		}
		seen := a.urls[domain]
		if seen == nil {
			seen = make(map[string]struct{})
			a.urls[domain] = seen
		}
		if _, dup := seen[u]; dup {
			continue
		}
		if len(rec.URLs) >= maxURLsPerDomain {
			continue
		}
		seen[u] = struct{}{}
		rec.URLs = append(rec.URLs, u)
	}
}

// Len reports the number of domains with at least one contribution.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// AccumulatorSnapshot is a consistent, read-only copy of the live records
// plus the first-seen ordering of domains that the Ranker uses for stable
// tie-breaks.
type AccumulatorSnapshot struct {
	Records map[string]DomainRecord
	Order   []string
}

// Snapshot copies the running state under the lock so a domain's score and
// counters are always read together. The copy is detached: later Accumulate
// calls do not alter it.
func (a *Accumulator) Snapshot() (AccumulatorSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.order) != len(a.records) {
		return AccumulatorSnapshot{}, fmt.Errorf(
			"%w: %d ordered domains vs %d records",
			ErrSnapshotInconsistent, len(a.order), len(a.records),
		)
	}

	snap := AccumulatorSnapshot{
		Records: make(map[string]DomainRecord, len(a.records)),
		Order:   make([]string, len(a.order)),
	}
	copy(snap.Order, a.order)
	for _, domain := range a.order {
		rec, ok := a.records[domain]
		if !ok {
			return AccumulatorSnapshot{}, fmt.Errorf(
				"%w: ordered domain %q has no record", ErrSnapshotInconsistent, domain,
			)
		}
		if rec.Score <= 0 || rec.Matches.Total() == 0 {
			return AccumulatorSnapshot{}, fmt.Errorf(
				"%w: domain %q has score %f with %d matches",
				ErrSnapshotInconsistent, domain, rec.Score, rec.Matches.Total(),
			)
		}
		cp := DomainRecord{
			Domain:  rec.Domain,
			Score:   rec.Score,
			Matches: rec.Matches.Clone(),
		}
		if len(rec.URLs) > 0 {
			cp.URLs = append([]string(nil), rec.URLs...)
		}
		snap.Records[domain] = cp
	}
	return snap, nil
}
