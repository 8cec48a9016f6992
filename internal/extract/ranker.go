package extract

import (
	"errors"
	"sort"
)

// Ranking configuration errors are raised immediately; they are caller bugs,
// not data conditions.
var (
	ErrNegativeMinScore = errors.New("min_score must be >= 0")
	ErrInvalidLimit     = errors.New("limit must be > 0")
)

// Rank filters the snapshot to records with score >= minScore (inclusive),
// sorts descending by score with ties broken by first-observed order, and
// truncates to limit entries. The snapshot is not mutated; the result is
// deterministic for a fixed snapshot and parameters.
func Rank(snap AccumulatorSnapshot, minScore float64, limit int) ([]DomainRecord, error) {
	if minScore < 0 {
		return nil, ErrNegativeMinScore
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	ranked := make([]DomainRecord, 0, len(snap.Order))
	for _, domain := range snap.Order {
		rec, ok := snap.Records[domain]
		if !ok {
			continue
		}
		if rec.Score >= minScore {
			ranked = append(ranked, rec)
		}
	}

	// Input order is first-seen order, so a stable sort keeps equal scores
	// in discovery order without any lexicographic bias.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
