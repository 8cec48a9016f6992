package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func snapshotOf(t *testing.T, observations []Observation, ks *KeywordSet) AccumulatorSnapshot {
	t.Helper()
	acc := NewAccumulator()
	for _, obs := range observations {
		acc.Accumulate(obs.Domain, ks.Match(obs.Text))
	}
	snap, err := acc.Snapshot()
	require.NoError(t, err)
	return snap
}

func TestRank_ThresholdBoundaryInclusive(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	// One match, one distinct keyword: score = 1 * 1.1.
	acc.Accumulate("edge.example", MatchCounter{"solar": 1})
	snap, err := acc.Snapshot()
	require.NoError(t, err)

	included, err := Rank(snap, 1.1, 10)
	require.NoError(t, err)
	require.Len(t, included, 1)

	excluded, err := Rank(snap, 1.1+1e-9, 10)
	require.NoError(t, err)
	require.Empty(t, excluded)
}

func TestRank_SortsDescendingAndTruncates(t *testing.T) {
	t.Parallel()

	ks, err := NewKeywordSet([]string{"solar", "battery"})
	require.NoError(t, err)

	snap := snapshotOf(t, []Observation{
		{Domain: "a.example", Text: "Solar power and battery storage. Solar panels."}, // 3.6
		{Domain: "b.example", Text: "battery"},                                        // 1.1
	}, ks)

	ranked, err := Rank(snap, 2.0, 1)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	require.Equal(t, "a.example", ranked[0].Domain)
	require.InDelta(t, 3.6, ranked[0].Score, 1e-9)
}

func TestRank_StableTieBreakOnFirstSeen(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	acc.Accumulate("first.example", MatchCounter{"solar": 1})
	acc.Accumulate("second.example", MatchCounter{"battery": 1})
	acc.Accumulate("third.example", MatchCounter{"grid": 1})
	snap, err := acc.Snapshot()
	require.NoError(t, err)

	ranked, err := Rank(snap, 0, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"first.example", "second.example", "third.example"},
		[]string{ranked[0].Domain, ranked[1].Domain, ranked[2].Domain})
}

func TestRank_NeverPads(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	acc.Accumulate("only.example", MatchCounter{"solar": 1})
	snap, err := acc.Snapshot()
	require.NoError(t, err)

	ranked, err := Rank(snap, 0, 100)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
}

func TestRank_RejectsBadParameters(t *testing.T) {
	t.Parallel()

	snap := AccumulatorSnapshot{Records: map[string]DomainRecord{}}

	_, err := Rank(snap, -0.5, 10)
	require.ErrorIs(t, err, ErrNegativeMinScore)

	_, err = Rank(snap, 1.0, 0)
	require.ErrorIs(t, err, ErrInvalidLimit)
}

func TestRank_DoesNotMutateSnapshot(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	acc.Accumulate("a.example", MatchCounter{"solar": 3})
	acc.Accumulate("b.example", MatchCounter{"solar": 1})
	snap, err := acc.Snapshot()
	require.NoError(t, err)

	before := append([]string(nil), snap.Order...)
	_, err = Rank(snap, 0, 10)
	require.NoError(t, err)
	require.Equal(t, before, snap.Order)
}
