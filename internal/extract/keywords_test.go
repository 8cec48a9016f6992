package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewKeywordSet_NormalizesAndDeduplicates(t *testing.T) {
	t.Parallel()

	ks, err := NewKeywordSet([]string{" Solar ", "battery", "SOLAR", "", "  "})
	require.NoError(t, err)
	require.Equal(t, []string{"solar", "battery"}, ks.Terms())
}

func TestNewKeywordSet_EmptyFailsFast(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"nil":       nil,
		"empty":     {},
		"all blank": {"", "   ", "\t"},
	}
	for name, terms := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewKeywordSet(terms)
			require.ErrorIs(t, err, ErrEmptyKeywordSet)
		})
	}
}

func TestKeywordSet_Match(t *testing.T) {
	t.Parallel()

	ks, err := NewKeywordSet([]string{"solar", "battery"})
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want MatchCounter
	}{
		{
			name: "counts case-insensitive whole words",
			text: "Solar power and battery storage. Solar panels.",
			want: MatchCounter{"solar": 2, "battery": 1},
		},
		{
			name: "no substring matches inside longer words",
			text: "solarium batteries",
			want: MatchCounter{"solar": 0, "battery": 0},
		},
		{
			name: "empty text yields zero counts",
			text: "",
			want: MatchCounter{},
		},
		{
			name: "punctuation still delimits words",
			text: "solar,battery;solar!",
			want: MatchCounter{"solar": 2, "battery": 1},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ks.Match(tc.text)
			for term, count := range tc.want {
				require.Equal(t, count, got[term], "term %q", term)
			}
			require.Zero(t, got.Total()-tc.want.Total())
		})
	}
}

func TestKeywordSet_MatchIsPure(t *testing.T) {
	t.Parallel()

	ks, err := NewKeywordSet([]string{"grid"})
	require.NoError(t, err)

	first := ks.Match("grid grid")
	second := ks.Match("grid grid")
	require.Equal(t, first, second)
	require.Equal(t, 2, first["grid"])
}

func TestJoinFragments(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a b c", JoinFragments([]string{"a", "b", "c"}))
	require.Equal(t, "", JoinFragments(nil))
}

func TestObservationScore(t *testing.T) {
	t.Parallel()

	// keywords = [solar battery], text hits solar twice and battery once:
	// 3 matches across 2 distinct keywords -> 3 * (1 + 0.1*2) = 3.6.
	counter := MatchCounter{"solar": 2, "battery": 1}
	require.InDelta(t, 3.6, ObservationScore(counter), 1e-9)

	require.Zero(t, ObservationScore(MatchCounter{}))
	require.Zero(t, ObservationScore(MatchCounter{"solar": 0}))
}
