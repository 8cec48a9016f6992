package dork

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateDorks_SimpleSubstitution(t *testing.T) {
	t.Parallel()

	dorks := GenerateDorks([]string{"solar"}, nil)
	require.Contains(t, dorks, `"solar"`)
	require.Contains(t, dorks, `intitle:"solar"`)
	require.Contains(t, dorks, `site:.gov "solar"`)
	require.Contains(t, dorks, `"solar" -site:wikipedia.org`)
}

func TestGenerateDorks_SkipsDomainTemplatesWithoutTargets(t *testing.T) {
	t.Parallel()

	dorks := GenerateDorks([]string{"solar"}, nil)
	for _, d := range dorks {
		require.NotContains(t, d, "{domain}")
		require.NotContains(t, d, "{country_tld}")
		require.NotContains(t, d, "related:")
	}
}

func TestGenerateDorks_TargetedDomains(t *testing.T) {
	t.Parallel()

	dorks := GenerateDorks([]string{"solar"}, []string{"energy.example"})
	require.Contains(t, dorks, `site:energy.example "solar"`)
	require.Contains(t, dorks, `related:energy.example`)
}

func TestGenerateDorks_CountryTLDs(t *testing.T) {
	t.Parallel()

	dorks := GenerateDorks([]string{"solar"}, nil)
	require.Contains(t, dorks, `"solar" site:.de`)
	require.Contains(t, dorks, `"solar" site:.jp`)
}

func TestGenerateDorks_RelatedKeywordPairs(t *testing.T) {
	t.Parallel()

	dorks := GenerateDorks([]string{"solar", "battery"}, nil)
	require.Contains(t, dorks, `"solar" AND "solar battery"`)
	require.Contains(t, dorks, `"battery" OR "solar battery"`)
}

func TestGenerateDorks_Deterministic(t *testing.T) {
	t.Parallel()

	a := GenerateDorks([]string{"solar", "battery"}, []string{"energy.example"})
	b := GenerateDorks([]string{"solar", "battery"}, []string{"energy.example"})
	require.Equal(t, a, b)

	seen := make(map[string]struct{}, len(a))
	for _, d := range a {
		_, dup := seen[d]
		require.False(t, dup, "duplicate dork: %s", d)
		seen[d] = struct{}{}
	}
}

func TestRelatedKeywords_FallsBackToKeywords(t *testing.T) {
	t.Parallel()

	related := relatedKeywords([]string{"solar"})
	require.Equal(t, []string{"solar"}, related)

	related = relatedKeywords([]string{"a", "b", "c"})
	for _, r := range related {
		require.True(t, strings.Contains(r, " "))
	}
}
