package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterNew_DropsKnownDomains(t *testing.T) {
	t.Parallel()

	candidates := []DomainRecord{
		{Domain: "a.example", Score: 3.6},
		{Domain: "c.example", Score: 1.1},
	}
	existing := map[string]struct{}{"a.example": {}}

	fresh := FilterNew(candidates, existing)
	require.Len(t, fresh, 1)
	require.Equal(t, "c.example", fresh[0].Domain)
}

func TestFilterNew_PreservesOrder(t *testing.T) {
	t.Parallel()

	candidates := []DomainRecord{
		{Domain: "z.example"},
		{Domain: "m.example"},
		{Domain: "a.example"},
	}

	fresh := FilterNew(candidates, map[string]struct{}{"m.example": {}})
	require.Equal(t, "z.example", fresh[0].Domain)
	require.Equal(t, "a.example", fresh[1].Domain)
}

func TestFilterNew_ExactMatchOnly(t *testing.T) {
	t.Parallel()

	// Subdomains are distinct from their parent.
	candidates := []DomainRecord{{Domain: "shop.a.example"}}
	fresh := FilterNew(candidates, map[string]struct{}{"a.example": {}})
	require.Len(t, fresh, 1)
}

func TestFilterNew_EmptyInputs(t *testing.T) {
	t.Parallel()

	require.Empty(t, FilterNew(nil, map[string]struct{}{"a.example": {}}))

	candidates := []DomainRecord{{Domain: "a.example"}}
	fresh := FilterNew(candidates, nil)
	require.Len(t, fresh, 1)

	// Returned slice is detached from the input.
	fresh[0].Domain = "mutated.example"
	require.Equal(t, "a.example", candidates[0].Domain)
}
