package extract

import (
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyKeywordSet indicates no usable keyword was supplied. There is
// nothing to score, so a run cannot proceed.
var ErrEmptyKeywordSet = errors.New("keyword set is empty")

// KeywordSet is an ordered, deduplicated collection of case-insensitive match
// terms, fixed for the lifetime of one run. Each keyword is compiled into a
// whole-word matcher so "solar" never matches inside "solarium".
type KeywordSet struct {
	terms    []string
	patterns []*regexp.Regexp
}

// NewKeywordSet normalizes (lower-case, trimmed), deduplicates preserving
// first-seen order, and compiles the supplied terms. Returns
// ErrEmptyKeywordSet when nothing usable remains.
func NewKeywordSet(terms []string) (*KeywordSet, error) {
	seen := make(map[string]struct{}, len(terms))
	ks := &KeywordSet{}
	for _, raw := range terms {
		term := strings.ToLower(strings.TrimSpace(raw))
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		if err != nil {
			return nil, err
		}
		ks.terms = append(ks.terms, term)
		ks.patterns = append(ks.patterns, pattern)
	}
	if len(ks.terms) == 0 {
		return nil, ErrEmptyKeywordSet
	}
	return ks, nil
}

// Terms returns the normalized keywords in insertion order.
func (k *KeywordSet) Terms() []string {
	out := make([]string, len(k.terms))
	copy(out, k.terms)
	return out
}

// Len reports the number of keywords.
func (k *KeywordSet) Len() int {
	return len(k.terms)
}

// Match counts whole-word, case-insensitive occurrences of every keyword in
// text. Pure function: no state is touched. Empty text yields a counter with
// all-zero counts.
func (k *KeywordSet) Match(text string) MatchCounter {
	counter := make(MatchCounter, len(k.terms))
	if text == "" {
		return counter
	}
	for i, term := range k.terms {
		counter[term] = len(k.patterns[i].FindAllStringIndex(text, -1))
	}
	return counter
}

// JoinFragments concatenates the fragments for one candidate unit with single
// spaces. Matching happens over the joined text, not per fragment, so a
// keyword split across fragments is not double-counted.
func JoinFragments(fragments []string) string {
	return strings.Join(fragments, " ")
}
