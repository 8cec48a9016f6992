// Package keywords expands seed terms into a richer keyword set for
// discovery runs. Seeds are bucketed by shape and combined pairwise
// across buckets to produce multi-word search phrases.
package keywords

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const shortWordMax = 5

// GeneratedSet is the serializable result of a keyword expansion.
type GeneratedSet struct {
	SeedWords    []string            `json:"seed_words"`
	Categories   map[string][]string `json:"categories"`
	Combinations []string            `json:"combinations"`
	AllKeywords  []string            `json:"all_keywords"`
}

// Normalize lowercases and trims seeds, dropping empties and duplicates
// while preserving first-seen order.
func Normalize(seeds []string) []string {
	seen := make(map[string]struct{}, len(seeds))
	out := make([]string, 0, len(seeds))
	for _, s := range seeds {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Categorize buckets normalized seeds by shape: multi-word seeds become
// phrases, short single words land in short_words, the rest in main_terms.
func Categorize(seeds []string) map[string][]string {
	cats := make(map[string][]string)
	for _, s := range seeds {
		switch {
		case strings.Contains(s, " "):
			cats["phrases"] = append(cats["phrases"], s)
		case len(s) < shortWordMax:
			cats["short_words"] = append(cats["short_words"], s)
		default:
			cats["main_terms"] = append(cats["main_terms"], s)
		}
	}
	return cats
}

// Combine joins every word from one category with every word from each
// other category, producing two-word phrases. Category pairs are walked
// in sorted name order so output is deterministic.
func Combine(cats map[string][]string) []string {
	names := make([]string, 0, len(cats))
	for name := range cats {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]struct{})
	var combos []string
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			for _, w1 := range cats[names[i]] {
				for _, w2 := range cats[names[j]] {
					phrase := w1 + " " + w2
					if _, dup := seen[phrase]; dup {
						continue
					}
					seen[phrase] = struct{}{}
					combos = append(combos, phrase)
				}
			}
		}
	}
	return combos
}

// Generate runs the full expansion over raw seed terms.
func Generate(seeds []string) (*GeneratedSet, error) {
	normalized := Normalize(seeds)
	if len(normalized) == 0 {
		return nil, fmt.Errorf("keywords: no usable seed terms")
	}

	cats := Categorize(normalized)
	combos := Combine(cats)

	all := make([]string, 0, len(normalized)+len(combos))
	all = append(all, normalized...)
	all = append(all, combos...)

	return &GeneratedSet{
		SeedWords:    normalized,
		Categories:   cats,
		Combinations: combos,
		AllKeywords:  all,
	}, nil
}

// ReadSeeds loads seed terms from a reader, one per line. Blank lines
// and lines starting with '#' are skipped.
func ReadSeeds(r io.Reader) ([]string, error) {
	var seeds []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("keywords: reading seeds: %w", err)
	}
	return seeds, nil
}

// GenerateFromFile reads seeds from path and writes the expanded set as
// JSON to outPath.
func GenerateFromFile(path, outPath string) (*GeneratedSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("keywords: opening seed file: %w", err)
	}
	defer f.Close()

	seeds, err := ReadSeeds(f)
	if err != nil {
		return nil, err
	}

	set, err := Generate(seeds)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("keywords: encoding result: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("keywords: writing %s: %w", outPath, err)
	}
	return set, nil
}
