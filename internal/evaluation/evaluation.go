// Package evaluation scores candidate pairs against known duplicate groups.
package evaluation

import (
	"slices"
	"strings"

	"github.com/ludo-technologies/simdup/internal/ingest"
	"github.com/ludo-technologies/simdup/internal/lsh"
)

// Group is a set of item ids sharing a duplicate label.
type Group struct {
	Label string   `json:"label" yaml:"label"`
	IDs   []string `json:"ids" yaml:"ids"`
}

// DuplicateGroups collects items by group label. Only labels with at least
// two members form a group. Groups are sorted by label and ids within a
// group are sorted.
func DuplicateGroups(items []ingest.Item) []Group {
	byLabel := make(map[string][]string)
	for _, it := range items {
		if it.Group == "" {
			continue
		}
		byLabel[it.Group] = append(byLabel[it.Group], it.ID)
	}

	groups := make([]Group, 0, len(byLabel))
	for label, ids := range byLabel {
		if len(ids) < 2 {
			continue
		}
		slices.Sort(ids)
		groups = append(groups, Group{Label: label, IDs: ids})
	}
	slices.SortFunc(groups, func(a, b Group) int { return strings.Compare(a.Label, b.Label) })
	return groups
}

// PairwiseDuplicates expands every group into all its 2-combinations.
func PairwiseDuplicates(groups []Group) []lsh.Pair {
	var pairs []lsh.Pair
	for _, g := range groups {
		for i := 0; i < len(g.IDs); i++ {
			for j := i + 1; j < len(g.IDs); j++ {
				pairs = append(pairs, lsh.NewPair(g.IDs[i], g.IDs[j]))
			}
		}
	}
	sortPairs(pairs)
	return pairs
}

// FindGroup returns the index of the group holding both ids of p.
func FindGroup(p lsh.Pair, groups []Group) (int, bool) {
	for i, g := range groups {
		if slices.Contains(g.IDs, p.A) && slices.Contains(g.IDs, p.B) {
			return i, true
		}
	}
	return 0, false
}

// DuplicatesFound returns the candidates whose ids fall in one group.
// Groups may have any size.
func DuplicatesFound(candidates []lsh.Pair, groups []Group) []lsh.Pair {
	member := make(map[string][]int)
	for gi, g := range groups {
		for _, id := range g.IDs {
			member[id] = append(member[id], gi)
		}
	}

	found := []lsh.Pair{}
	seen := make(map[lsh.Pair]struct{})
	for _, c := range candidates {
		c = lsh.NewPair(c.A, c.B)
		if _, dup := seen[c]; dup || c.A == c.B {
			continue
		}
		for _, ga := range member[c.A] {
			if slices.Contains(member[c.B], ga) {
				seen[c] = struct{}{}
				found = append(found, c)
				break
			}
		}
	}
	sortPairs(found)
	return found
}

// DuplicatesFoundPairwise returns the candidates present in the true pair
// set. It agrees with DuplicatesFound when every group has two members.
func DuplicatesFoundPairwise(candidates, duplicates []lsh.Pair) []lsh.Pair {
	truth := make(map[lsh.Pair]struct{}, len(duplicates))
	for _, d := range duplicates {
		truth[lsh.NewPair(d.A, d.B)] = struct{}{}
	}
	found := []lsh.Pair{}
	for _, c := range candidates {
		c = lsh.NewPair(c.A, c.B)
		if _, ok := truth[c]; ok {
			found = append(found, c)
			delete(truth, c)
		}
	}
	sortPairs(found)
	return found
}

// TotalPossibleComparisons is n(n-1)/2.
func TotalPossibleComparisons(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// PairQuality is the percentage of candidates that are duplicates, 0 when
// there are no candidates.
func PairQuality(found, candidates int) float64 {
	if candidates == 0 {
		return 0
	}
	return float64(found) / float64(candidates) * 100
}

// PairCompleteness is the percentage of true duplicate pairs among the
// candidates, 0 when there are none to find.
func PairCompleteness(found, duplicates int) float64 {
	if duplicates == 0 {
		return 0
	}
	return float64(found) / float64(duplicates) * 100
}

// F1 is the harmonic mean of pair quality and pair completeness.
func F1(quality, completeness float64) float64 {
	if quality+completeness == 0 {
		return 0
	}
	return 2 * quality * completeness / (quality + completeness)
}

// FractionOfComparisons is candidates over all possible comparisons of n
// items.
func FractionOfComparisons(candidates, n int) float64 {
	total := TotalPossibleComparisons(n)
	if total == 0 {
		return 0
	}
	return float64(candidates) / float64(total)
}

// Report summarises how well a candidate set covers the known duplicates.
type Report struct {
	Items                 int     `json:"items" yaml:"items"`
	Groups                int     `json:"groups" yaml:"groups"`
	DuplicatePairs        int     `json:"duplicate_pairs" yaml:"duplicate_pairs"`
	CandidatePairs        int     `json:"candidate_pairs" yaml:"candidate_pairs"`
	DuplicatesFound       int     `json:"duplicates_found" yaml:"duplicates_found"`
	PairQuality           float64 `json:"pair_quality" yaml:"pair_quality"`
	PairCompleteness      float64 `json:"pair_completeness" yaml:"pair_completeness"`
	F1                    float64 `json:"f1" yaml:"f1"`
	FractionOfComparisons float64 `json:"fraction_of_comparisons" yaml:"fraction_of_comparisons"`
}

// Evaluate scores candidates against the groups labelled on items. The
// second result is false when no item carries a usable group label.
func Evaluate(items []ingest.Item, candidates []lsh.Pair) (Report, bool) {
	groups := DuplicateGroups(items)
	if len(groups) == 0 {
		return Report{}, false
	}
	truth := PairwiseDuplicates(groups)
	found := DuplicatesFound(candidates, groups)

	r := Report{
		Items:           len(items),
		Groups:          len(groups),
		DuplicatePairs:  len(truth),
		CandidatePairs:  len(candidates),
		DuplicatesFound: len(found),
	}
	r.PairQuality = PairQuality(r.DuplicatesFound, r.CandidatePairs)
	r.PairCompleteness = PairCompleteness(r.DuplicatesFound, r.DuplicatePairs)
	r.F1 = F1(r.PairQuality, r.PairCompleteness)
	r.FractionOfComparisons = FractionOfComparisons(r.CandidatePairs, r.Items)
	return r, true
}

func sortPairs(pairs []lsh.Pair) {
	slices.SortFunc(pairs, func(x, y lsh.Pair) int {
		if c := strings.Compare(x.A, y.A); c != 0 {
			return c
		}
		return strings.Compare(x.B, y.B)
	})
}
