package join

import (
	"math"
	"sort"
	"strings"

	"site-file-enricher/pkg/textutil"

	"github.com/antzucaro/matchr"
)

// Scorer picks the candidate most similar to query, scores are in [0, 100].
type Scorer interface {
	Best(query string, candidates []string) (string, int)
}

// RatioScorer is a weighted combination of edit distance ratios over the
// normalized names, whole-string and token based. When the lengths differ
// by 1.5x or more the best matching substring is scored instead of the
// whole string.
type RatioScorer struct{}

// Best returns the first candidate with the highest score.
func (s RatioScorer) Best(query string, candidates []string) (string, int) {
	best := ""
	bestScore := -1
	for _, c := range candidates {
		score := s.Score(query, c)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	if bestScore < 0 {
		return "", 0
	}
	return best, bestScore
}

func (RatioScorer) Score(a, b string) int {
	a = textutil.NormalizeName(a)
	b = textutil.NormalizeName(b)
	if a == "" || b == "" {
		return 0
	}

	base := ratio(a, b)

	short, long := runeLen(a), runeLen(b)
	if short > long {
		short, long = long, short
	}
	lengthRatio := float64(long) / float64(short)

	if lengthRatio < 1.5 {
		return round(max(
			base,
			tokenSortRatio(a, b, ratio)*0.95,
			tokenSetRatio(a, b, ratio)*0.95,
		))
	}

	scale := 0.9
	if lengthRatio > 8 {
		scale = 0.6
	}
	return round(max(
		base,
		partialRatio(a, b)*scale,
		tokenSortRatio(a, b, partialRatio)*0.95*scale,
		tokenSetRatio(a, b, partialRatio)*0.95*scale,
	))
}

func round(score float64) int {
	return int(math.Round(score))
}

func runeLen(s string) int {
	return len([]rune(s))
}

// ratio is 100 for equal strings and 0 when every rune has to be edited.
func ratio(a, b string) float64 {
	longest := max(runeLen(a), runeLen(b))
	if longest == 0 {
		return 0
	}
	distance := matchr.Levenshtein(a, b)
	return 100 * (1 - float64(distance)/float64(longest))
}

// partialRatio is the best ratio of the shorter string against every
// equally long window of the longer one.
func partialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	shortStr := string(short)
	best := 0.0
	for start := 0; start+len(short) <= len(long); start++ {
		score := ratio(shortStr, string(long[start:start+len(short)]))
		if score > best {
			best = score
		}
		if best == 100 {
			break
		}
	}
	return best
}

func sortedTokens(s string) []string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return tokens
}

func tokenSortRatio(a, b string, compare func(a, b string) float64) float64 {
	return compare(
		strings.Join(sortedTokens(a), " "),
		strings.Join(sortedTokens(b), " "),
	)
}

func tokenSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, t := range strings.Fields(s) {
		set[t] = struct{}{}
	}
	return set
}

func difference(a, b map[string]struct{}) []string {
	var out []string
	for t := range a {
		if _, ok := b[t]; !ok {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// tokenSetRatio compares the shared tokens against each side's full token
// set, so that extra words on one side are not penalized.
func tokenSetRatio(a, b string, compare func(a, b string) float64) float64 {
	setA, setB := tokenSet(a), tokenSet(b)

	var shared []string
	for t := range setA {
		if _, ok := setB[t]; ok {
			shared = append(shared, t)
		}
	}
	sort.Strings(shared)

	intersection := strings.Join(shared, " ")
	combinedA := strings.TrimSpace(intersection + " " + strings.Join(difference(setA, setB), " "))
	combinedB := strings.TrimSpace(intersection + " " + strings.Join(difference(setB, setA), " "))

	return max(
		compare(intersection, combinedA),
		compare(intersection, combinedB),
		compare(combinedA, combinedB),
	)
}
