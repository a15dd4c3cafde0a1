package chatbot

import (
	"sort"
	"strings"
	"unicode"
)

// Knowledge-base match thresholds on the 0-100 token-set scale. Tests depend
// on boundary behavior around these values, keep them in sync with the
// resolver chain.
const (
	// FactualMatchThreshold is the minimum score for a factual entry to win.
	FactualMatchThreshold = 80
	// WebsiteMatchThreshold is the minimum score for a website entry to win.
	WebsiteMatchThreshold = 70
)

// Match is the result of scoring a query against a keyed corpus.
type Match struct {
	Trigger string
	Reply   string
	Score   int
}

// BestMatch scores query against every trigger in corpus and returns the
// highest-scoring entry. Ties break on the lexicographically smaller trigger
// so repeated calls over the unordered map are deterministic.
func BestMatch(query string, corpus map[string]string) (Match, bool) {
	best := Match{Score: -1}
	for trigger, reply := range corpus {
		score := TokenSetRatio(query, trigger)
		if score > best.Score || (score == best.Score && trigger < best.Trigger) {
			best = Match{Trigger: trigger, Reply: reply, Score: score}
		}
	}
	if best.Score < 0 {
		return Match{}, false
	}
	return best, true
}

// TokenSetRatio computes a word-order and duplication insensitive similarity
// score between two phrases on a 0-100 scale. Both phrases are reduced to
// token sets; the score is the best pairwise edit-distance ratio between the
// sorted intersection and each side's intersection-plus-remainder string.
func TokenSetRatio(a, b string) int {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	for tok := range tokensA {
		if tokensB[tok] {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tokensB {
		if !tokensA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	left := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	right := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	score := editRatio(base, left)
	if s := editRatio(base, right); s > score {
		score = s
	}
	if s := editRatio(left, right); s > score {
		score = s
	}
	return score
}

// tokenSet splits a phrase into a set of lowercase alphanumeric tokens.
func tokenSet(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// editRatio is the normalized edit-distance similarity of two strings,
// scaled to 0-100.
func editRatio(a, b string) int {
	if a == "" && b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	dist := editDistance(ra, rb)
	return int(float64(total-dist)/float64(total)*100 + 0.5)
}

// editDistance is a two-row Levenshtein DP with substitutions costing 2, so
// that (total-dist)/total matches the classic sequence-matcher ratio.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 2
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
