package activity

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// minSuggestRatio is the lowest similarity for a name to be suggested.
const minSuggestRatio = .6

// Suggest returns the cached name most similar to query, or "" when none is close enough.
func Suggest(coll Collection, query string) string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return ""
	}
	var (
		best      string
		bestRatio float64
	)
	for _, name := range coll.names {
		m := difflib.NewMatcher(strings.Split(query, ""), strings.Split(strings.ToLower(name), ""))
		// QuickRatio bounds Ratio from above
		if m.QuickRatio() <= bestRatio {
			continue
		}
		if ratio := m.Ratio(); ratio > bestRatio {
			best, bestRatio = name, ratio
		}
	}
	if bestRatio < minSuggestRatio {
		return ""
	}
	return best
}
