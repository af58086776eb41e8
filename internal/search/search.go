// Package search implements the fuzzy-matching fallback used for SFX name
// resolution and for recovering a usable result when the out-of-scope
// media-fetcher collaborator can't resolve a query. Scoring is a direct
// generalization of the teacher's internal/search/fuzzy.go: a substring
// bonus plus a Levenshtein-distance bonus, blended into one score and
// sorted descending.
package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Entry is one named candidate a Find call scores against a query — an SFX
// clip's basename, a cached source title, or similar.
type Entry struct {
	Name string
	Path string
}

type scored struct {
	entry Entry
	score float64
}

// Find scores every entry against query and returns up to limit entries
// with a positive score, best match first. limit <= 0 means unbounded.
func Find(entries []Entry, query string, limit int) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var results []scored
	for _, e := range entries {
		if s := matchScore(q, e.Name); s > 0 {
			results = append(results, scored{entry: e, score: s})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	out := make([]Entry, len(results))
	for i, r := range results {
		out[i] = r.entry
	}
	return out
}

// Best returns the single highest-scoring entry, or false if nothing
// scored positively.
func Best(entries []Entry, query string) (Entry, bool) {
	found := Find(entries, query, 1)
	if len(found) == 0 {
		return Entry{}, false
	}
	return found[0], true
}

func matchScore(queryLower, name string) float64 {
	nameLower := strings.ToLower(name)
	score := 0.0

	if strings.Contains(nameLower, queryLower) {
		score += 10.0
	}

	distance := fuzzy.LevenshteinDistance(queryLower, nameLower)
	if distance <= len(queryLower)/2+1 {
		score += float64(len(queryLower) - distance)
	}

	return score
}
