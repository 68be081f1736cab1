// Package ranker folds repeated keyword occurrences into counted entries
// and returns the top-N by descending count, preserving first-seen order
// for ties.
package ranker

import (
	"sort"
	"strings"

	"gdelt-trends/internal/trend"
)

type entry struct {
	word      string
	count     int
	documents map[string]bool
	seenOrder int
}

// RankByCount folds items with the same Word (case-insensitively) into a
// single entry summing Count and unioning Documents, sorts descending by
// count, and returns the first topN. Ties keep first-seen order. Items with
// an empty Word are skipped silently.
func RankByCount(items []trend.Keyword, topN int) []trend.Keyword {
	order := make([]string, 0, len(items))
	byWord := make(map[string]*entry, len(items))

	for _, it := range items {
		word := strings.ToLower(strings.TrimSpace(it.Word))
		if word == "" {
			continue
		}
		e, ok := byWord[word]
		if !ok {
			count := it.Count
			if count == 0 {
				count = 1
			}
			e = &entry{word: word, count: 0, seenOrder: len(order)}
			byWord[word] = e
			order = append(order, word)
			e.count += count
		} else {
			count := it.Count
			if count == 0 {
				count = 1
			}
			e.count += count
		}
		if len(it.Documents) > 0 {
			if e.documents == nil {
				e.documents = make(map[string]bool, len(it.Documents))
			}
			for id := range it.Documents {
				e.documents[id] = true
			}
		}
	}

	entries := make([]*entry, 0, len(order))
	for _, w := range order {
		entries = append(entries, byWord[w])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].count > entries[j].count
	})

	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}

	out := make([]trend.Keyword, 0, len(entries))
	for _, e := range entries {
		out = append(out, trend.Keyword{Word: e.word, Count: e.count, Documents: e.documents})
	}
	return out
}

// RankBag ranks a plain bag of strings (each occurrence counts as 1), used
// for the Collector's themes/persons/orgs bags.
func RankBag(bag []string, topN int) []trend.Keyword {
	items := make([]trend.Keyword, 0, len(bag))
	for _, w := range bag {
		items = append(items, trend.Keyword{Word: w, Count: 1})
	}
	return RankByCount(items, topN)
}
