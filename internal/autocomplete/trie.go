// Package autocomplete implements the adaptive prefix suggestion engine.
package autocomplete

import (
	"sort"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
)

// DefaultMaxSuggestions caps every suggestion list
const DefaultMaxSuggestions = 8

// Trie is a prefix tree of lowercase terms. Each term terminates at its own
// node, so a node never holds more than one distinct term.
type Trie struct {
	root *patricia.Trie
	size int
	max  int
}

// NewTrie creates an empty trie returning at most max terms per lookup
func NewTrie(max int) *Trie {
	if max <= 0 {
		max = DefaultMaxSuggestions
	}
	return &Trie{root: patricia.NewTrie(), max: max}
}

// Insert adds a term; inserting the same term twice stores it once
func (t *Trie) Insert(term string) bool {
	term = strings.ToLower(term)
	if term == "" {
		return false
	}
	if t.root.Insert(patricia.Prefix(term), term) {
		t.size++
		return true
	}
	return false
}

// Build inserts every term of the batch
func (t *Trie) Build(terms []string) {
	for _, term := range terms {
		t.Insert(term)
	}
}

// Clear drops every term
func (t *Trie) Clear() {
	t.root = patricia.NewTrie()
	t.size = 0
}

// Len returns the number of distinct terms stored
func (t *Trie) Len() int {
	return t.size
}

// SearchPrefix collects every term below the node reached by prefix and
// returns them sorted, deduplicated and capped
func (t *Trie) SearchPrefix(prefix string) []string {
	prefix = strings.ToLower(prefix)

	seen := make(map[string]struct{})
	err := t.root.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		if term, ok := item.(string); ok {
			seen[term] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return []string{}
	}

	results := make([]string, 0, len(seen))
	for term := range seen {
		results = append(results, term)
	}
	sort.Strings(results)
	if len(results) > t.max {
		results = results[:t.max]
	}
	return results
}
