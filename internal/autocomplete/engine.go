package autocomplete

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/fabienpiette/partfox/internal/catalog"
	"github.com/fabienpiette/partfox/internal/models"
)

// DefaultHistorySize is the number of distinct prefixes remembered before the
// trie is rebuilt from scratch
const DefaultHistorySize = 4

// Fetcher retrieves fresh catalog records for a prefix
type Fetcher func(ctx context.Context, prefix string) ([]models.RawRecord, error)

// Options tunes the engine
type Options struct {
	HistorySize    int
	MaxSuggestions int
	Similar        Matcher
}

// Stats is a snapshot of the engine state
type Stats struct {
	TrieTerms      int      `json:"trie_terms"`
	SubstringTerms int      `json:"substring_terms"`
	History        []string `json:"history"`
	LatestPrefix   string   `json:"latest_prefix"`
	Rebuilds       int64    `json:"rebuilds"`
	LiveFailures   int64    `json:"live_failures"`
}

// Engine serves prefix suggestions from a trie with a substring fallback. The
// trie learns terms from ingested results and is reset once enough unrelated
// prefixes have been seen. Safe for concurrent use.
type Engine struct {
	mu         sync.RWMutex
	trie       *Trie
	substrings map[string]struct{}
	history    []string
	latest     string
	rebuilds   int64
	failures   int64

	historySize int
	max         int
	similar     Matcher
	logger      *logrus.Logger
}

// NewEngine creates an empty engine
func NewEngine(opts Options, logger *logrus.Logger) *Engine {
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = DefaultMaxSuggestions
	}
	if opts.Similar == nil {
		opts.Similar = DistanceMatcher(2)
	}

	return &Engine{
		trie:        NewTrie(opts.MaxSuggestions),
		substrings:  make(map[string]struct{}),
		history:     make([]string, 0, opts.HistorySize),
		historySize: opts.HistorySize,
		max:         opts.MaxSuggestions,
		similar:     opts.Similar,
		logger:      logger,
	}
}

// Terms derives the suggestion terms of a batch: full lowercase name, each
// name token, reference code and brand
func Terms(items []models.NormalizedItem) []string {
	set := make(map[string]struct{})
	for _, item := range items {
		name := strings.ToLower(strings.TrimSpace(item.Name))
		if name != "" {
			set[name] = struct{}{}
			for _, word := range strings.Fields(name) {
				set[word] = struct{}{}
			}
		}
		if code := strings.ToLower(strings.TrimSpace(item.ReferenceCode)); code != "" {
			set[code] = struct{}{}
		}
		if brand := strings.ToLower(strings.TrimSpace(item.Brand)); brand != "" {
			set[brand] = struct{}{}
		}
	}

	terms := make([]string, 0, len(set))
	for term := range set {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Ingest learns the terms of a batch of items. A non-empty prefix is recorded
// in the prefix history unless it is similar to one already there; when the
// history fills up the trie is rebuilt from this batch alone.
func (e *Engine) Ingest(items []models.NormalizedItem, prefix string) {
	terms := Terms(items)
	prefix = normalizePrefix(prefix)

	e.mu.Lock()
	defer e.mu.Unlock()

	if prefix != "" && e.record(prefix) {
		e.trie.Clear()
		e.history = append(e.history[:0], e.latest)
		e.trie.Build(terms)
		e.rebuilds++

		e.logger.WithFields(logrus.Fields{
			"prefix": prefix,
			"terms":  len(terms),
		}).Info("Autocomplete trie rebuilt")
	} else {
		e.trie.Build(terms)
	}

	for _, term := range terms {
		e.substrings[term] = struct{}{}
	}

	e.logger.WithFields(logrus.Fields{
		"prefix":  prefix,
		"terms":   len(terms),
		"history": len(e.history),
	}).Debug("Autocomplete terms ingested")
}

// record adds prefix to the history and reports whether a rebuild is due
func (e *Engine) record(prefix string) bool {
	if !e.isSimilar(prefix) {
		if len(e.history) == e.historySize {
			e.history = append(e.history[:0], e.history[1:]...)
		}
		e.history = append(e.history, prefix)
		e.latest = prefix
	}
	return len(e.history) >= e.historySize
}

func (e *Engine) isSimilar(prefix string) bool {
	for _, seen := range e.history {
		if e.similar(prefix, seen) {
			return true
		}
	}
	return false
}

// Search returns up to the configured number of suggestions for prefix. When
// the trie has nothing it falls back to terms containing prefix anywhere.
func (e *Engine) Search(prefix string) []string {
	prefix = normalizePrefix(prefix)

	e.mu.RLock()
	defer e.mu.RUnlock()

	if results := e.trie.SearchPrefix(prefix); len(results) > 0 {
		return results
	}

	matches := make([]string, 0, e.max)
	for term := range e.substrings {
		if strings.Contains(term, prefix) {
			matches = append(matches, term)
		}
	}
	sort.Strings(matches)
	if len(matches) > e.max {
		matches = matches[:e.max]
	}
	return matches
}

// SearchLive fetches fresh records for prefix, learns them and answers from
// the updated state. Fetch failures are logged and the local state answers.
func (e *Engine) SearchLive(ctx context.Context, prefix string, fetch Fetcher) []string {
	prefix = normalizePrefix(prefix)

	records, err := fetch(ctx, prefix)
	if err != nil {
		e.mu.Lock()
		e.failures++
		e.mu.Unlock()

		e.logger.WithError(err).WithFields(logrus.Fields{
			"prefix": prefix,
			"kind":   models.UpstreamKind(err),
		}).Warn("Live autocomplete fetch failed, using local suggestions")
	} else {
		e.Ingest(catalog.Normalize(records), prefix)
	}

	return e.Search(prefix)
}

// Stats returns a snapshot of the engine state
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	history := make([]string, len(e.history))
	copy(history, e.history)

	return Stats{
		TrieTerms:      e.trie.Len(),
		SubstringTerms: len(e.substrings),
		History:        history,
		LatestPrefix:   e.latest,
		Rebuilds:       e.rebuilds,
		LiveFailures:   e.failures,
	}
}

func normalizePrefix(prefix string) string {
	return strings.ToLower(strings.TrimSpace(prefix))
}
