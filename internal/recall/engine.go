// Package recall retrieves prior memories for a query, either by
// conjunctive keyword filtering (lexical mode) or by embedding similarity
// (semantic mode). The engine reports capability failures as
// ErrSearchUnavailable so callers can tell "no matches" from "search
// broke", even though both read the same to the user.
package recall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/remembot/remembot/internal/memory"
)

// ErrSearchUnavailable marks a transient retrieval failure (embedding call
// or store query errored). It is never returned for an empty result set.
var ErrSearchUnavailable = errors.New("search unavailable")

// Embedder provides the text embedding capability.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Defaults for the semantic operating point and result caps.
const (
	DefaultLimit     = 5
	DefaultThreshold = 0.65
)

// Function words stripped from queries before lexical matching.
var stopwords = map[string]struct{}{
	"when": {}, "did": {}, "i": {}, "have": {}, "any": {}, "is": {}, "was": {},
	"the": {}, "a": {}, "an": {}, "tell": {}, "me": {}, "about": {},
	"what": {}, "show": {}, "my": {}, "please": {},
}

// ExtractKeywords normalizes text and keeps the non-trivial words: longer
// than two characters and not a stopword.
func ExtractKeywords(text string) []string {
	var out []string
	for _, w := range splitWords(memory.Normalize(text)) {
		if len(w) <= 2 {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		out = append(out, w)
	}
	return out
}

func splitWords(t string) []string {
	return strings.FieldsFunc(t, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Engine ranks candidate memories for a query. A nil embedder pins the
// engine to lexical mode; otherwise semantic mode is used.
type Engine struct {
	store     memory.Store
	embedder  Embedder
	threshold float32
	limit     int
	log       zerolog.Logger
}

// NewEngine builds an engine over store. threshold and limit fall back to
// the package defaults when zero.
func NewEngine(store memory.Store, embedder Embedder, threshold float32, limit int, log zerolog.Logger) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Engine{store: store, embedder: embedder, threshold: threshold, limit: limit, log: log}
}

// Recall returns up to limit memories relevant to query, most relevant or
// most recent first. limit <= 0 selects the engine default. A nil, nil
// return means nothing matched; an ErrSearchUnavailable return means the
// search capability failed.
func (e *Engine) Recall(ctx context.Context, owner, query string, limit int) ([]memory.Memory, error) {
	if limit <= 0 {
		limit = e.limit
	}
	if e.embedder != nil {
		return e.semantic(ctx, owner, query, limit)
	}
	return e.lexical(ctx, owner, query, limit)
}

// lexical filters by stopword-stripped keywords. A query that is all
// stopwords yields nothing rather than the entire store.
func (e *Engine) lexical(ctx context.Context, owner, query string, limit int) ([]memory.Memory, error) {
	keywords := ExtractKeywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}
	results, err := e.store.SearchMemories(ctx, owner, keywords, limit)
	if err != nil {
		e.log.Warn().Err(err).Str("owner", owner).Msg("lexical search failed")
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	return results, nil
}

func (e *Engine) semantic(ctx context.Context, owner, query string, limit int) ([]memory.Memory, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.log.Warn().Err(err).Str("owner", owner).Msg("query embedding failed")
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	results, err := e.store.SimilaritySearch(ctx, owner, vec, e.threshold, limit)
	if err != nil {
		e.log.Warn().Err(err).Str("owner", owner).Msg("similarity search failed")
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	return results, nil
}
