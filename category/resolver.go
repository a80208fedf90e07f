// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package category

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jcodagnone/cerca/utils/textutils"
	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the minimum similarity a candidate needs to be accepted.
const DefaultThreshold = 0.4

// ErrNotFound is returned when no category is similar enough to the input.
// It is an input error, not a system fault.
var ErrNotFound = errors.New("business type not recognized")

// Scorer returns the similarity of two normalized strings in the [0, 1] range.
type Scorer func(input, candidate string) float64

// SequenceRatio is the difflib SequenceMatcher ratio computed over characters.
func SequenceRatio(input, candidate string) float64 {
	m := difflib.NewMatcher(strings.Split(input, ""), strings.Split(candidate, ""))

	return m.Ratio()
}

// Match is a scored candidate.
type Match struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// Resolver fuzzy matches user input against a Taxonomy.
type Resolver struct {
	taxonomy  *Taxonomy
	threshold float64
	score     Scorer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(threshold float64) Option {
	return func(r *Resolver) {
		r.threshold = threshold
	}
}

// WithScorer replaces the similarity algorithm.
func WithScorer(s Scorer) Option {
	return func(r *Resolver) {
		r.score = s
	}
}

// NewResolver creates a resolver over t. A nil taxonomy means the embedded one.
func NewResolver(t *Taxonomy, opts ...Option) *Resolver {
	if t == nil {
		t = MustDefault()
	}

	r := &Resolver{
		taxonomy:  t,
		threshold: DefaultThreshold,
		score:     SequenceRatio,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Taxonomy returns the taxonomy the resolver matches against.
func (r *Resolver) Taxonomy() *Taxonomy {
	return r.taxonomy
}

// Resolve returns the canonical category closest to input. On equal scores an
// entry matched by its path or an alias beats one matched only by its leaf,
// and after that the entry declared first wins.
func (r *Resolver) Resolve(input string) (string, error) {
	query := textutils.Slug(input)
	if query == "" {
		return "", fmt.Errorf("%w: empty input", ErrNotFound)
	}

	best, bestScore := -1, scored{}

	for i, e := range r.taxonomy.entries {
		if s := r.scoreEntry(query, e); s.score >= r.threshold && s.beats(bestScore) {
			best, bestScore = i, s
		}
	}

	if best < 0 {
		return "", fmt.Errorf("%w: %q", ErrNotFound, strings.TrimSpace(input))
	}

	return r.taxonomy.entries[best].Path, nil
}

// Suggest returns up to n candidates with a positive score, best first.
func (r *Resolver) Suggest(input string, n int) []Match {
	query := textutils.Slug(input)
	if query == "" || n <= 0 {
		return nil
	}

	type candidate struct {
		path string
		scored
	}

	candidates := make([]candidate, 0, len(r.taxonomy.entries))

	for _, e := range r.taxonomy.entries {
		if s := r.scoreEntry(query, e); s.score > 0 {
			candidates = append(candidates, candidate{path: e.Path, scored: s})
		}
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		switch {
		case a.beats(b.scored):
			return -1
		case b.beats(a.scored):
			return 1
		default:
			return 0
		}
	})

	matches := make([]Match, 0, min(n, len(candidates)))
	for _, c := range candidates[:min(n, len(candidates))] {
		matches = append(matches, Match{Path: c.path, Score: c.score})
	}

	return matches
}

type scored struct {
	score  float64
	byLeaf bool
}

func (s scored) beats(other scored) bool {
	if s.score != other.score {
		return s.score > other.score
	}

	return !s.byLeaf && other.byLeaf
}

// scoreEntry is the best score of query against the entry path, its leaf and
// its aliases.
func (r *Resolver) scoreEntry(query string, e Entry) scored {
	best := r.score(query, e.Path)

	for _, alias := range e.Aliases {
		best = max(best, r.score(query, alias))
	}

	if leaf := r.score(query, e.Leaf()); leaf > best {
		return scored{score: leaf, byLeaf: true}
	}

	return scored{score: best}
}
