// internal/matcher/matcher.go
//
// Fuzzy movie title search.
// Responsibilities:
//   - Fetch candidates for a free-text query from the title search provider.
//   - Score each candidate title against the query (Ratio, case-folded).
//   - Drop candidates under the threshold, stable-sort by score, truncate.
//   - Resolve a display image per surviving result, falling back to a placeholder.
//
// Notes:
//   - Image lookups happen after truncation, so at most `limit` extra provider calls.
//   - An empty result is not an error; provider failures are.

package matcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/robalobadob/movieguess/apps/go-server/internal/movie"
)

const (
	DefaultThreshold = 60
	DefaultLimit     = 5

	// FallbackImageURL is shown when a movie has no backdrop or the lookup fails.
	FallbackImageURL = "https://placehold.co/500x281/808080/FFFFFF/png?text=No+Image"
)

var (
	ErrInvalidInput = errors.New("invalid search input")
	ErrNoMatch      = movie.ErrNoMatch
)

// Matcher scores provider search results against a query.
type Matcher struct {
	searcher  movie.Searcher
	images    movie.ImageSource
	imageBase string
}

// New constructs a Matcher. images may be nil, in which case every result gets
// FallbackImageURL. imageBase is joined with backdrop paths (e.g. ".../t/p/w500").
func New(searcher movie.Searcher, images movie.ImageSource, imageBase string) *Matcher {
	return &Matcher{searcher: searcher, images: images, imageBase: imageBase}
}

type searchOptions struct {
	threshold     int
	limit         int
	includeImages bool
}

// SearchOption tunes a single Search call.
type SearchOption func(*searchOptions)

// WithThreshold sets the minimum similarity (0–100) a title needs to be kept.
func WithThreshold(n int) SearchOption {
	return func(o *searchOptions) { o.threshold = n }
}

// WithLimit caps the number of results.
func WithLimit(n int) SearchOption {
	return func(o *searchOptions) { o.limit = n }
}

// WithImages toggles the per-result backdrop lookup.
func WithImages(on bool) SearchOption {
	return func(o *searchOptions) { o.includeImages = on }
}

// Search returns up to limit matches for query, best first.
func (m *Matcher) Search(ctx context.Context, query string, opts ...SearchOption) ([]movie.Match, error) {
	o := searchOptions{threshold: DefaultThreshold, limit: DefaultLimit, includeImages: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.threshold < 0 || o.threshold > 100 {
		return nil, fmt.Errorf("%w: threshold %d out of range", ErrInvalidInput, o.threshold)
	}
	if o.limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}

	candidates, err := m.searcher.SearchMovies(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	q := strings.ToLower(query)
	matches := make([]movie.Match, 0, len(candidates))
	for _, c := range candidates {
		if c.Title == "" {
			continue
		}
		score := Ratio(q, strings.ToLower(c.Title))
		if score < o.threshold {
			continue
		}
		matches = append(matches, movie.Match{
			ID:          c.ID,
			Title:       c.Title,
			Similarity:  score,
			ReleaseDate: c.ReleaseDate,
			Overview:    c.Overview,
			ImageURL:    FallbackImageURL,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > o.limit {
		matches = matches[:o.limit]
	}

	if o.includeImages && m.images != nil {
		for i := range matches {
			matches[i].ImageURL = m.imageFor(ctx, matches[i].ID)
		}
	}
	return matches, nil
}

// Best returns the highest-scoring candidate for query regardless of threshold.
// It skips image lookups. Returns ErrNoMatch when the provider has nothing usable.
func (m *Matcher) Best(ctx context.Context, query string) (movie.Match, error) {
	matches, err := m.Search(ctx, query, WithThreshold(0), WithLimit(1), WithImages(false))
	if err != nil {
		return movie.Match{}, err
	}
	if len(matches) == 0 {
		return movie.Match{}, fmt.Errorf("%w for %q", ErrNoMatch, query)
	}
	return matches[0], nil
}

// imageFor returns the first backdrop URL for id, or FallbackImageURL.
func (m *Matcher) imageFor(ctx context.Context, id int) string {
	paths, err := m.images.Backdrops(ctx, id)
	if err != nil || len(paths) == 0 || paths[0] == "" {
		return FallbackImageURL
	}
	return movie.ImageURL(m.imageBase, paths[0])
}
