// internal/movie/movie.go
//
// Shared movie types and provider contracts.
// Defines:
//   - Summary / Movie: what the metadata provider returns for a title.
//   - Match: a scored search result ready for display.
//   - Category: the fixed set of listings a new game can be drawn from.
//   - Searcher / Lister / ImageSource: the provider calls the core depends on.
//
// The TMDB client (internal/tmdb) implements all three provider interfaces;
// tests use small in-memory fakes.

package movie

import (
	"context"
	"errors"
	"strings"
)

// ErrProviderUnavailable wraps any failure talking to the metadata provider
// (transport error, timeout, non-2xx status, undecodable body).
var ErrProviderUnavailable = errors.New("movie provider unavailable")

// ErrNoMatch is returned by resolvers that found no candidate for a query.
var ErrNoMatch = errors.New("no matching movie")

// NotAvailable is substituted for missing release dates and overviews.
const NotAvailable = "N/A"

// Summary is a single search or listing result.
type Summary struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"releaseDate"`
	Overview    string `json:"overview"`
}

// Year returns the first four characters of the release date, or "" when unknown.
func (s Summary) Year() string {
	if len(s.ReleaseDate) < 4 || s.ReleaseDate == NotAvailable {
		return ""
	}
	return s.ReleaseDate[:4]
}

// Movie is a Summary plus its ordered backdrop image paths.
type Movie struct {
	Summary
	Backdrops []string `json:"backdrops"`
}

// Match is a fuzzy search result.
type Match struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Similarity  int    `json:"similarity"` // 0–100
	ReleaseDate string `json:"releaseDate"`
	Overview    string `json:"overview"`
	ImageURL    string `json:"imageUrl"`
}

// Category names a movie listing.
type Category string

const (
	CategoryPopular    Category = "popular"
	CategoryTopRated   Category = "top_rated"
	CategoryNowPlaying Category = "now_playing"
	CategoryUpcoming   Category = "upcoming"
)

// Categories lists every supported category in display order.
var Categories = []Category{CategoryPopular, CategoryTopRated, CategoryNowPlaying, CategoryUpcoming}

// Label is a human-readable name for the category.
func (c Category) Label() string {
	switch c {
	case CategoryTopRated:
		return "Top Rated Movies"
	case CategoryNowPlaying:
		return "Now Playing"
	case CategoryUpcoming:
		return "Upcoming Movies"
	default:
		return "Popular Movies"
	}
}

// ParseCategory maps s to a known category. Unknown or empty values fall back to popular.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryPopular
}

// Searcher finds movies by title.
type Searcher interface {
	SearchMovies(ctx context.Context, query string) ([]Summary, error)
}

// Lister returns the movies in a category listing.
type Lister interface {
	ListMovies(ctx context.Context, category Category) ([]Summary, error)
}

// ImageSource returns image path fragments for a movie.
type ImageSource interface {
	Backdrops(ctx context.Context, movieID int) ([]string, error)
}

// ImageURL joins an image path fragment to base. Returns "" for an empty path.
func ImageURL(base, path string) string {
	if path == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
