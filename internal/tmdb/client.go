// internal/tmdb/client.go
//
// Thin JSON client for The Movie Database v3 API.
// Responsibilities:
//   - Title search (/search/movie), category listings (/movie/{category}).
//   - Image lookups (/movie/{id}/images) for backdrops and posters.
//   - Normalize missing release dates / overviews to "N/A".
//
// Notes:
//   - Auth is either the v3 api_key query param or a v4 read token (Bearer).
//   - Every failure (transport, status, decode) wraps movie.ErrProviderUnavailable.

package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/movieguess/apps/go-server/internal/movie"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"

	// Image bases: search results use w500, game backdrops w1280.
	ImageBaseW500  = "https://image.tmdb.org/t/p/w500"
	ImageBaseW1280 = "https://image.tmdb.org/t/p/w1280"

	imageLanguages = "en,null"
)

// Options configures a Client. Either APIKey or ReadToken should be set.
type Options struct {
	BaseURL    string
	APIKey     string
	ReadToken  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to TMDB. Safe for concurrent use.
type Client struct {
	base      string
	apiKey    string
	readToken string
	http      *http.Client
}

func New(o Options) *Client {
	base := strings.TrimRight(o.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := o.HTTPClient
	if hc == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, apiKey: o.APIKey, readToken: o.ReadToken, http: hc}
}

type result struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	Overview    string `json:"overview"`
}

type page struct {
	Page    int      `json:"page"`
	Results []result `json:"results"`
}

type image struct {
	FilePath string  `json:"file_path"`
	Language *string `json:"iso_639_1"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

type images struct {
	ID        int     `json:"id"`
	Backdrops []image `json:"backdrops"`
	Posters   []image `json:"posters"`
}

// SearchMovies returns the first result page for a title query.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]movie.Summary, error) {
	var p page
	if err := c.get(ctx, "/search/movie", url.Values{"query": {query}}, &p); err != nil {
		return nil, err
	}
	return summaries(p.Results), nil
}

// ListMovies returns the first page of a category listing.
func (c *Client) ListMovies(ctx context.Context, category movie.Category) ([]movie.Summary, error) {
	var p page
	if err := c.get(ctx, "/movie/"+string(category), nil, &p); err != nil {
		return nil, err
	}
	return summaries(p.Results), nil
}

// Backdrops returns the backdrop path fragments for a movie, in provider order.
func (c *Client) Backdrops(ctx context.Context, movieID int) ([]string, error) {
	imgs, err := c.images(ctx, movieID)
	if err != nil {
		return nil, err
	}
	return paths(imgs.Backdrops), nil
}

// Posters returns the poster path fragments for a movie, in provider order.
func (c *Client) Posters(ctx context.Context, movieID int) ([]string, error) {
	imgs, err := c.images(ctx, movieID)
	if err != nil {
		return nil, err
	}
	return paths(imgs.Posters), nil
}

func (c *Client) images(ctx context.Context, movieID int) (images, error) {
	var imgs images
	path := "/movie/" + strconv.Itoa(movieID) + "/images"
	err := c.get(ctx, path, url.Values{"include_image_language": {imageLanguages}}, &imgs)
	return imgs, err
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dest any) error {
	if q == nil {
		q = url.Values{}
	}
	if c.readToken == "" && c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: build %s: %v", movie.ErrProviderUnavailable, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.readToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.readToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", movie.ErrProviderUnavailable, path, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("tmdb request")

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: %s: HTTP %d", movie.ErrProviderUnavailable, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode %s: %v", movie.ErrProviderUnavailable, path, err)
	}
	return nil
}

func summaries(rs []result) []movie.Summary {
	out := make([]movie.Summary, 0, len(rs))
	for _, r := range rs {
		out = append(out, movie.Summary{
			ID:          r.ID,
			Title:       r.Title,
			ReleaseDate: orNA(r.ReleaseDate),
			Overview:    orNA(r.Overview),
		})
	}
	return out
}

func paths(imgs []image) []string {
	out := make([]string, 0, len(imgs))
	for _, img := range imgs {
		if img.FilePath != "" {
			out = append(out, img.FilePath)
		}
	}
	return out
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return movie.NotAvailable
	}
	return s
}
