// internal/game/engine.go
//
// Core game engine for a single movie-guess game.
// Responsibilities:
//   - Start games: draw a random movie from a category listing that has enough backdrops.
//   - Apply guesses: resolve the text to a movie, spend a guess, compare, reveal.
//   - Track state transitions: active → won/lost.
//
// Notes:
//   - State is a value; NewGame and SubmitGuess return fresh copies.
//   - Backdrop resampling is a bounded loop (1 + MaxRetries attempts).
//   - Running out of backdrops ends the game even with guesses left.

package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/movieguess/apps/go-server/internal/movie"
)

const (
	DefaultMaxGuesses   = 5
	DefaultMinBackdrops = 5
	DefaultMaxRetries   = 5
)

var (
	ErrInvalidInput    = errors.New("invalid guess")
	ErrNoMatchResolved = errors.New("guess matched no movie")
	ErrSupplyExhausted = errors.New("no movie with enough backdrops")
	ErrGameOver        = errors.New("game finished")
)

// Resolver turns guess text into the single best candidate movie. It returns an
// error wrapping movie.ErrNoMatch when nothing matches. *matcher.Matcher satisfies it.
type Resolver interface {
	Best(ctx context.Context, query string) (movie.Match, error)
}

// Supplier lists candidate target movies and their backdrops.
// *tmdb.Client satisfies it.
type Supplier interface {
	movie.Lister
	movie.ImageSource
}

// now is swapped in tests.
var now = time.Now

type options struct {
	maxGuesses   int
	minBackdrops int
	maxRetries   int
	pick         func(n, attempt int) int
	newID        func() string
}

// Option configures NewGame.
type Option func(*options)

// WithMaxGuesses sets the number of guesses a player starts with.
func WithMaxGuesses(n int) Option { return func(o *options) { o.maxGuesses = n } }

// WithMinBackdrops sets how many backdrops a target movie needs.
func WithMinBackdrops(n int) Option { return func(o *options) { o.minBackdrops = n } }

// WithMaxRetries sets how many extra movies are tried after the first one falls short.
func WithMaxRetries(n int) Option { return func(o *options) { o.maxRetries = n } }

// WithPicker replaces the random index chooser. pick receives the listing size and the
// zero-based attempt number and must return an index; it is reduced modulo n.
func WithPicker(pick func(n, attempt int) int) Option { return func(o *options) { o.pick = pick } }

// WithID fixes the game ID instead of generating a UUID.
func WithID(id string) Option { return func(o *options) { o.newID = func() string { return id } } }

// NewGame starts a game with a random movie from category. Unknown categories fall
// back to popular. If the drawn movie has fewer than the minimum backdrops another one
// is drawn, up to MaxRetries times, after which ErrSupplyExhausted is returned.
// Provider failures are returned as-is.
func NewGame(ctx context.Context, supplier Supplier, category string, opts ...Option) (State, error) {
	o := options{
		maxGuesses:   DefaultMaxGuesses,
		minBackdrops: DefaultMinBackdrops,
		maxRetries:   DefaultMaxRetries,
		pick:         func(n, _ int) int { return rand.Intn(n) },
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxGuesses < 1 {
		o.maxGuesses = DefaultMaxGuesses
	}
	if o.maxRetries < 0 {
		o.maxRetries = 0
	}

	cat := movie.ParseCategory(category)
	listing, err := supplier.ListMovies(ctx, cat)
	if err != nil {
		return State{}, fmt.Errorf("list %s: %w", cat, err)
	}
	if len(listing) == 0 {
		return State{}, fmt.Errorf("%w: %s listing is empty", ErrSupplyExhausted, cat)
	}

	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		idx := o.pick(len(listing), attempt) % len(listing)
		if idx < 0 {
			idx += len(listing)
		}
		candidate := listing[idx]

		backdrops, err := supplier.Backdrops(ctx, candidate.ID)
		if err != nil {
			return State{}, fmt.Errorf("backdrops for %d: %w", candidate.ID, err)
		}
		if len(backdrops) < o.minBackdrops {
			continue
		}

		return State{
			ID:               o.newID(),
			Target:           movie.Movie{Summary: candidate, Backdrops: backdrops},
			Category:         cat,
			RevealIndex:      0,
			GuessesRemaining: o.maxGuesses,
			MaxGuesses:       o.maxGuesses,
			Status:           StatusActive,
			Guesses:          []string{},
			StartedAt:        now().UTC(),
		}, nil
	}
	return State{}, fmt.Errorf("%w: %d attempts in %s", ErrSupplyExhausted, o.maxRetries+1, cat)
}

// SubmitGuess resolves guess, spends one guess and advances the game.
// On error the input state is returned unchanged.
//
// State transitions:
//   - Candidate is the target           → won (reveal cursor unchanged).
//   - Wrong and no guesses left         → lost.
//   - Wrong and another backdrop exists → reveal it, still active.
//   - Wrong and no backdrop left        → lost.
func SubmitGuess(ctx context.Context, st State, guess string, r Resolver) (State, Outcome, error) {
	if st.Finished() {
		return st, Outcome{}, ErrGameOver
	}
	guess = strings.TrimSpace(guess)
	if guess == "" {
		return st, Outcome{}, fmt.Errorf("%w: empty guess", ErrInvalidInput)
	}

	candidate, err := r.Best(ctx, guess)
	if err != nil {
		if errors.Is(err, movie.ErrNoMatch) {
			return st, Outcome{}, fmt.Errorf("%w: %q", ErrNoMatchResolved, guess)
		}
		return st, Outcome{}, err
	}

	next := st
	next.Guesses = append(append([]string{}, st.Guesses...), candidate.Title)
	if next.GuessesRemaining > 0 {
		next.GuessesRemaining--
	}

	if candidate.ID == st.Target.ID {
		next.Status = StatusWon
		next.FinishedAt = now().UTC()
		return next, Outcome{Kind: OutcomeCorrect, Guess: candidate, RevealIndex: next.RevealIndex}, nil
	}

	if next.GuessesRemaining > 0 && next.RevealIndex+1 < len(next.Target.Backdrops) {
		next.RevealIndex++
		return next, Outcome{Kind: OutcomeIncorrect, Guess: candidate, RevealIndex: next.RevealIndex}, nil
	}

	next.Status = StatusLost
	next.FinishedAt = now().UTC()
	target := next.Target.Summary
	return next, Outcome{Kind: OutcomeExhausted, Guess: candidate, RevealIndex: next.RevealIndex, Target: &target}, nil
}
