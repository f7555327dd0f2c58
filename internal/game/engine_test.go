package game

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/movieguess/apps/go-server/internal/matcher"
	"github.com/robalobadob/movieguess/apps/go-server/internal/movie"
)

type fakeResolver struct {
	byQuery map[string]movie.Match
	err     error
}

func (f *fakeResolver) Best(ctx context.Context, query string) (movie.Match, error) {
	if f.err != nil {
		return movie.Match{}, f.err
	}
	m, ok := f.byQuery[query]
	if !ok {
		return movie.Match{}, fmt.Errorf("%w for %q", movie.ErrNoMatch, query)
	}
	return m, nil
}

type fakeSupplier struct {
	listing    []movie.Summary
	backdrops  map[int][]string
	listErr    error
	imageErr   error
	categories []movie.Category
	lookups    []int
}

func (f *fakeSupplier) ListMovies(ctx context.Context, c movie.Category) ([]movie.Summary, error) {
	f.categories = append(f.categories, c)
	return f.listing, f.listErr
}

func (f *fakeSupplier) Backdrops(ctx context.Context, id int) ([]string, error) {
	f.lookups = append(f.lookups, id)
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return f.backdrops[id], nil
}

func backdrops(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("/backdrop-%d.jpg", i)
	}
	return out
}

var (
	inception = movie.Match{ID: 42, Title: "Inception", Similarity: 100}
	wrong     = movie.Match{ID: 7, Title: "Wrong Movie", Similarity: 100}
)

func resolver() *fakeResolver {
	return &fakeResolver{byQuery: map[string]movie.Match{
		"Inception":   inception,
		"Wrong Movie": wrong,
	}}
}

func activeState(remaining, reveal, nBackdrops int) State {
	return State{
		ID: "g1",
		Target: movie.Movie{
			Summary:   movie.Summary{ID: 42, Title: "Inception", ReleaseDate: "2010-07-15", Overview: "Dreams."},
			Backdrops: backdrops(nBackdrops),
		},
		Category:         movie.CategoryPopular,
		RevealIndex:      reveal,
		GuessesRemaining: remaining,
		MaxGuesses:       DefaultMaxGuesses,
		Status:           StatusActive,
		Guesses:          []string{},
	}
}

func TestSubmitGuessCorrect(t *testing.T) {
	st := activeState(3, 1, 5)

	next, out, err := SubmitGuess(context.Background(), st, "Inception", resolver())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCorrect, out.Kind)
	assert.Equal(t, 42, out.Guess.ID)
	assert.Equal(t, StatusWon, next.Status)
	assert.Equal(t, 2, next.GuessesRemaining)
	assert.Equal(t, 1, next.RevealIndex, "a correct guess does not reveal")
	assert.False(t, next.FinishedAt.IsZero())
	assert.Equal(t, []string{"Inception"}, next.Guesses)
}

func TestSubmitGuessLastGuessWrong(t *testing.T) {
	st := activeState(1, 0, 5)

	next, out, err := SubmitGuess(context.Background(), st, "Wrong Movie", resolver())
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, out.Kind)
	require.NotNil(t, out.Target)
	assert.Equal(t, "Inception", out.Target.Title)
	assert.Equal(t, 0, next.GuessesRemaining)
	assert.Equal(t, StatusLost, next.Status)
	assert.Equal(t, 0, next.RevealIndex)
}

func TestSubmitGuessWrongRevealsNext(t *testing.T) {
	st := activeState(4, 0, 5)

	next, out, err := SubmitGuess(context.Background(), st, "Wrong Movie", resolver())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIncorrect, out.Kind)
	assert.Equal(t, "Wrong Movie", out.Guess.Title)
	assert.Equal(t, 1, out.RevealIndex)
	assert.Nil(t, out.Target)
	assert.Equal(t, 1, next.RevealIndex)
	assert.Equal(t, 3, next.GuessesRemaining)
	assert.Equal(t, StatusActive, next.Status)
	assert.Equal(t, "/backdrop-1.jpg", next.CurrentBackdrop())
}

func TestSubmitGuessOutOfBackdrops(t *testing.T) {
	st := activeState(3, 1, 2)

	next, out, err := SubmitGuess(context.Background(), st, "Wrong Movie", resolver())
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, out.Kind)
	assert.Equal(t, StatusLost, next.Status)
	assert.Equal(t, 2, next.GuessesRemaining)
	assert.Equal(t, 1, next.RevealIndex)
}

func TestSubmitGuessSpendsExactlyOne(t *testing.T) {
	st := activeState(DefaultMaxGuesses, 0, 10)
	r := resolver()

	for i := 0; i < DefaultMaxGuesses; i++ {
		before := st.GuessesRemaining
		next, _, err := SubmitGuess(context.Background(), st, "Wrong Movie", r)
		require.NoError(t, err)
		assert.Equal(t, before-1, next.GuessesRemaining)
		assert.Less(t, next.RevealIndex, len(next.Target.Backdrops))
		st = next
	}
	assert.Equal(t, StatusLost, st.Status)
	assert.Equal(t, 0, st.GuessesRemaining)
	assert.Equal(t, DefaultMaxGuesses, st.GuessesUsed())
	assert.Len(t, st.Guesses, DefaultMaxGuesses)

	_, _, err := SubmitGuess(context.Background(), st, "Inception", r)
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestSubmitGuessDoesNotMutateInput(t *testing.T) {
	st := activeState(4, 0, 5)
	st.Guesses = append(make([]string, 0, 8), "Heat")

	next, _, err := SubmitGuess(context.Background(), st, "Wrong Movie", resolver())
	require.NoError(t, err)
	assert.Equal(t, []string{"Heat"}, st.Guesses)
	assert.Equal(t, 4, st.GuessesRemaining)
	assert.Equal(t, 0, st.RevealIndex)
	assert.Equal(t, []string{"Heat", "Wrong Movie"}, next.Guesses)
}

func TestSubmitGuessRejectsEmpty(t *testing.T) {
	st := activeState(4, 0, 5)

	for _, g := range []string{"", "   "} {
		next, _, err := SubmitGuess(context.Background(), st, g, resolver())
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, st, next)
	}
}

func TestSubmitGuessNoMatch(t *testing.T) {
	st := activeState(4, 0, 5)

	next, _, err := SubmitGuess(context.Background(), st, "qqqq", resolver())
	assert.ErrorIs(t, err, ErrNoMatchResolved)
	assert.Equal(t, 4, next.GuessesRemaining, "an unresolved guess is not spent")
}

func TestSubmitGuessProviderError(t *testing.T) {
	st := activeState(4, 0, 5)
	r := &fakeResolver{err: fmt.Errorf("%w: timeout", movie.ErrProviderUnavailable)}

	_, _, err := SubmitGuess(context.Background(), st, "Inception", r)
	assert.ErrorIs(t, err, movie.ErrProviderUnavailable)
	assert.False(t, errors.Is(err, ErrNoMatchResolved))
}

func TestSubmitGuessThroughMatcher(t *testing.T) {
	searcher := searchFunc(func(q string) []movie.Summary {
		return []movie.Summary{{ID: 99, Title: "Insomnia"}, {ID: 42, Title: "Inception"}}
	})
	m := matcher.New(searcher, nil, "")
	st := activeState(5, 0, 5)

	next, out, err := SubmitGuess(context.Background(), st, "inceptoin", m)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCorrect, out.Kind)
	assert.Equal(t, StatusWon, next.Status)
}

func TestSubmitGuessThroughMatcherNoCandidates(t *testing.T) {
	m := matcher.New(searchFunc(func(string) []movie.Summary { return nil }), nil, "")
	st := activeState(5, 0, 5)

	_, _, err := SubmitGuess(context.Background(), st, "zzzz", m)
	assert.ErrorIs(t, err, ErrNoMatchResolved)
}

type searchFunc func(q string) []movie.Summary

func (f searchFunc) SearchMovies(ctx context.Context, q string) ([]movie.Summary, error) {
	return f(q), nil
}

func TestNewGameInitialState(t *testing.T) {
	fixed := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	s := &fakeSupplier{
		listing:   []movie.Summary{{ID: 1, Title: "Heat"}},
		backdrops: map[int][]string{1: backdrops(7)},
	}
	st, err := NewGame(context.Background(), s, "top_rated", WithID("game-1"))
	require.NoError(t, err)
	assert.Equal(t, "game-1", st.ID)
	assert.Equal(t, 1, st.Target.ID)
	assert.Len(t, st.Target.Backdrops, 7, "keeps the full backdrop list")
	assert.Equal(t, 0, st.RevealIndex)
	assert.Equal(t, DefaultMaxGuesses, st.GuessesRemaining)
	assert.Equal(t, DefaultMaxGuesses, st.MaxGuesses)
	assert.Equal(t, StatusActive, st.Status)
	assert.Equal(t, movie.CategoryTopRated, st.Category)
	assert.Equal(t, fixed, st.StartedAt)
	assert.Equal(t, "/backdrop-0.jpg", st.CurrentBackdrop())
}

func TestNewGameUnknownCategoryFallsBack(t *testing.T) {
	s := &fakeSupplier{
		listing:   []movie.Summary{{ID: 1, Title: "Heat"}},
		backdrops: map[int][]string{1: backdrops(5)},
	}
	st, err := NewGame(context.Background(), s, "trending")
	require.NoError(t, err)
	assert.Equal(t, movie.CategoryPopular, st.Category)
	assert.Equal(t, []movie.Category{movie.CategoryPopular}, s.categories)
}

func TestNewGameResamplesShortMovies(t *testing.T) {
	s := &fakeSupplier{
		listing: []movie.Summary{{ID: 1}, {ID: 2}, {ID: 3}},
		backdrops: map[int][]string{
			1: backdrops(2),
			2: backdrops(4),
			3: backdrops(5),
		},
	}
	picker := func(n, attempt int) int { return attempt }

	st, err := NewGame(context.Background(), s, "popular", WithPicker(picker))
	require.NoError(t, err)
	assert.Equal(t, 3, st.Target.ID)
	assert.Equal(t, []int{1, 2, 3}, s.lookups)
	assert.GreaterOrEqual(t, len(st.Target.Backdrops), DefaultMinBackdrops)
}

func TestNewGameSupplyExhausted(t *testing.T) {
	s := &fakeSupplier{
		listing:   []movie.Summary{{ID: 1}, {ID: 2}},
		backdrops: map[int][]string{1: backdrops(4), 2: backdrops(1)},
	}

	_, err := NewGame(context.Background(), s, "upcoming")
	assert.ErrorIs(t, err, ErrSupplyExhausted)
	assert.Len(t, s.lookups, 1+DefaultMaxRetries)
}

func TestNewGameCustomLimits(t *testing.T) {
	s := &fakeSupplier{
		listing:   []movie.Summary{{ID: 1}},
		backdrops: map[int][]string{1: backdrops(2)},
	}

	_, err := NewGame(context.Background(), s, "popular", WithMaxRetries(2))
	assert.ErrorIs(t, err, ErrSupplyExhausted)
	assert.Len(t, s.lookups, 3)

	st, err := NewGame(context.Background(), s, "popular", WithMinBackdrops(2), WithMaxGuesses(3))
	require.NoError(t, err)
	assert.Equal(t, 3, st.GuessesRemaining)
}

func TestNewGameNegativeRetriesStillDraws(t *testing.T) {
	s := &fakeSupplier{
		listing:   []movie.Summary{{ID: 1}},
		backdrops: map[int][]string{1: backdrops(5)},
	}

	st, err := NewGame(context.Background(), s, "popular", WithMaxRetries(-3))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Target.ID)
	assert.Equal(t, []int{1}, s.lookups)

	short := &fakeSupplier{
		listing:   []movie.Summary{{ID: 1}},
		backdrops: map[int][]string{1: backdrops(1)},
	}
	_, err = NewGame(context.Background(), short, "popular", WithMaxRetries(-3))
	assert.ErrorIs(t, err, ErrSupplyExhausted)
	assert.Len(t, short.lookups, 1)
}

func TestNewGameEmptyListing(t *testing.T) {
	_, err := NewGame(context.Background(), &fakeSupplier{}, "popular")
	assert.ErrorIs(t, err, ErrSupplyExhausted)
}

func TestNewGameProviderErrors(t *testing.T) {
	down := fmt.Errorf("%w: status 500", movie.ErrProviderUnavailable)

	_, err := NewGame(context.Background(), &fakeSupplier{listErr: down}, "popular")
	assert.ErrorIs(t, err, movie.ErrProviderUnavailable)

	s := &fakeSupplier{listing: []movie.Summary{{ID: 1}}, imageErr: down}
	_, err = NewGame(context.Background(), s, "popular")
	assert.ErrorIs(t, err, movie.ErrProviderUnavailable)
	assert.False(t, errors.Is(err, ErrSupplyExhausted))
}
