package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/movieguess/apps/go-server/assets"
	"github.com/robalobadob/movieguess/apps/go-server/internal/account"
	"github.com/robalobadob/movieguess/apps/go-server/internal/database"
	"github.com/robalobadob/movieguess/apps/go-server/internal/game"
	"github.com/robalobadob/movieguess/apps/go-server/internal/movie"
)

func setup(t *testing.T) (*Recorder, *account.Service) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, assets.Migrations()))
	return NewRecorder(db), account.NewService(db, "s", time.Hour).WithHashCost(bcrypt.MinCost)
}

func state(id string, started time.Time) game.State {
	return game.State{
		ID: id,
		Target: movie.Movie{
			Summary:   movie.Summary{ID: 42, Title: "Inception"},
			Backdrops: []string{"/1", "/2", "/3", "/4", "/5"},
		},
		Category:         movie.CategoryPopular,
		GuessesRemaining: 5,
		MaxGuesses:       5,
		Status:           game.StatusActive,
		StartedAt:        started,
	}
}

func finish(st game.State, status game.Status, used int) game.State {
	st.Status = status
	st.GuessesRemaining = st.MaxGuesses - used
	st.FinishedAt = st.StartedAt.Add(time.Minute)
	return st
}

func TestUserGameLifecycle(t *testing.T) {
	ctx := context.Background()
	rec, accounts := setup(t)
	u, err := accounts.Signup(ctx, "ripley", "password1")
	require.NoError(t, err)
	owner := Owner{UserID: u.ID}

	base := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	st := state("g1", base)
	require.NoError(t, rec.Start(ctx, st, owner, ModeClassic))

	st.GuessesRemaining = 3
	require.NoError(t, rec.Progress(ctx, st, owner))

	done, err := rec.Finish(ctx, finish(st, game.StatusWon, 3), owner)
	require.NoError(t, err)
	assert.True(t, done)

	again, err := rec.Finish(ctx, finish(st, game.StatusWon, 3), owner)
	require.NoError(t, err)
	assert.False(t, again, "a finished game is only counted once")

	got, err := accounts.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.GamesPlayed)
	assert.Equal(t, 1, got.Wins)
	assert.Equal(t, 1, got.Streak)

	list, err := rec.ListByUser(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, Record{
		ID: "g1", Mode: ModeClassic, Category: "popular", MovieID: 42, Title: "Inception",
		Status: "won", Guesses: 3, MaxGuesses: 5,
		StartedAt: "2026-10-18T10:00:00Z", FinishedAt: "2026-10-18T10:01:00Z",
	}, list[0])
}

func TestFinishRejectsActive(t *testing.T) {
	rec, _ := setup(t)
	_, err := rec.Finish(context.Background(), state("g1", time.Now()), Owner{AnonID: "a"})
	assert.Error(t, err)
}

func TestListOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	rec, accounts := setup(t)
	u, err := accounts.Signup(ctx, "dallas", "password1")
	require.NoError(t, err)

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, rec.Start(ctx, state(id, base.Add(time.Duration(i)*time.Hour)), Owner{UserID: u.ID}, ModeClassic))
	}

	list, err := rec.ListByUser(ctx, u.ID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "mid", list[1].ID)
	assert.Empty(t, list[0].FinishedAt)

	empty, err := rec.ListByUser(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestClaimAnonymousGames(t *testing.T) {
	ctx := context.Background()
	rec, accounts := setup(t)
	u, err := accounts.Signup(ctx, "kane", "password1")
	require.NoError(t, err)

	anon := Owner{AnonID: "anon-1"}
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	lost := state("g-lost", base)
	require.NoError(t, rec.Start(ctx, lost, anon, ModeClassic))
	_, err = rec.Finish(ctx, finish(lost, game.StatusLost, 5), anon)
	require.NoError(t, err)

	active := state("g-active", base.Add(time.Hour))
	require.NoError(t, rec.Start(ctx, active, anon, ModeDaily))
	require.NoError(t, rec.Start(ctx, state("g-other", base), Owner{AnonID: "anon-2"}, ModeClassic))

	n, err := rec.Claim(ctx, "anon-1", u.ID, "g-active")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = rec.Claim(ctx, "", u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := rec.ListByUser(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "g-active", list[0].ID)
	assert.Equal(t, ModeDaily, list[0].Mode)

	// the claimed active game can now be finished as the user
	done, err := rec.Finish(ctx, finish(active, game.StatusLost, 5), Owner{UserID: u.ID})
	require.NoError(t, err)
	assert.True(t, done)

	got, err := accounts.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.GamesPlayed)
	assert.Zero(t, got.Streak)
}

func TestClaimLeavesUnlistedActiveGamesWithGuest(t *testing.T) {
	ctx := context.Background()
	rec, accounts := setup(t)
	u, err := accounts.Signup(ctx, "marion", "password1")
	require.NoError(t, err)

	anon := Owner{AnonID: "anon-1"}
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	won := state("g-won", base)
	require.NoError(t, rec.Start(ctx, won, anon, ModeClassic))
	_, err = rec.Finish(ctx, finish(won, game.StatusWon, 2), anon)
	require.NoError(t, err)
	playing := state("g-playing", base.Add(time.Hour))
	require.NoError(t, rec.Start(ctx, playing, anon, ModeClassic))

	n, err := rec.Claim(ctx, "anon-1", u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "only the finished game moves")

	// the guest can still finish the game it kept
	done, err := rec.Finish(ctx, finish(playing, game.StatusWon, 3), anon)
	require.NoError(t, err)
	assert.True(t, done)

	n, err = rec.Claim(ctx, "anon-1", u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, err := rec.ListByUser(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, r := range list {
		assert.Equal(t, "won", r.Status, r.ID)
	}

	got, err := accounts.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.GamesPlayed, "guest games do not count toward the account's stats")
}
