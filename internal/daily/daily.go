// internal/daily/daily.go
//
// Movie of the day.
// Responsibilities:
//   - DateKey / Index: deterministic HMAC(salt, YYYY-MM-DD) index into a listing.
//   - Challenge: builds the day's game from the popular listing and caches it,
//     so every player gets the same movie for a given UTC date.

package daily

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	"github.com/robalobadob/movieguess/apps/go-server/internal/game"
	"github.com/robalobadob/movieguess/apps/go-server/internal/movie"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Index returns a deterministic index in [0,n) for the date's key.
func Index(date time.Time, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for the modulus
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}

// Picker returns a game.WithPicker chooser that starts at the date's index and
// walks forward one movie per retry.
func Picker(date time.Time, salt string) func(n, attempt int) int {
	return func(n, attempt int) int {
		return (Index(date, salt, n) + attempt) % n
	}
}

// Challenge produces the daily game template. Safe for concurrent use.
type Challenge struct {
	supplier game.Supplier
	salt     string
	opts     []game.Option

	mu    sync.Mutex
	date  string
	today game.State
}

func NewChallenge(supplier game.Supplier, salt string, opts ...game.Option) *Challenge {
	return &Challenge{supplier: supplier, salt: salt, opts: opts}
}

// For returns a fresh game for the date of now, with a new ID each call
// but the same target movie for every call on that date.
func (c *Challenge) For(ctx context.Context, now time.Time, id string) (game.State, error) {
	key := DateKey(now)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.date != key {
		opts := append(append([]game.Option{}, c.opts...), game.WithPicker(Picker(now, c.salt)))
		st, err := game.NewGame(ctx, c.supplier, string(movie.CategoryPopular), opts...)
		if err != nil {
			return game.State{}, err
		}
		c.date, c.today = key, st
	}

	st := c.today
	st.ID = id
	st.Guesses = []string{}
	st.StartedAt = now.UTC()
	return st, nil
}
