// internal/store/memory.go
//
// In-memory implementation of Store.
// Used when no Redis address is configured and in tests.
//
// Characteristics:
//   - Holds game.State values keyed by session key (see Key).
//   - Concurrency-safe via RWMutex.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/robalobadob/movieguess/apps/go-server/internal/game"
)

// ErrNotFound is returned by Get when no game is stored under the key.
var ErrNotFound = errors.New("game not found")

// Store persists the current game of each player.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save creates or replaces the game under key.
	Save(ctx context.Context, key string, st game.State) error

	// Get returns the game under key or ErrNotFound.
	Get(ctx context.Context, key string) (game.State, error)

	// Delete removes the game under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key builds a session key from its parts, e.g. Key("classic", playerID).
func Key(parts ...string) string { return strings.Join(parts, ":") }

type memory struct {
	mu    sync.RWMutex
	games map[string]game.State
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]game.State)}
}

func (m *memory) Save(ctx context.Context, key string, st game.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[key] = st
	return nil
}

func (m *memory) Get(ctx context.Context, key string) (game.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.games[key]; ok {
		return st, nil
	}
	return game.State{}, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, key)
	return nil
}
