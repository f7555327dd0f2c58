// internal/history/history.go
//
// Game history in SQLite.
// Responsibilities:
//   - Insert a row when a game starts (owned by a user or an anonymous cookie ID).
//   - Mark it won/lost when it finishes and bump the owner's stats in the same tx.
//   - List a user's recent games; move anonymous rows to a user on login.
//
// Notes:
//   - Finish only counts once per game: the UPDATE is guarded by status='active'.
//   - The answer is stored so finished games can be listed with their title.

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robalobadob/movieguess/apps/go-server/internal/account"
	"github.com/robalobadob/movieguess/apps/go-server/internal/game"
)

const (
	ModeClassic = "classic"
	ModeDaily   = "daily"
)

// Owner identifies who a game belongs to. Exactly one field should be set;
// UserID wins when both are.
type Owner struct {
	UserID string
	AnonID string
}

func (o Owner) clause() (string, any) {
	if o.UserID != "" {
		return `user_id=?`, o.UserID
	}
	return `anonymous_id=?`, o.AnonID
}

// Record is one row of a player's history.
type Record struct {
	ID         string `json:"id"`
	Mode       string `json:"mode"`
	Category   string `json:"category"`
	MovieID    int    `json:"movieId"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Guesses    int    `json:"guesses"`
	MaxGuesses int    `json:"maxGuesses"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

type Recorder struct {
	db *sql.DB
}

func NewRecorder(db *sql.DB) *Recorder { return &Recorder{db: db} }

// Start records a freshly created game.
func (r *Recorder) Start(ctx context.Context, st game.State, owner Owner, mode string) error {
	var userID, anonID any
	if owner.UserID != "" {
		userID = owner.UserID
	} else {
		anonID = owner.AnonID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO games (id, user_id, anonymous_id, mode, category, movie_id, movie_title, status, guesses, max_guesses, started_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		st.ID, userID, anonID, mode, string(st.Category), st.Target.ID, st.Target.Title,
		string(st.Status), st.GuessesUsed(), st.MaxGuesses, st.StartedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert game %s: %w", st.ID, err)
	}
	return nil
}

// Progress stores the guess count of an active game.
func (r *Recorder) Progress(ctx context.Context, st game.State, owner Owner) error {
	clause, arg := owner.clause()
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET guesses=? WHERE id=? AND status='active' AND `+clause,
		st.GuessesUsed(), st.ID, arg)
	return err
}

// Finish stores the final status. For users it also bumps their stats.
// It reports whether this call was the one that finished the row.
func (r *Recorder) Finish(ctx context.Context, st game.State, owner Owner) (bool, error) {
	if !st.Finished() {
		return false, errors.New("game still active")
	}
	clause, arg := owner.clause()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	finished := st.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE games SET status=?, guesses=?, finished_at=? WHERE id=? AND status='active' AND `+clause,
		string(st.Status), st.GuessesUsed(), finished.Format(time.RFC3339), st.ID, arg)
	if err != nil {
		return false, fmt.Errorf("finish game %s: %w", st.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if owner.UserID != "" {
		if err := account.BumpStats(ctx, tx, owner.UserID, st.Status == game.StatusWon); err != nil {
			return false, fmt.Errorf("bump stats: %w", err)
		}
	}
	return true, tx.Commit()
}

// ListByUser returns a user's most recent games, newest first.
func (r *Recorder) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, mode, category, movie_id, movie_title, status, guesses, max_guesses, started_at, COALESCE(finished_at,'')
		FROM games WHERE user_id=? ORDER BY started_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Mode, &rec.Category, &rec.MovieID, &rec.Title, &rec.Status,
			&rec.Guesses, &rec.MaxGuesses, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Claim moves the finished games recorded under anonID to userID, plus the
// active games listed in activeIDs, and returns how many moved. Other active
// games stay with the guest so that finishing them still finds their row.
func (r *Recorder) Claim(ctx context.Context, anonID, userID string, activeIDs ...string) (int64, error) {
	if anonID == "" || userID == "" {
		return 0, nil
	}
	q := `UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=? AND (status<>'active'`
	args := []any{userID, anonID}
	if len(activeIDs) > 0 {
		q += ` OR id IN (?` + strings.Repeat(",?", len(activeIDs)-1) + `)`
		for _, id := range activeIDs {
			args = append(args, id)
		}
	}
	res, err := r.db.ExecContext(ctx, q+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
