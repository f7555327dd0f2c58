// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start (or resume) today's game
//   - POST /daily/guess       → submit a guess for today's game
//   - GET  /daily/leaderboard → top 20 winners for today (or ?date=YYYY-MM-DD)
//
// Everyone gets the same movie on a given UTC date. A player can finish the
// daily game once per date (enforced by the daily_results unique key).

package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/movieguess/apps/go-server/internal/daily"
	"github.com/robalobadob/movieguess/apps/go-server/internal/game"
	"github.com/robalobadob/movieguess/apps/go-server/internal/history"
	"github.com/robalobadob/movieguess/apps/go-server/internal/store"
)

type dailyServer struct {
	srv       *Server
	results   *daily.Store
	challenge *daily.Challenge
}

func (s *Server) mountDaily(r chi.Router, results *daily.Store) {
	dd := &dailyServer{
		srv:       s,
		results:   results,
		challenge: daily.NewChallenge(s.provider, s.cfg.DailySalt, s.gameOptions()...),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/guess", dd.handleGuess)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// resultID is the daily_results player key: the user ID for account holders,
// the anonymous cookie ID for guests.
func resultID(p player) string {
	if p.owner.UserID != "" {
		return p.owner.UserID
	}
	return p.owner.AnonID
}

type dailyRes struct {
	Date   string    `json:"date"`
	Played bool      `json:"played"`
	Game   *gameView `json:"game,omitempty"`
}

// handleNew resumes today's game or starts it. A player who already has a
// stored result for today gets Played=true and, if still in memory, the finished game.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	now := d.srv.now()
	date := daily.DateKey(now)
	p := d.srv.currentPlayer(w, r)
	key := store.Key("daily", date, p.key)
	unlock, err := d.srv.locks.Lock(r.Context(), key)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	defer unlock()

	st, err := d.srv.store.Get(r.Context(), key)
	switch {
	case err == nil:
		v := d.srv.view(st)
		writeJSON(w, http.StatusOK, dailyRes{Date: date, Played: st.Finished(), Game: &v})
		return
	case !errors.Is(err, store.ErrNotFound):
		writeGameError(w, r, err)
		return
	}

	played, err := d.results.AlreadyPlayed(r.Context(), resultID(p), date)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("daily lookup")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if played {
		writeJSON(w, http.StatusOK, dailyRes{Date: date, Played: true})
		return
	}

	st, err = d.challenge.For(r.Context(), now, uuid.NewString())
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	if err := d.srv.store.Save(r.Context(), key, st); err != nil {
		writeGameError(w, r, err)
		return
	}
	if err := d.srv.history.Start(r.Context(), st, p.owner, history.ModeDaily); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("gameId", st.ID).Msg("record daily start")
	}
	v := d.srv.view(st)
	writeJSON(w, http.StatusCreated, dailyRes{Date: date, Game: &v})
}

func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	date := daily.DateKey(d.srv.now())
	p := d.srv.currentPlayer(w, r)
	key := store.Key("daily", date, p.key)
	unlock, err := d.srv.locks.Lock(r.Context(), key)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	defer unlock()

	st, out, err := d.srv.applyGuess(r, key, req.Guess)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	d.srv.recordProgress(r, st, p.owner)

	if st.Finished() {
		res := daily.Result{
			PlayerID:  resultID(p),
			Date:      date,
			MovieID:   st.Target.ID,
			Won:       st.Status == game.StatusWon,
			Guesses:   st.GuessesUsed(),
			ElapsedMs: st.FinishedAt.Sub(st.StartedAt).Milliseconds(),
		}
		if _, err := d.results.InsertResult(r.Context(), res); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("store daily result")
		}
	}
	writeJSON(w, http.StatusOK, guessRes{Outcome: out, Message: outcomeMessage(out), Game: d.srv.view(st)})
}

type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.srv.now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	rows, err := d.results.Leaderboard(r.Context(), date, 20)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
