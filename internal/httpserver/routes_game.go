// internal/httpserver/routes_game.go
//
// Classic game + search endpoints.
//   - GET  /categories  → the listings a game can be drawn from
//   - POST /search      → fuzzy title search with display images
//   - GET  /game        → the player's current game (starts one if there is none)
//   - POST /game/new    → replace the current game with a fresh one
//   - POST /game/guess  → apply a guess to the current game

package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/movieguess/apps/go-server/internal/game"
	"github.com/robalobadob/movieguess/apps/go-server/internal/history"
	"github.com/robalobadob/movieguess/apps/go-server/internal/matcher"
	"github.com/robalobadob/movieguess/apps/go-server/internal/movie"
	"github.com/robalobadob/movieguess/apps/go-server/internal/store"
)

// gameView is the client-facing projection of a game.State. The target is
// only included once the game is over.
type gameView struct {
	ID               string         `json:"id"`
	Category         movie.Category `json:"category"`
	CategoryLabel    string         `json:"categoryLabel"`
	Status           game.Status    `json:"status"`
	GuessesRemaining int            `json:"guessesRemaining"`
	MaxGuesses       int            `json:"maxGuesses"`
	RevealIndex      int            `json:"revealIndex"`
	BackdropURL      string         `json:"backdropUrl"`
	Guesses          []string       `json:"guesses"`
	Answer           *movie.Summary `json:"answer,omitempty"`
}

func (s *Server) view(st game.State) gameView {
	v := gameView{
		ID:               st.ID,
		Category:         st.Category,
		CategoryLabel:    st.Category.Label(),
		Status:           st.Status,
		GuessesRemaining: st.GuessesRemaining,
		MaxGuesses:       st.MaxGuesses,
		RevealIndex:      st.RevealIndex,
		BackdropURL:      movie.ImageURL(s.cfg.GameImageBase, st.CurrentBackdrop()),
		Guesses:          st.Guesses,
	}
	if v.Guesses == nil {
		v.Guesses = []string{}
	}
	if st.Finished() {
		answer := st.Target.Summary
		v.Answer = &answer
	}
	return v
}

type guessRes struct {
	Outcome game.Outcome `json:"outcome"`
	Message string       `json:"message"`
	Game    gameView     `json:"game"`
}

func outcomeMessage(o game.Outcome) string {
	switch o.Kind {
	case game.OutcomeCorrect:
		return "Correct! It's " + o.Guess.Title
	case game.OutcomeIncorrect:
		return "Wrong guess: " + o.Guess.Title
	default:
		title := ""
		if o.Target != nil {
			title = o.Target.Title
		}
		return "Game Over! The correct movie was: " + title
	}
}

// writeGameError maps core errors to status codes and JSON error codes.
func writeGameError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "empty_guess")
	case errors.Is(err, game.ErrNoMatchResolved):
		writeError(w, http.StatusUnprocessableEntity, "no_match")
	case errors.Is(err, game.ErrGameOver):
		writeError(w, http.StatusConflict, "game_over")
	case errors.Is(err, game.ErrSupplyExhausted):
		hlog.FromRequest(r).Warn().Err(err).Msg("no playable movie")
		writeError(w, http.StatusServiceUnavailable, "supply_exhausted")
	case errors.Is(err, movie.ErrProviderUnavailable):
		hlog.FromRequest(r).Error().Err(err).Msg("movie provider")
		writeError(w, http.StatusBadGateway, "provider_unavailable")
	case errors.Is(err, store.ErrLocked):
		hlog.FromRequest(r).Warn().Err(err).Msg("game busy")
		writeError(w, http.StatusServiceUnavailable, "busy")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "no_game")
	case errors.Is(err, matcher.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_search")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("game request")
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

// ------------------------------ SEARCH -------------------------------------

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	type cat struct {
		ID    movie.Category `json:"id"`
		Label string         `json:"label"`
	}
	out := make([]cat, 0, len(movie.Categories))
	for _, c := range movie.Categories {
		out = append(out, cat{ID: c, Label: c.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

type searchReq struct {
	Query string `json:"query"`
}

type searchRes struct {
	Query   string        `json:"query"`
	Results []movie.Match `json:"results"`
}

// handleSearch accepts {"query": ...} or ?q=...
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchReq
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if req.Query == "" {
		req.Query = r.URL.Query().Get("q")
	}
	q := strings.TrimSpace(req.Query)
	if q == "" {
		writeError(w, http.StatusBadRequest, "empty_query")
		return
	}

	results, err := s.matcher.Search(r.Context(), q,
		matcher.WithThreshold(s.cfg.SearchThreshold),
		matcher.WithLimit(s.cfg.SearchLimit),
	)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchRes{Query: q, Results: results})
}

// ------------------------------- GAME --------------------------------------

type newGameReq struct {
	Category string `json:"category"`
}

func (s *Server) handleCurrentGame(w http.ResponseWriter, r *http.Request) {
	p := s.currentPlayer(w, r)
	key := store.Key("classic", p.key)
	unlock, err := s.locks.Lock(r.Context(), key)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	defer unlock()

	st, err := s.store.Get(r.Context(), key)
	if err == nil {
		writeJSON(w, http.StatusOK, s.view(st))
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		writeGameError(w, r, err)
		return
	}

	st, err = s.startClassic(r, p, key, r.URL.Query().Get("category"))
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(st))
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	p := s.currentPlayer(w, r)
	key := store.Key("classic", p.key)
	unlock, err := s.locks.Lock(r.Context(), key)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	defer unlock()

	st, err := s.startClassic(r, p, key, req.Category)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(st))
}

// startClassic draws a new game and stores it under key, replacing any current one.
func (s *Server) startClassic(r *http.Request, p player, key, category string) (game.State, error) {
	st, err := game.NewGame(r.Context(), s.provider, category, s.gameOptions()...)
	if err != nil {
		return game.State{}, err
	}
	if err := s.store.Save(r.Context(), key, st); err != nil {
		return game.State{}, err
	}
	if err := s.history.Start(r.Context(), st, p.owner, history.ModeClassic); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("gameId", st.ID).Msg("record game start")
	}
	hlog.FromRequest(r).Debug().
		Str("gameId", st.ID).
		Str("category", string(st.Category)).
		Int("backdrops", len(st.Target.Backdrops)).
		Msg("new game")
	return st, nil
}

type guessReq struct {
	Guess string `json:"guess"`
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	p := s.currentPlayer(w, r)
	key := store.Key("classic", p.key)
	unlock, err := s.locks.Lock(r.Context(), key)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	defer unlock()

	st, out, err := s.applyGuess(r, key, req.Guess)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	s.recordProgress(r, st, p.owner)
	writeJSON(w, http.StatusOK, guessRes{Outcome: out, Message: outcomeMessage(out), Game: s.view(st)})
}

// applyGuess loads the game under key, applies guess and saves the result.
// The caller holds the lock for key.
func (s *Server) applyGuess(r *http.Request, key, guess string) (game.State, game.Outcome, error) {
	st, err := s.store.Get(r.Context(), key)
	if err != nil {
		return game.State{}, game.Outcome{}, err
	}
	next, out, err := game.SubmitGuess(r.Context(), st, guess, s.matcher)
	if err != nil {
		return st, game.Outcome{}, err
	}
	if err := s.store.Save(r.Context(), key, next); err != nil {
		return st, game.Outcome{}, err
	}
	return next, out, nil
}

// recordProgress mirrors a guess into the history table (best effort).
func (s *Server) recordProgress(r *http.Request, st game.State, owner history.Owner) {
	if !st.Finished() {
		if err := s.history.Progress(r.Context(), st, owner); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Str("gameId", st.ID).Msg("record guess")
		}
		return
	}
	if _, err := s.history.Finish(r.Context(), st, owner); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("gameId", st.ID).Msg("record finish")
	}
}
