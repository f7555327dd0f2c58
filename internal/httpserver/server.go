// internal/httpserver/server.go
//
// HTTP server wiring for the movie-guess backend.
// Responsibilities:
//   - Router + middleware (request IDs, access logs, CORS, timeouts, panic recovery).
//   - Public endpoints: "/", "/health", "/categories", "/search".
//   - Game endpoints (optional auth): GET /game, POST /game/new, POST /game/guess.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Each player (user or anonymous cookie) owns one classic game and one daily
//     game per date; requests for the same player are serialized.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/movieguess/apps/go-server/internal/account"
	"github.com/robalobadob/movieguess/apps/go-server/internal/config"
	"github.com/robalobadob/movieguess/apps/go-server/internal/daily"
	"github.com/robalobadob/movieguess/apps/go-server/internal/game"
	"github.com/robalobadob/movieguess/apps/go-server/internal/history"
	"github.com/robalobadob/movieguess/apps/go-server/internal/matcher"
	"github.com/robalobadob/movieguess/apps/go-server/internal/movie"
	"github.com/robalobadob/movieguess/apps/go-server/internal/store"
)

// Provider is the movie metadata backend (the TMDB client in production).
type Provider interface {
	movie.Searcher
	movie.Lister
	movie.ImageSource
}

// Server bundles the router with the game store, database-backed services
// and the movie provider.
type Server struct {
	r        *chi.Mux
	cfg      config.Config
	store    store.Store
	provider Provider
	matcher  *matcher.Matcher
	accounts *account.Service
	history  *history.Recorder
	locks    Locker
	now      func() time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithLocker replaces the in-process per-game lock, e.g. with a store.RedisLocker
// when several instances share one Redis store.
func WithLocker(l Locker) Option {
	return func(s *Server) { s.locks = l }
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, db *sql.DB, provider Provider, opts ...Option) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      cfg,
		store:    st,
		provider: provider,
		matcher:  matcher.New(provider, provider, cfg.SearchImageBase),
		accounts: account.NewService(db, cfg.JWTSecret, cfg.JWTExpiresIn),
		history:  history.NewRecorder(db),
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(hlog.NewHandler(log.Logger))
	s.r.Use(requestIDLogger)
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(30 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.ClientOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "movieguess-go",
			"endpoints": []string{"/health", "/categories", "POST /search", "GET /game", "POST /game/new", "POST /game/guess", "/daily/*", "/auth/*"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	s.r.Get("/categories", s.handleCategories)
	s.r.Post("/search", s.handleSearch)
	s.r.Get("/search", s.handleSearch)

	// Game endpoints: guests can play
	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		r.Get("/game", s.handleCurrentGame)
		r.Post("/game/new", s.handleNewGame)
		r.Post("/game/guess", s.handleGuess)
	})

	s.mountDaily(s.r.With(s.withOptionalAuth()), daily.NewStore(db))
	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// gameOptions are the NewGame settings taken from config.
func (s *Server) gameOptions() []game.Option {
	return []game.Option{
		game.WithMaxGuesses(s.cfg.MaxGuesses),
		game.WithMinBackdrops(s.cfg.MinBackdrops),
		game.WithMaxRetries(s.cfg.MaxRetries),
	}
}

// ----------------------------- middleware ----------------------------------

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// requestIDLogger tags the request logger with chi's request ID.
func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	lvl := zerolog.InfoLevel
	if status >= 500 {
		lvl = zerolog.ErrorLevel
	}
	hlog.FromRequest(r).WithLevel(lvl).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// ------------------------------ responses ----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
