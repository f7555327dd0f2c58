// internal/httpserver/auth.go
//
// Accounts over HTTP.
// Responsibilities:
//   - /auth/signup, /auth/login, /auth/logout, /auth/me, /stats/me, /games/mine.
//   - Optional / required auth middleware (Bearer header or auth cookie).
//   - Anonymous player cookie, and moving a guest's games to the account on login.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/movieguess/apps/go-server/internal/account"
	"github.com/robalobadob/movieguess/apps/go-server/internal/daily"
	"github.com/robalobadob/movieguess/apps/go-server/internal/history"
	"github.com/robalobadob/movieguess/apps/go-server/internal/store"
)

const anonCookieName = "movieguess_anon"

// authUser is placed into request context by the auth middleware.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ctxUserKey struct{}

func userFrom(ctx context.Context) *authUser {
	u, _ := ctx.Value(ctxUserKey{}).(*authUser)
	return u
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	s.r.With(s.requireAuth()).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, userFrom(r.Context()))
	})

	s.r.With(s.requireAuth()).Get("/stats/me", func(w http.ResponseWriter, r *http.Request) {
		u, err := s.accounts.ByID(r.Context(), userFrom(r.Context()).ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":          u.ID,
			"gamesPlayed": u.GamesPlayed,
			"wins":        u.Wins,
			"streak":      u.Streak,
		})
	})

	s.r.With(s.requireAuth()).Get("/games/mine", func(w http.ResponseWriter, r *http.Request) {
		recs, err := s.history.ListByUser(r.Context(), userFrom(r.Context()).ID, 50)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("list games")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeJSON(w, http.StatusOK, recs)
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.accounts.Signup(r.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, account.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username_taken")
		return
	case errors.Is(err, account.ErrInvalidSignup):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_signup", "detail": err.Error()})
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("signup")
		writeError(w, http.StatusInternalServerError, "signup_failed")
		return
	}
	if !s.startSession(w, r, u) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.accounts.Login(r.Context(), body.Username, body.Password)
	if errors.Is(err, account.ErrBadCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("login")
		writeError(w, http.StatusInternalServerError, "login_failed")
		return
	}
	if !s.startSession(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// startSession sets the auth cookie and hands the guest's history and
// in-progress games over to u. It writes the error response itself.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, u account.User) bool {
	tok, exp, err := s.accounts.SignToken(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return false
	}
	s.setAuthCookie(w, tok, exp)

	anonID := s.ensureAnonID(w, r)
	guest, member := "a:"+anonID, "u:"+u.ID
	date := daily.DateKey(s.now())

	// Guest games still in play only change hands together with their session.
	var adopted []string
	for _, k := range [][2]string{
		{store.Key("classic", guest), store.Key("classic", member)},
		{store.Key("daily", date, guest), store.Key("daily", date, member)},
	} {
		id, err := s.adoptSession(r.Context(), k[0], k[1])
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Str("from", k[0]).Msg("adopt guest session")
			continue
		}
		if id != "" {
			adopted = append(adopted, id)
		}
	}

	n, err := s.history.Claim(r.Context(), anonID, u.ID, adopted...)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("claim anon games")
	} else if n > 0 {
		hlog.FromRequest(r).Info().Int64("games", n).Str("user", u.ID).Msg("claimed anon games")
	}
	return true
}

// adoptSession moves a stored game from one key to another unless the target
// already has one. It returns the moved game's ID, or "" when nothing moved.
func (s *Server) adoptSession(ctx context.Context, from, to string) (string, error) {
	unlock, err := lockAll(ctx, s.locks, from, to)
	if err != nil {
		return "", err
	}
	defer unlock()

	if _, err := s.store.Get(ctx, to); err == nil {
		return "", nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	st, err := s.store.Get(ctx, from)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if err := s.store.Save(ctx, to, st); err != nil {
		return "", err
	}
	if err := s.store.Delete(ctx, from); err != nil {
		return "", err
	}
	return st.ID, nil
}

// --------------------------- auth middleware --------------------------------

// withOptionalAuth decorates requests with user context if a valid JWT is present.
// It never 401s; used for routes where guests are allowed.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u := s.authenticate(r); u != nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, u))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth enforces a valid JWT for a user that still exists.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.bearerOrCookie(r) == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			u := s.authenticate(r)
			if u == nil {
				writeError(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, u)))
		})
	}
}

func (s *Server) authenticate(r *http.Request) *authUser {
	tok := s.bearerOrCookie(r)
	if tok == "" {
		return nil
	}
	claims, err := s.accounts.ParseToken(tok)
	if err != nil {
		return nil
	}
	u, err := s.accounts.ByID(r.Context(), claims.UserID)
	if err != nil {
		return nil
	}
	return &authUser{ID: u.ID, Username: u.Username}
}

// --------------------------- players & cookies ------------------------------

// player is whoever a game request acts for.
type player struct {
	key   string // store/lock key part: "u:<user id>" or "a:<anon id>"
	owner history.Owner
}

func (s *Server) currentPlayer(w http.ResponseWriter, r *http.Request) player {
	if me := userFrom(r.Context()); me != nil {
		return player{key: "u:" + me.ID, owner: history.Owner{UserID: me.ID}}
	}
	anon := s.ensureAnonID(w, r)
	return player{key: "a:" + anon, owner: history.Owner{AnonID: anon}}
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, s.cookie(anonCookieName, id, time.Now().Add(180*24*time.Hour)))
	// later reads in this request see the new ID
	r.AddCookie(&http.Cookie{Name: anonCookieName, Value: id})
	return id
}

func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, s.cookie(s.cfg.CookieName, token, exp))
}

func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	c := s.cookie(s.cfg.CookieName, "", time.Time{})
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// cookie builds an HttpOnly cookie. Production cookies are Secure + SameSite=None.
func (s *Server) cookie(name, value string, exp time.Time) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if s.cfg.Production {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: sameSite,
		Expires:  exp,
	}
}

func (s *Server) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}
