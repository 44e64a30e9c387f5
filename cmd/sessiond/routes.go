package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/environment"
	"github.com/dmitrymomot/sessionkit/pkg/fingerprint"
	"github.com/dmitrymomot/sessionkit/pkg/httpserver"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/requestid"
	"github.com/dmitrymomot/sessionkit/pkg/session"
	"github.com/dmitrymomot/sessionkit/pkg/trustproxy"
)

type routerDeps struct {
	env         environment.Environment
	log         *slog.Logger
	resolver    *trustproxy.Resolver
	sessions    *session.Manager
	prefs       *cookie.Manager
	prefsCookie string
	checks      []httpserver.Check
}

func newRouter(d routerDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(environment.Middleware(d.env))
	r.Use(d.resolver.Middleware)
	r.Use(fingerprint.Middleware)

	r.Get("/livez", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(d.log, 2*time.Second, d.checks...))

	h := &handlers{log: d.log, prefs: d.prefs, prefsCookie: d.prefsCookie}

	r.Group(func(r chi.Router) {
		r.Use(d.sessions.Middleware)

		r.Get("/", h.views)
		r.Get("/whoami", h.whoami)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Post("/forget", h.forget)
		r.Get("/prefs", h.getPrefs)
		r.Post("/prefs", h.setPrefs)
	})

	return r
}

type handlers struct {
	log         *slog.Logger
	prefs       *cookie.Manager
	prefsCookie string
}

func (h *handlers) views(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		// Store is down; serve without counting.
		h.json(w, r, http.StatusOK, map[string]any{"views": 0, "session": false})
		return
	}
	n, _ := s.GetInt("views")
	n++
	s.Set("views", n)
	h.json(w, r, http.StatusOK, map[string]any{"views": n, "session": true})
}

func (h *handlers) whoami(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	user, signedIn := s.GetString("user")
	if !ok || !signedIn {
		h.json(w, r, http.StatusUnauthorized, map[string]any{"error": "not signed in"})
		return
	}
	if err := fingerprint.Verify(r, s); err != nil {
		h.log.WarnContext(r.Context(), "session used from another device",
			logger.SessionID(s.ID()), logger.Error(err))
		if err := s.Destroy(r.Context()); err != nil {
			h.fail(w, r, err)
			return
		}
		h.json(w, r, http.StatusUnauthorized, map[string]any{"error": "not signed in"})
		return
	}
	h.json(w, r, http.StatusOK, map[string]any{"user": user, "signed_in_at": s.Values()["signed_in_at"]})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	user := r.FormValue("user")
	if user == "" {
		h.json(w, r, http.StatusBadRequest, map[string]any{"error": "user is required"})
		return
	}

	// A fresh id on privilege change prevents session fixation.
	s, err := session.Regenerate(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	s.Set("user", user)
	s.Set("signed_in_at", time.Now().UTC().Format(time.RFC3339))
	fingerprint.Bind(r, s)
	h.json(w, r, http.StatusOK, map[string]any{"user": user})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.Destroy(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) forget(w http.ResponseWriter, r *http.Request) {
	if err := session.Unset(r.Context()); err != nil && !errors.Is(err, session.ErrNoActiveSession) {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getPrefs(w http.ResponseWriter, r *http.Request) {
	theme, err := h.prefs.GetSigned(r, h.prefsCookie)
	if err != nil {
		theme = "light"
	}
	h.json(w, r, http.StatusOK, map[string]any{"theme": theme})
}

func (h *handlers) setPrefs(w http.ResponseWriter, r *http.Request) {
	theme := r.FormValue("theme")
	if theme != "light" && theme != "dark" {
		h.json(w, r, http.StatusBadRequest, map[string]any{"error": "theme must be light or dark"})
		return
	}
	h.prefs.SetSigned(w, h.prefsCookie, theme)
	h.json(w, r, http.StatusOK, map[string]any{"theme": theme})
}

func (h *handlers) json(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write response", logger.Error(err))
	}
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.log.ErrorContext(r.Context(), "session operation failed", logger.SessionID(session.IDFromContext(r.Context())), logger.Error(err))
	h.json(w, r, http.StatusInternalServerError, map[string]any{"error": http.StatusText(http.StatusInternalServerError)})
}
