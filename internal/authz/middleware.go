package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quorum-app/quorum/internal/platform/httpx"
	"github.com/quorum-app/quorum/internal/shared"
)

// Middleware wires the engine into the HTTP request path. Routes declare
// required permissions as data ("resource+action" strings); this one checker
// enforces them before any handler body runs, so a denied state-changing
// request never reaches a write.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// WithActor resolves the acting identity (honouring impersonation) and
// attaches it to the request context. An unauthenticated request passes
// through without an actor; the Require* guards decide what that means.
func (m Middleware) WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		actor, err := m.Service.ResolveActor(r.Context(), sess)
		if err != nil {
			if !errors.Is(err, shared.ErrUnauthenticated) {
				if m.Logger != nil {
					m.Logger.Error("resolve actor", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}

// RequireAuthenticated rejects requests without a resolved identity.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ActorFromContext(r.Context()); !ok {
			m.denyUnauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the actor satisfies at least one of the declared
// "resource+action" requirements. Malformed entries are skipped; a guard
// whose every entry is malformed denies everything rather than failing open.
func (m Middleware) RequireAny(requirements ...string) func(http.Handler) http.Handler {
	parsed := ParseRequirements(requirements)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(requirements) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				m.denyUnauthenticated(w, r)
				return
			}
			if !actor.CanAny(parsed) {
				m.denyForbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates whole administration areas on the admin role, the
// coarse check distinct from per-permission guards.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				m.denyUnauthenticated(w, r)
				return
			}
			if !actor.IsAdmin() {
				m.denyForbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) denyUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (m Middleware) denyForbidden(w http.ResponseWriter, r *http.Request) {
	if m.Logger != nil {
		m.Logger.Warn("forbidden", slog.String("path", r.URL.Path), slog.String("method", r.Method))
	}
	if wantsJSON(r) {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		http.Error(w, "Forbidden: you do not have permission to view this page", http.StatusForbidden)
		return
	}
	// Form submission: surface the denial as a flash and send the caller
	// back with nothing written.
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: shared.UserSafeMessage(shared.ErrForbidden)})
	}
	target := r.Referer()
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") || r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}
