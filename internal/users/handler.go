package users

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/view"
)

// Handler manages identity administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authzSvc  *authz.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	guard     authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authzSvc *authz.Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authzSvc: authzSvc, templates: templates, csrf: csrf, sessions: sessions, guard: guard}
}

// MountRoutes registers identity routes behind the admin gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin())
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireAny(shared.PermUserView))
			r.Get("/", h.list)
			r.Get("/{id}", h.show)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireAny(shared.PermUserEdit))
			r.Post("/", h.create)
			r.Post("/{id}/role", h.assignRole)
			r.Post("/{id}/active", h.setActive)
			r.Post("/{id}/password", h.setPassword)
			r.Post("/{id}/deactivate", h.deactivate)
			r.Post("/{id}/permissions", h.grantPermission)
			r.Post("/{id}/permissions/{permID}/revoke", h.revokePermission)
			r.Post("/{id}/impersonate", h.impersonate)
		})
	})
}

// MountImpersonationStop registers the exit route. It is gated only on
// authentication: while impersonating, the actor usually is not an admin.
func (h *Handler) MountImpersonationStop(r chi.Router) {
	r.With(h.guard.RequireAuthenticated).Post("/stop", h.stopImpersonation)
}

type formErrors map[string]string

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userList, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		h.render(w, r, "pages/users/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/users/list.html", map[string]any{"Users": userList}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	detail, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	allPerms, err := h.authzSvc.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions failed", slog.Any("error", err))
		allPerms = nil
	}
	h.render(w, r, "pages/users/detail.html", map[string]any{"User": detail, "AllPermissions": allPerms}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := NewUserInput{Username: r.PostFormValue("username")}
	if raw := strings.TrimSpace(r.PostFormValue("employee_id")); raw != "" {
		empID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			h.redirectWithFlash(w, r, "/admin/users", "error", "Invalid employee reference")
			return
		}
		in.EmployeeID = &empID
	}
	if roleID, parseErr := strconv.ParseInt(r.PostFormValue("role_id"), 10, 64); parseErr == nil {
		in.RoleID = roleID
	}
	actor, _ := authz.ActorFromContext(r.Context())
	u, err := h.service.CreateUser(r.Context(), actor.UserID, in)
	if err != nil {
		h.logger.Warn("create user failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/users", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/users/"+strconv.FormatInt(u.ID, 10), "success", "User created")
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	roleID, err := strconv.ParseInt(r.PostFormValue("role_id"), 10, 64)
	if err != nil {
		h.redirectWithFlash(w, r, h.userPath(id), "error", "Invalid role")
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.AssignRole(r.Context(), actor.UserID, id, roleID); err != nil {
		h.redirectWithFlash(w, r, h.userPath(id), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, h.userPath(id), "success", "Role updated")
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	active := r.PostFormValue("active") == "true"
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.SetActive(r.Context(), actor.UserID, id, active); err != nil {
		h.redirectWithFlash(w, r, h.userPath(id), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, h.userPath(id), "success", "Active flag updated")
}

func (h *Handler) setPassword(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.SetPassword(r.Context(), actor.UserID, id, r.PostFormValue("password")); err != nil {
		h.redirectWithFlash(w, r, h.userPath(id), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, h.userPath(id), "success", "Password updated")
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), actor.UserID, id); err != nil {
		h.redirectWithFlash(w, r, h.userPath(id), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/users", "success", "User deactivated")
}

func (h *Handler) grantPermission(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	permID, err := strconv.ParseInt(r.PostFormValue("permission_id"), 10, 64)
	if err != nil {
		h.redirectWithFlash(w, r, h.userPath(id), "error", "Invalid permission")
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.GrantPermission(r.Context(), actor.UserID, id, permID); err != nil {
		h.redirectWithFlash(w, r, h.userPath(id), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, h.userPath(id), "success", "Permission granted")
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	permID, err := h.pathID(r, "permID")
	if err != nil {
		http.Error(w, "Invalid permission ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.RevokePermission(r.Context(), actor.UserID, id, permID); err != nil {
		h.redirectWithFlash(w, r, h.userPath(id), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, h.userPath(id), "success", "Permission revoked")
}

func (h *Handler) impersonate(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if err := h.authzSvc.StartImpersonation(r.Context(), sess, id); err != nil {
		h.logger.Warn("impersonation refused", slog.Any("error", err), slog.Int64("target", id))
		h.redirectWithFlash(w, r, h.userPath(id), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/", "success", "Now impersonating")
}

func (h *Handler) stopImpersonation(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	h.authzSvc.StopImpersonation(r.Context(), sess)
	h.redirectWithFlash(w, r, "/", "success", "Impersonation ended")
}

func (h *Handler) userPath(id int64) string {
	return "/admin/users/" + strconv.FormatInt(id, 10)
}

func (h *Handler) pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Users", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
