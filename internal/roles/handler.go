package roles

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/view"
)

// Handler manages role administration endpoints.
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

// MountRoutes registers role routes behind the admin gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin())
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireAny(shared.PermRoleView))
			r.Get("/", h.list)
			r.Get("/{id}", h.show)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireAny(shared.PermRoleEdit))
			r.Get("/new", h.form)
			r.Post("/", h.create)
			r.Post("/{id}", h.update)
			r.Post("/{id}/delete", h.delete)
			r.Post("/{id}/permissions", h.setPermissions)
		})
	})
}

type formErrors map[string]string

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	roleList, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
		h.render(w, r, "pages/roles/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/roles/list.html", map[string]any{"Roles": roleList}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid role ID", http.StatusBadRequest)
		return
	}
	detail, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.logger.Warn("get role failed", slog.Any("error", err), slog.Int64("id", id))
		http.Error(w, "Role not found", http.StatusNotFound)
		return
	}
	allPerms, err := h.authzSvc.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions failed", slog.Any("error", err))
		allPerms = nil
	}
	h.render(w, r, "pages/roles/detail.html", map[string]any{"Role": detail, "AllPermissions": allPerms}, http.StatusOK)
}

func (h *Handler) form(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/roles/form.html", map[string]any{"Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	role, err := h.service.CreateRole(r.Context(), actor.UserID, r.PostFormValue("name"), r.PostFormValue("description"))
	if err != nil {
		h.logger.Warn("create role failed", slog.Any("error", err))
		h.render(w, r, "pages/roles/form.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/admin/roles/"+strconv.FormatInt(role.ID, 10), "success", "Role created")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid role ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.UpdateRole(r.Context(), actor.UserID, id, r.PostFormValue("name"), r.PostFormValue("description")); err != nil {
		h.logger.Warn("update role failed", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, "/admin/roles/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/roles/"+chi.URLParam(r, "id"), "success", "Role updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid role ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.DeleteRole(r.Context(), actor.UserID, id); err != nil {
		h.logger.Warn("delete role failed", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, "/admin/roles", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/roles", "success", "Role deleted")
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid role ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	var permIDs []int64
	for _, raw := range r.PostForm["permission_id"] {
		if permID, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
			permIDs = append(permIDs, permID)
		}
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.SetPermissions(r.Context(), actor.UserID, id, permIDs); err != nil {
		h.logger.Warn("set role permissions failed", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, "/admin/roles/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/roles/"+chi.URLParam(r, "id"), "success", "Permissions updated")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Roles", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
