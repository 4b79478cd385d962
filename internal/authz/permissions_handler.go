package authz

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/view"
)

// PermissionsHandler manages permission administration pages.
type PermissionsHandler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	guard     Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager, guard Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, templates: templates, csrf: csrf, sessions: sessions, guard: guard}
}

// MountRoutes registers permission routes. The whole area sits behind the
// admin role; the fine-grained pairs still gate the individual operations.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin())
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireAny(shared.PermPermissionView))
			r.Get("/", h.list)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireAny(shared.PermPermissionEdit))
			r.Post("/", h.create)
			r.Post("/{id}/delete", h.delete)
		})
	})
}

type formErrors map[string]string

func (h *PermissionsHandler) list(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions failed", slog.Any("error", err))
		h.render(w, r, "pages/permissions/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/permissions/list.html", map[string]any{"Permissions": perms}, http.StatusOK)
}

func (h *PermissionsHandler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := ActorFromContext(r.Context())
	_, err := h.service.CreatePermission(r.Context(), actor, r.PostFormValue("resource"), r.PostFormValue("action"))
	if err != nil {
		h.logger.Warn("create permission failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/permissions", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/permissions", "success", "Permission created")
}

func (h *PermissionsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid permission ID", http.StatusBadRequest)
		return
	}
	actor, _ := ActorFromContext(r.Context())
	if err := h.service.DeletePermission(r.Context(), actor, id); err != nil {
		h.logger.Warn("delete permission failed", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, "/admin/permissions", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/permissions", "success", "Permission deleted")
}

func (h *PermissionsHandler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Permissions", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *PermissionsHandler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
