package members

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/view"
)

// Handler serves roster screens for committee instances.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	guard     authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, sessions: sessions, guard: guard}
}

// MountRoutes registers roster routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermCommitteeView))
		r.Get("/instances/{instanceID}", h.roster)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermMemberEdit))
		r.Post("/instances/{instanceID}", h.add)
		r.Post("/{id}/seat", h.changeSeat)
		r.Post("/{id}/remove", h.remove)
		r.Post("/roles", h.createRole)
		r.Post("/roles/{id}/delete", h.deleteRole)
	})
}

func (h *Handler) roster(w http.ResponseWriter, r *http.Request) {
	instanceID, err := pathID(r, "instanceID")
	if err != nil {
		http.Error(w, "Invalid instance ID", http.StatusBadRequest)
		return
	}
	roster, err := h.service.ListForInstance(r.Context(), instanceID)
	if err != nil {
		h.logger.Error("list roster failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	seatTypes, _ := h.service.ListMemberRoles(r.Context())
	h.render(w, r, "pages/members/roster.html", map[string]any{
		"Members": roster, "SeatTypes": seatTypes, "InstanceID": instanceID,
	}, http.StatusOK)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	instanceID, err := pathID(r, "instanceID")
	if err != nil {
		http.Error(w, "Invalid instance ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	employeeID, _ := strconv.ParseInt(r.PostFormValue("employee_id"), 10, 64)
	memberRoleID, _ := strconv.ParseInt(r.PostFormValue("member_role_id"), 10, 64)
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.AddMember(r.Context(), actor.UserID, instanceID, employeeID, memberRoleID); err != nil {
		h.redirectWithFlash(w, r, rosterPath(instanceID), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, rosterPath(instanceID), "success", "Member added")
}

func (h *Handler) changeSeat(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	memberRoleID, _ := strconv.ParseInt(r.PostFormValue("member_role_id"), 10, 64)
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.ChangeSeat(r.Context(), actor.UserID, id, memberRoleID); err != nil {
		h.redirectWithFlash(w, r, r.Referer(), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, r.Referer(), "success", "Seat updated")
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.RemoveMember(r.Context(), actor.UserID, id); err != nil {
		h.redirectWithFlash(w, r, r.Referer(), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, r.Referer(), "success", "Member removed")
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.CreateMemberRole(r.Context(), actor.UserID, r.PostFormValue("name")); err != nil {
		h.redirectWithFlash(w, r, r.Referer(), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, r.Referer(), "success", "Seat type created")
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid role ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.DeleteMemberRole(r.Context(), actor.UserID, id); err != nil {
		h.redirectWithFlash(w, r, r.Referer(), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, r.Referer(), "success", "Seat type deleted")
}

func rosterPath(instanceID int64) string {
	return "/members/instances/" + strconv.FormatInt(instanceID, 10)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Members", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if location == "" {
		location = "/"
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
