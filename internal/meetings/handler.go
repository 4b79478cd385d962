package meetings

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/view"
)

// Handler serves meeting and attendance screens.
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

// MountRoutes registers meeting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermCommitteeView))
		r.Get("/instances/{instanceID}", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermMeetingEdit))
		r.Post("/instances/{instanceID}", h.schedule)
		r.Post("/{id}", h.reschedule)
		r.Post("/{id}/cancel", h.cancel)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermAttendanceEdit))
		r.Post("/{id}/attendance", h.markAttendance)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	instanceID, err := pathID(r, "instanceID")
	if err != nil {
		http.Error(w, "Invalid instance ID", http.StatusBadRequest)
		return
	}
	meetings, err := h.service.ListForInstance(r.Context(), instanceID)
	if err != nil {
		h.logger.Error("list meetings failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/meetings/list.html", map[string]any{"Meetings": meetings, "InstanceID": instanceID}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid meeting ID", http.StatusBadRequest)
		return
	}
	meeting, err := h.service.GetMeeting(r.Context(), id)
	if err != nil {
		http.Error(w, "Meeting not found", http.StatusNotFound)
		return
	}
	sheet, err := h.service.ListAttendance(r.Context(), id)
	if err != nil {
		h.logger.Error("list attendance failed", slog.Any("error", err))
	}
	h.render(w, r, "pages/meetings/detail.html", map[string]any{"Meeting": meeting, "Attendance": sheet}, http.StatusOK)
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	instanceID, err := pathID(r, "instanceID")
	if err != nil {
		http.Error(w, "Invalid instance ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	meeting, err := h.service.ScheduleMeeting(r.Context(), actor.UserID, Meeting{
		AYCommitteeID: instanceID,
		Title:         r.PostFormValue("title"),
		Location:      r.PostFormValue("location"),
		StartsAt:      parseLocalTime(r.PostFormValue("starts_at")),
		EndsAt:        parseLocalTime(r.PostFormValue("ends_at")),
		Notes:         r.PostFormValue("notes"),
	})
	if err != nil {
		h.redirectWithFlash(w, r, "/meetings/instances/"+chi.URLParam(r, "instanceID"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/meetings/"+strconv.FormatInt(meeting.ID, 10), "success", "Meeting scheduled")
}

func (h *Handler) reschedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid meeting ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.RescheduleMeeting(r.Context(), actor.UserID, Meeting{
		ID:       id,
		Title:    r.PostFormValue("title"),
		Location: r.PostFormValue("location"),
		StartsAt: parseLocalTime(r.PostFormValue("starts_at")),
		EndsAt:   parseLocalTime(r.PostFormValue("ends_at")),
		Notes:    r.PostFormValue("notes"),
	}); err != nil {
		h.redirectWithFlash(w, r, "/meetings/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/meetings/"+chi.URLParam(r, "id"), "success", "Meeting updated")
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid meeting ID", http.StatusBadRequest)
		return
	}
	meeting, err := h.service.GetMeeting(r.Context(), id)
	if err != nil {
		http.Error(w, "Meeting not found", http.StatusNotFound)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.CancelMeeting(r.Context(), actor.UserID, id); err != nil {
		h.redirectWithFlash(w, r, "/meetings/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/meetings/instances/"+strconv.FormatInt(meeting.AYCommitteeID, 10), "success", "Meeting cancelled")
}

func (h *Handler) markAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid meeting ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	memberID, err := strconv.ParseInt(r.PostFormValue("member_id"), 10, 64)
	if err != nil {
		h.redirectWithFlash(w, r, "/meetings/"+chi.URLParam(r, "id"), "error", "Invalid member")
		return
	}
	present := r.PostFormValue("present") == "true"
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.MarkAttendance(r.Context(), actor.UserID, id, memberID, present); err != nil {
		h.redirectWithFlash(w, r, "/meetings/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/meetings/"+chi.URLParam(r, "id"), "success", "Attendance updated")
}

func parseLocalTime(value string) time.Time {
	t, err := time.Parse("2006-01-02T15:04", value)
	if err != nil {
		return time.Time{}
	}
	return t
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
	viewData := view.TemplateData{Title: "Meetings", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
