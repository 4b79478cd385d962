package instruments

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

// Handler serves instrument request screens.
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

// MountRoutes registers instrument request routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermInstrumentView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermInstrumentEdit))
		r.Post("/", h.submit)
		r.Post("/{id}", h.update)
		r.Post("/{id}/review", h.review)
		r.Post("/{id}/delete", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r)
	requests, err := h.service.ListRequests(r.Context(), filters)
	if err != nil {
		h.logger.Error("list instrument requests failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/instruments/list.html", map[string]any{"Requests": requests, "Filters": filters}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid request ID", http.StatusBadRequest)
		return
	}
	req, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		http.Error(w, "Request not found", http.StatusNotFound)
		return
	}
	h.render(w, r, "pages/instruments/detail.html", map[string]any{"Request": req}, http.StatusOK)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	created, err := h.service.SubmitRequest(r.Context(), actor.UserID, formInput(r))
	if err != nil {
		h.redirectWithFlash(w, r, "/instruments", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/instruments/"+strconv.FormatInt(created.ID, 10), "success", "Request submitted")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid request ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.UpdateRequest(r.Context(), actor.UserID, id, formInput(r)); err != nil {
		h.redirectWithFlash(w, r, "/instruments/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/instruments/"+chi.URLParam(r, "id"), "success", "Request updated")
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid request ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.ReviewRequest(r.Context(), actor.UserID, id, r.PostFormValue("status")); err != nil {
		h.redirectWithFlash(w, r, "/instruments/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/instruments/"+chi.URLParam(r, "id"), "success", "Request reviewed")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid request ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.DeleteRequest(r.Context(), actor.UserID, id); err != nil {
		h.redirectWithFlash(w, r, "/instruments", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/instruments", "success", "Request deleted")
}

func formInput(r *http.Request) NewRequestInput {
	in := NewRequestInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
	}
	if raw := r.PostFormValue("needed_by"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			in.NeededBy = &t
		}
	}
	return in
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Instrument Requests", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
