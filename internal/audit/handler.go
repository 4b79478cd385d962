package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/view"
)

// Gate builds the permission middleware protecting the timeline route. It
// is injected as a function so this package stays import-free of the
// authorization engine, which itself records audit entries.
type Gate func(perms ...string) func(http.Handler) http.Handler

// Handler serves the audit timeline page.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	gate      Gate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager, gate Gate) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, sessions: sessions, gate: gate}
}

// MountRoutes registers the timeline route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate(shared.PermAuditView))
		r.Get("/", h.timeline)
	})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters := parseTimelineFilters(r)
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/audit/timeline.html", map[string]any{
		"Result":  result,
		"Filters": filters,
	}, http.StatusOK)
}

func parseTimelineFilters(r *http.Request) TimelineFilters {
	q := r.URL.Query()
	filters := TimelineFilters{
		Entity: q.Get("entity"),
		Action: q.Get("action"),
	}
	if raw := q.Get("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filters.From = t
		}
	}
	if raw := q.Get("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			// Inclusive through the end of the day.
			filters.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	return filters
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Audit Log", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
