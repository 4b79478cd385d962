package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/view"
)

// Handler serves report screens and exports.
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

// MountRoutes registers report routes. The calendar feed only needs a
// signed-in session; everything else sits behind the report gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuthenticated)
		r.Get("/calendar.ics", h.calendar)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermReportView))
		r.Get("/hours/{yearID}", h.hours)
		r.Get("/hours/{yearID}/export.csv", h.hoursCSV)
		r.Get("/hours/{yearID}/export.pdf", h.hoursPDF)
		r.Get("/hours/{yearID}/members/{instanceID}", h.members)
	})
}

func (h *Handler) hoursReport(w http.ResponseWriter, r *http.Request) (HoursReport, bool) {
	yearID, err := strconv.ParseInt(chi.URLParam(r, "yearID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid year ID", http.StatusBadRequest)
		return HoursReport{}, false
	}
	report, err := h.service.HoursForYear(r.Context(), yearID)
	if err != nil {
		h.logger.Error("build hours report failed", slog.Any("error", err))
		http.Error(w, shared.UserSafeMessage(err), http.StatusInternalServerError)
		return HoursReport{}, false
	}
	return report, true
}

func (h *Handler) hours(w http.ResponseWriter, r *http.Request) {
	report, ok := h.hoursReport(w, r)
	if !ok {
		return
	}
	h.render(w, r, "pages/reports/hours.html", map[string]any{"Report": report}, http.StatusOK)
}

func (h *Handler) hoursCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.hoursReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "committee-hours-"+report.YearName+".csv"))
	if err := h.service.WriteCSV(w, report); err != nil {
		h.logger.Error("write hours csv", slog.Any("error", err))
	}
}

func (h *Handler) hoursPDF(w http.ResponseWriter, r *http.Request) {
	report, ok := h.hoursReport(w, r)
	if !ok {
		return
	}
	pdf, err := h.service.RenderPDF(r.Context(), report)
	if err != nil {
		h.logger.Error("render hours pdf", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=%q", "committee-hours-"+report.YearName+".pdf"))
	_, _ = w.Write(pdf)
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	report, ok := h.hoursReport(w, r)
	if !ok {
		return
	}
	instanceID, err := strconv.ParseInt(chi.URLParam(r, "instanceID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid instance ID", http.StatusBadRequest)
		return
	}
	breakdown, err := h.service.MemberBreakdown(r.Context(), instanceID)
	if err != nil {
		h.logger.Error("member breakdown failed", slog.Any("error", err))
		http.Error(w, shared.UserSafeMessage(err), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/reports/members.html", map[string]any{"Report": report, "Members": breakdown}, http.StatusOK)
}

func (h *Handler) calendar(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="quorum-meetings.ics"`)
	if err := h.service.Calendar(r.Context(), w); err != nil {
		h.logger.Error("write calendar feed", slog.Any("error", err))
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Reports", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
