package directory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/view"
)

// Handler serves the employee directory screens.
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

// MountRoutes registers directory routes. Local employee screens need only
// authentication; live AD search is separately permission gated.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuthenticated)
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermADSearchView))
		r.Get("/search", h.searchExternal)
		r.Post("/import", h.importPerson)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ListFilters{Search: r.URL.Query().Get("q")}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		filters.Page = page
	}
	employees, err := h.service.ListEmployees(r.Context(), filters)
	if err != nil {
		h.logger.Error("list employees failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/directory/list.html", map[string]any{"Employees": employees, "Query": filters.Search}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid employee ID", http.StatusBadRequest)
		return
	}
	employee, err := h.service.GetEmployee(r.Context(), id)
	if err != nil {
		http.Error(w, "Employee not found", http.StatusNotFound)
		return
	}
	h.render(w, r, "pages/directory/detail.html", map[string]any{"Employee": employee}, http.StatusOK)
}

func (h *Handler) searchExternal(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	var people []Person
	if term != "" {
		var err error
		people, err = h.service.SearchExternal(r.Context(), term)
		if err != nil {
			h.logger.Warn("external directory search failed", slog.Any("error", err))
			h.render(w, r, "pages/directory/search.html", map[string]any{"Query": term, "Error": shared.UserSafeMessage(err)}, http.StatusOK)
			return
		}
	}
	h.render(w, r, "pages/directory/search.html", map[string]any{"Query": term, "People": people}, http.StatusOK)
}

func (h *Handler) importPerson(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	p := Person{
		Username:   r.PostFormValue("username"),
		FirstName:  r.PostFormValue("first_name"),
		LastName:   r.PostFormValue("last_name"),
		Email:      r.PostFormValue("email"),
		Department: r.PostFormValue("department"),
		Title:      r.PostFormValue("title"),
	}
	employee, err := h.service.ImportPerson(r.Context(), actor.UserID, p)
	if err != nil {
		h.redirectWithFlash(w, r, "/directory/search", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/directory/"+strconv.FormatInt(employee.ID, 10), "success", "Employee imported")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Directory", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
