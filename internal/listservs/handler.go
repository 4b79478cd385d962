package listservs

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/view"
)

// Handler serves listserv screens.
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

// MountRoutes registers listserv routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermListservView))
		r.Get("/", h.list)
		r.Get("/deleted", h.deleted)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermListservEdit))
		r.Post("/", h.create)
		r.Post("/{id}", h.update)
		r.Post("/{id}/delete", h.delete)
		r.Post("/{id}/restore", h.restore)
		r.Post("/{id}/contacts", h.addContact)
		r.Post("/contacts/{contactID}/remove", h.removeContact)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	lists, err := h.service.ListListservs(r.Context())
	if err != nil {
		h.logger.Error("list listservs failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/listservs/list.html", map[string]any{"Listservs": lists}, http.StatusOK)
}

func (h *Handler) deleted(w http.ResponseWriter, r *http.Request) {
	lists, err := h.service.ListDeletedListservs(r.Context())
	if err != nil {
		h.logger.Error("list deleted listservs failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/listservs/deleted.html", map[string]any{"Listservs": lists}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid listserv ID", http.StatusBadRequest)
		return
	}
	list, err := h.service.GetListserv(r.Context(), id)
	if err != nil {
		http.Error(w, "Listserv not found", http.StatusNotFound)
		return
	}
	contacts, err := h.service.ListContacts(r.Context(), id)
	if err != nil {
		h.logger.Error("list contacts failed", slog.Any("error", err))
	}
	h.render(w, r, "pages/listservs/detail.html", map[string]any{"Listserv": list, "Contacts": contacts}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	list, err := h.service.CreateListserv(r.Context(), actor.UserID, Listserv{
		Name:        r.PostFormValue("name"),
		Address:     r.PostFormValue("address"),
		Description: r.PostFormValue("description"),
	})
	if err != nil {
		h.redirectWithFlash(w, r, "/listservs", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/listservs/"+strconv.FormatInt(list.ID, 10), "success", "Listserv created")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid listserv ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.UpdateListserv(r.Context(), actor.UserID, Listserv{
		ID:          id,
		Name:        r.PostFormValue("name"),
		Address:     r.PostFormValue("address"),
		Description: r.PostFormValue("description"),
	}); err != nil {
		h.redirectWithFlash(w, r, "/listservs/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/listservs/"+chi.URLParam(r, "id"), "success", "Listserv updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid listserv ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.DeleteListserv(r.Context(), actor.UserID, id); err != nil {
		h.redirectWithFlash(w, r, "/listservs", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/listservs", "success", "Listserv deleted")
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid listserv ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	list, err := h.service.RestoreListserv(r.Context(), actor.UserID, id)
	if err != nil {
		h.redirectWithFlash(w, r, "/listservs/deleted", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/listservs/"+strconv.FormatInt(list.ID, 10), "success", "Listserv restored")
}

func (h *Handler) addContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid listserv ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.AddContact(r.Context(), actor.UserID, Contact{
		ListservID: id,
		Name:       r.PostFormValue("name"),
		Email:      r.PostFormValue("email"),
	}); err != nil {
		h.redirectWithFlash(w, r, "/listservs/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/listservs/"+chi.URLParam(r, "id"), "success", "Contact added")
}

func (h *Handler) removeContact(w http.ResponseWriter, r *http.Request) {
	contactID, err := pathID(r, "contactID")
	if err != nil {
		http.Error(w, "Invalid contact ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.RemoveContact(r.Context(), actor.UserID, contactID); err != nil {
		h.redirectWithFlash(w, r, r.Referer(), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, r.Referer(), "success", "Contact removed")
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
	viewData := view.TemplateData{Title: "Listservs", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
