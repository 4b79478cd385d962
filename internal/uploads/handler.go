package uploads

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/view"
)

const maxUploadBytes = 32 << 20

// Handler serves upload screens and downloads.
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

// MountRoutes registers upload routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermFileUploadView))
		r.Get("/instances/{instanceID}", h.list)
		r.Get("/{id}/download", h.download)
	})
	r.With(h.guard.RequireAny(shared.PermFileUploadAdd)).
		Post("/instances/{instanceID}", h.upload)
	r.With(h.guard.RequireAny(shared.PermFileUploadDelete)).
		Post("/{id}/delete", h.remove)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	instanceID, err := pathID(r, "instanceID")
	if err != nil {
		http.Error(w, "Invalid instance ID", http.StatusBadRequest)
		return
	}
	files, err := h.service.ListForInstance(r.Context(), instanceID)
	if err != nil {
		h.logger.Error("list uploads failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/uploads/list.html", map[string]any{"Files": files, "InstanceID": instanceID}, http.StatusOK)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	instanceID, err := pathID(r, "instanceID")
	if err != nil {
		http.Error(w, "Invalid instance ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.redirectWithFlash(w, r, listPath(instanceID), "error", "File too large or malformed upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.redirectWithFlash(w, r, listPath(instanceID), "error", "A file is required")
		return
	}
	defer file.Close()
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.Store(r.Context(), actor.UserID, FileUpload{
		AYCommitteeID: instanceID,
		FileName:      header.Filename,
		ContentType:   header.Header.Get("Content-Type"),
		Description:   r.FormValue("description"),
	}, file); err != nil {
		h.logger.Warn("store upload failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, listPath(instanceID), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, listPath(instanceID), "success", "File uploaded")
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid upload ID", http.StatusBadRequest)
		return
	}
	meta, content, err := h.service.Open(r.Context(), id)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer content.Close()
	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+meta.FileName+`"`)
	if _, err := io.Copy(w, content); err != nil {
		h.logger.Warn("stream upload failed", slog.Any("error", err), slog.Int64("id", id))
	}
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid upload ID", http.StatusBadRequest)
		return
	}
	meta, err := h.service.GetUpload(r.Context(), id)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.Remove(r.Context(), actor.UserID, id); err != nil {
		h.redirectWithFlash(w, r, listPath(meta.AYCommitteeID), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, listPath(meta.AYCommitteeID), "success", "File deleted")
}

func listPath(instanceID int64) string {
	return "/uploads/instances/" + strconv.FormatInt(instanceID, 10)
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
	viewData := view.TemplateData{Title: "Files", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
