package committees

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

// Handler serves the committee tracker screens.
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

// MountRoutes registers committee tracker routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermCommitteeView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/years", h.years)
		r.Get("/years/{yearID}/instances", h.instances)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermCommitteeAdd))
		r.Post("/", h.create)
		r.Post("/instances", h.createInstance)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermCommitteeEdit))
		r.Post("/{id}", h.update)
		r.Post("/types", h.createType)
		r.Post("/frequencies", h.createFrequency)
		r.Post("/years", h.createYear)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermCommitteeDelete))
		r.Post("/{id}/delete", h.delete)
		r.Post("/types/{id}/delete", h.deleteType)
		r.Post("/frequencies/{id}/delete", h.deleteFrequency)
		r.Post("/years/{id}/delete", h.deleteYear)
		r.Post("/instances/{id}/delete", h.deleteInstance)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	committees, err := h.service.ListCommittees(r.Context())
	if err != nil {
		h.logger.Error("list committees failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	types, _ := h.service.ListCommitteeTypes(r.Context())
	frequencies, _ := h.service.ListFrequencyTypes(r.Context())
	h.render(w, r, "pages/committees/list.html", map[string]any{
		"Committees": committees, "Types": types, "Frequencies": frequencies,
	}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid committee ID", http.StatusBadRequest)
		return
	}
	committee, err := h.service.GetCommittee(r.Context(), id)
	if err != nil {
		http.Error(w, "Committee not found", http.StatusNotFound)
		return
	}
	h.render(w, r, "pages/committees/detail.html", map[string]any{"Committee": committee}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	typeID, _ := strconv.ParseInt(r.PostFormValue("type_id"), 10, 64)
	frequencyID, _ := strconv.ParseInt(r.PostFormValue("frequency_id"), 10, 64)
	actor, _ := authz.ActorFromContext(r.Context())
	committee, err := h.service.CreateCommittee(r.Context(), actor.UserID, Committee{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		TypeID:      typeID,
		FrequencyID: frequencyID,
	})
	if err != nil {
		h.redirectWithFlash(w, r, "/committees", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/committees/"+strconv.FormatInt(committee.ID, 10), "success", "Committee created")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid committee ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	typeID, _ := strconv.ParseInt(r.PostFormValue("type_id"), 10, 64)
	frequencyID, _ := strconv.ParseInt(r.PostFormValue("frequency_id"), 10, 64)
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.UpdateCommittee(r.Context(), actor.UserID, Committee{
		ID:          id,
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		TypeID:      typeID,
		FrequencyID: frequencyID,
	}); err != nil {
		h.redirectWithFlash(w, r, "/committees/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/committees/"+chi.URLParam(r, "id"), "success", "Committee updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid committee ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.DeleteCommittee(r.Context(), actor.UserID, id); err != nil {
		h.redirectWithFlash(w, r, "/committees", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/committees", "success", "Committee deleted")
}

func (h *Handler) createType(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.CreateCommitteeType(r.Context(), actor.UserID, r.PostFormValue("name")); err != nil {
		h.redirectWithFlash(w, r, "/committees", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/committees", "success", "Type created")
}

func (h *Handler) deleteType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid type ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.DeleteCommitteeType(r.Context(), actor.UserID, id); err != nil {
		h.redirectWithFlash(w, r, "/committees", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/committees", "success", "Type deleted")
}

func (h *Handler) createFrequency(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.CreateFrequencyType(r.Context(), actor.UserID, r.PostFormValue("name")); err != nil {
		h.redirectWithFlash(w, r, "/committees", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/committees", "success", "Frequency created")
}

func (h *Handler) deleteFrequency(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid frequency ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.DeleteFrequencyType(r.Context(), actor.UserID, id); err != nil {
		h.redirectWithFlash(w, r, "/committees", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/committees", "success", "Frequency deleted")
}

func (h *Handler) years(w http.ResponseWriter, r *http.Request) {
	years, err := h.service.ListAcademicYears(r.Context())
	if err != nil {
		h.logger.Error("list academic years failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/committees/years.html", map[string]any{"Years": years}, http.StatusOK)
}

func (h *Handler) createYear(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	start, _ := time.Parse("2006-01-02", r.PostFormValue("start_date"))
	end, _ := time.Parse("2006-01-02", r.PostFormValue("end_date"))
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.CreateAcademicYear(r.Context(), actor.UserID, AcademicYear{
		Name: r.PostFormValue("name"), StartDate: start, EndDate: end,
	}); err != nil {
		h.redirectWithFlash(w, r, "/committees/years", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/committees/years", "success", "Academic year created")
}

func (h *Handler) deleteYear(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid year ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	if err := h.service.DeleteAcademicYear(r.Context(), actor.UserID, id); err != nil {
		h.redirectWithFlash(w, r, "/committees/years", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/committees/years", "success", "Academic year deleted")
}

func (h *Handler) instances(w http.ResponseWriter, r *http.Request) {
	yearID, err := pathID(r, "yearID")
	if err != nil {
		http.Error(w, "Invalid year ID", http.StatusBadRequest)
		return
	}
	instances, err := h.service.ListInstancesForYear(r.Context(), yearID)
	if err != nil {
		h.logger.Error("list instances failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	committees, _ := h.service.ListCommittees(r.Context())
	h.render(w, r, "pages/committees/instances.html", map[string]any{
		"Instances": instances, "Committees": committees, "YearID": yearID,
	}, http.StatusOK)
}

func (h *Handler) createInstance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	committeeID, _ := strconv.ParseInt(r.PostFormValue("committee_id"), 10, 64)
	yearID, _ := strconv.ParseInt(r.PostFormValue("year_id"), 10, 64)
	actor, _ := authz.ActorFromContext(r.Context())
	if _, err := h.service.CreateInstance(r.Context(), actor.UserID, committeeID, yearID, r.PostFormValue("notes")); err != nil {
		h.redirectWithFlash(w, r, "/committees/years/"+r.PostFormValue("year_id")+"/instances", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/committees/years/"+r.PostFormValue("year_id")+"/instances", "success", "Instance created")
}

func (h *Handler) deleteInstance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid instance ID", http.StatusBadRequest)
		return
	}
	actor, _ := authz.ActorFromContext(r.Context())
	instance, err := h.service.GetInstance(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/committees/years", "error", shared.UserSafeMessage(err))
		return
	}
	if _, err := h.service.DeleteInstance(r.Context(), actor.UserID, id); err != nil {
		h.redirectWithFlash(w, r, "/committees/years", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/committees/years/"+strconv.FormatInt(instance.YearID, 10)+"/instances", "success", "Instance deleted")
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
	viewData := view.TemplateData{Title: "Committees", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
