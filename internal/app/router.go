package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/auth"
	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/committees"
	"github.com/quorum-app/quorum/internal/directory"
	"github.com/quorum-app/quorum/internal/instruments"
	"github.com/quorum-app/quorum/internal/listservs"
	"github.com/quorum-app/quorum/internal/meetings"
	"github.com/quorum-app/quorum/internal/members"
	"github.com/quorum-app/quorum/internal/observability"
	"github.com/quorum-app/quorum/internal/reports"
	"github.com/quorum-app/quorum/internal/roles"
	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/uploads"
	"github.com/quorum-app/quorum/internal/users"
	"github.com/quorum-app/quorum/internal/view"
	"github.com/quorum-app/quorum/jobs"
	"github.com/quorum-app/quorum/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          authz.Middleware

	AuthHandler        *auth.Handler
	PermissionsHandler *authz.PermissionsHandler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	DirectoryHandler   *directory.Handler
	CommitteesHandler  *committees.Handler
	MembersHandler     *members.Handler
	MeetingsHandler    *meetings.Handler
	UploadsHandler     *uploads.Handler
	ListservsHandler   *listservs.Handler
	InstrumentsHandler *instruments.Handler
	ReportsHandler     *reports.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Guard:          params.Guard,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		data := view.TemplateData{
			Title:     "Quorum",
			CSRFToken: csrfToken,
			Flash:     sess.PopFlash(),
			Data: map[string]any{
				"AppEnv": params.Config.AppEnv,
			},
		}
		if err := params.Templates.Render(w, "pages/home.html", data); err != nil {
			params.Logger.Error("render home", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.PermissionsHandler != nil {
		r.Route("/admin/permissions", params.PermissionsHandler.MountRoutes)
	}
	if params.RolesHandler != nil {
		r.Route("/admin/roles", params.RolesHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/admin/users", params.UsersHandler.MountRoutes)
		// The exit route sits outside the admin gate: an impersonating
		// admin usually resolves to a non-admin actor.
		r.Route("/admin/impersonation", params.UsersHandler.MountImpersonationStop)
	}
	if params.AuditHandler != nil {
		r.Route("/admin/audit", params.AuditHandler.MountRoutes)
	}
	if params.DirectoryHandler != nil {
		r.Route("/directory", params.DirectoryHandler.MountRoutes)
	}
	if params.CommitteesHandler != nil {
		r.Route("/committees", params.CommitteesHandler.MountRoutes)
	}
	if params.MembersHandler != nil {
		r.Route("/members", params.MembersHandler.MountRoutes)
	}
	if params.MeetingsHandler != nil {
		r.Route("/meetings", params.MeetingsHandler.MountRoutes)
	}
	if params.UploadsHandler != nil {
		r.Route("/uploads", params.UploadsHandler.MountRoutes)
	}
	if params.ListservsHandler != nil {
		r.Route("/listservs", params.ListservsHandler.MountRoutes)
	}
	if params.InstrumentsHandler != nil {
		r.Route("/instruments", params.InstrumentsHandler.MountRoutes)
	}
	if params.ReportsHandler != nil {
		r.Route("/reports", params.ReportsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
