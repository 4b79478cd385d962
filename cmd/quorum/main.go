package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/quorum-app/quorum/internal/app"
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
	"github.com/quorum-app/quorum/internal/platform/cache"
	"github.com/quorum-app/quorum/internal/platform/db"
	"github.com/quorum-app/quorum/internal/reports"
	"github.com/quorum-app/quorum/internal/roles"
	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/uploads"
	"github.com/quorum-app/quorum/internal/users"
	"github.com/quorum-app/quorum/internal/view"
	"github.com/quorum-app/quorum/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessions := shared.NewSessionManager(redisClient, "quorum_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrf := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	auditLogger := audit.NewLogger(pool)
	auditService := audit.NewService(audit.NewTimelineRepository(pool))

	authzService := authz.NewService(authz.NewRepository(pool), auditLogger)
	guard := authz.Middleware{Service: authzService, Logger: logger}

	authService := auth.NewService(auth.NewRepository(pool))

	rolesService := roles.NewService(roles.NewRepository(pool), auditLogger)
	usersService := users.NewService(users.NewRepository(pool), auditLogger)

	var directoryClient directory.Client
	if cfg.DirectoryURL != "" {
		directoryClient = directory.NewHTTPClient(cfg.DirectoryURL)
	} else {
		logger.Info("directory url not configured, external search disabled")
	}
	directoryService := directory.NewService(directory.NewRepository(pool), directoryClient, auditLogger)

	membersService := members.NewService(members.NewRepository(pool), directoryService, usersService, cfg.DefaultMemberRoleID, auditLogger)
	meetingsService := meetings.NewService(meetings.NewRepository(pool), auditLogger)

	blobStore, err := uploads.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logger.Error("init upload store", slog.Any("error", err))
		os.Exit(1)
	}
	uploadsService := uploads.NewService(uploads.NewRepository(pool), blobStore, auditLogger)

	committeesService := committees.NewService(committees.NewRepository(pool), auditLogger,
		membersService, meetingsService, uploadsService)

	var groupsClient listservs.GroupsClient
	if cfg.GroupsURL != "" {
		groupsClient = listservs.NewHTTPGroupsClient(cfg.GroupsURL)
	} else {
		logger.Info("groups url not configured, listserv changes stay local")
	}
	listservsService := listservs.NewService(listservs.NewRepository(pool), groupsClient, logger, auditLogger)

	instrumentsService := instruments.NewService(instruments.NewRepository(pool), auditLogger)

	reportsService := reports.NewService(reports.NewRepository(pool), meetingsService, redisClient,
		reports.NewGotenbergClient(cfg.GotenbergURL), logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessions,
		CSRFManager:    csrf,
		Guard:          guard,

		AuthHandler:        auth.NewHandler(logger, authService, templates, sessions, csrf),
		PermissionsHandler: authz.NewPermissionsHandler(logger, authzService, templates, csrf, sessions, guard),
		RolesHandler:       roles.NewHandler(logger, rolesService, authzService, templates, csrf, sessions, guard),
		UsersHandler:       users.NewHandler(logger, usersService, authzService, templates, csrf, sessions, guard),
		DirectoryHandler:   directory.NewHandler(logger, directoryService, templates, csrf, sessions, guard),
		CommitteesHandler:  committees.NewHandler(logger, committeesService, templates, csrf, sessions, guard),
		MembersHandler:     members.NewHandler(logger, membersService, templates, csrf, sessions, guard),
		MeetingsHandler:    meetings.NewHandler(logger, meetingsService, templates, csrf, sessions, guard),
		UploadsHandler:     uploads.NewHandler(logger, uploadsService, templates, csrf, sessions, guard),
		ListservsHandler:   listservs.NewHandler(logger, listservsService, templates, csrf, sessions, guard),
		InstrumentsHandler: instruments.NewHandler(logger, instrumentsService, templates, csrf, sessions, guard),
		ReportsHandler:     reports.NewHandler(logger, reportsService, templates, csrf, sessions, guard),
		AuditHandler:       audit.NewHandler(logger, auditService, templates, csrf, sessions, guard.RequireAny),
		JobHandler:         jobs.NewHandler(inspector, jobClient, guard.RequireAdmin(), logger),

		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
}
