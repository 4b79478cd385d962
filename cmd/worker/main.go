package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/quorum-app/quorum/internal/app"
	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/committees"
	"github.com/quorum-app/quorum/internal/directory"
	jobmetrics "github.com/quorum-app/quorum/internal/jobs"
	"github.com/quorum-app/quorum/internal/meetings"
	"github.com/quorum-app/quorum/internal/members"
	"github.com/quorum-app/quorum/internal/platform/cache"
	"github.com/quorum-app/quorum/internal/platform/db"
	"github.com/quorum-app/quorum/internal/reports"
	"github.com/quorum-app/quorum/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	auditLogger := audit.NewLogger(pool)

	meetingsService := meetings.NewService(meetings.NewRepository(pool), auditLogger)
	membersService := members.NewService(members.NewRepository(pool), nil, nil, cfg.DefaultMemberRoleID, auditLogger)

	var directoryClient directory.Client
	if cfg.DirectoryURL != "" {
		directoryClient = directory.NewHTTPClient(cfg.DirectoryURL)
	}
	directoryService := directory.NewService(directory.NewRepository(pool), directoryClient, auditLogger)

	committeesService := committees.NewService(committees.NewRepository(pool), auditLogger)
	reportsService := reports.NewService(reports.NewRepository(pool), meetingsService, redisClient,
		reports.NewGotenbergClient(cfg.GotenbergURL), logger)

	mailer := jobs.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	metrics := jobmetrics.NewMetrics(nil)

	remindersJob := jobs.NewMeetingRemindersJob(meetingsService, membersService, mailer, logger, metrics)
	syncJob := jobs.NewDirectorySyncJob(directoryService, logger, metrics)
	warmupJob := jobs.NewReportWarmupJob(reportsService, committeesService, logger, metrics)

	remindersTask, err := jobs.NewMeetingRemindersTask(jobs.MeetingRemindersPayload{WithinHours: 24})
	if err != nil {
		logger.Error("build reminders task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskMeetingReminders, Handler: remindersJob.Handle},
			{Type: jobs.TaskDirectorySync, Handler: syncJob.Handle},
			{Type: jobs.TaskReportWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 7 * * *", Task: remindersTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: jobs.NewDirectorySyncTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "15 * * * *", Task: jobs.NewReportWarmupTask(), Options: []asynq.Option{asynq.MaxRetry(2)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
