package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/quorum-app/quorum/internal/directory"
	jobmetrics "github.com/quorum-app/quorum/internal/jobs"
)

// SystemActorID stamps rows changed by background jobs rather than a
// signed-in identity.
const SystemActorID int64 = 0

// DirectorySyncJob refreshes local employee records against the campus
// directory.
type DirectorySyncJob struct {
	Directory *directory.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewDirectorySyncJob wires dependencies for the sync handler.
func NewDirectorySyncJob(directorySvc *directory.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *DirectorySyncJob {
	return &DirectorySyncJob{Directory: directorySvc, Logger: logger, Metrics: metrics}
}

// Handle processes directory sync tasks.
func (j *DirectorySyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Directory == nil {
		return errors.New("directory sync: handler not configured")
	}

	tracker := j.Metrics.Track(TaskDirectorySync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	updated, err := j.Directory.SyncFromDirectory(ctx, SystemActorID)
	if err != nil {
		resultErr = err
		return resultErr
	}
	if j.Logger != nil {
		j.Logger.Info("directory sync completed", slog.Int("updated", updated))
	}
	return nil
}
