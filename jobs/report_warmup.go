package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/quorum-app/quorum/internal/committees"
	jobmetrics "github.com/quorum-app/quorum/internal/jobs"
	"github.com/quorum-app/quorum/internal/reports"
)

// YearLister supplies the academic years whose reports get warmed.
type YearLister interface {
	ListAcademicYears(ctx context.Context) ([]committees.AcademicYear, error)
}

// ReportWarmupJob rebuilds the cached hours report for every academic year
// so the first viewer after the cron never waits on the aggregation.
type ReportWarmupJob struct {
	Reports *reports.Service
	Years   YearLister
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(reportsSvc *reports.Service, years YearLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{Reports: reportsSvc, Years: years, Logger: logger, Metrics: metrics}
}

// Handle processes warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil || j.Years == nil {
		return errors.New("report warmup: handler not configured")
	}

	tracker := j.Metrics.Track(TaskReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	years, err := j.Years.ListAcademicYears(ctx)
	if err != nil {
		resultErr = err
		return resultErr
	}
	warmed := 0
	for _, year := range years {
		j.Reports.InvalidateYear(ctx, year.ID)
		if _, err := j.Reports.HoursForYear(ctx, year.ID); err != nil {
			if j.Logger != nil {
				j.Logger.Warn("report warmup failed",
					slog.Int64("year_id", year.ID), slog.Any("error", err))
			}
			continue
		}
		warmed++
	}
	if j.Logger != nil {
		j.Logger.Info("report warmup completed",
			slog.Int("years", len(years)), slog.Int("warmed", warmed))
	}
	return nil
}
