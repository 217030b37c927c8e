package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/repository"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
	"github.com/tstr-dev/tstr/pkg/utils/metrics"
)

// ScanAndSchedule creates a build job and its queue entry for every head whose
// sha has no job yet. A job created concurrently by another scan is counted
// as existing.
func (x *UseCase) ScanAndSchedule(ctx context.Context) (*model.ScheduleReport, error) {
	repo := x.clients.Repository()

	heads, err := repo.ListHeadsWithoutJob(ctx)
	if err != nil {
		return nil, err
	}

	report := &model.ScheduleReport{}
	for _, head := range heads {
		job, entry, err := repo.CreateJob(ctx, head, types.JobKindBuild)
		if errors.Is(err, repository.ErrAlreadyExists) {
			report.Existing++
			continue
		}
		if err != nil {
			return report, err
		}

		report.Scheduled++
		metrics.ScheduledJobs.Inc()
		logging.From(ctx).Info("job scheduled",
			slog.Any("job_id", job.ID),
			slog.Any("entry_id", entry.ID),
			slog.String("branch", head.Branch.String()),
			slog.String("sha", head.SHA.Short()),
		)
	}

	return report, nil
}
