package usecase

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
	"github.com/tstr-dev/tstr/pkg/utils/metrics"
)

// ProcessNext claims the oldest new queue entry and runs the build pipeline
// for its head. It returns false when the queue was empty. A failed run
// leaves both the entry and the job in failed state.
func (x *UseCase) ProcessNext(ctx context.Context) (bool, error) {
	if x.pipeline == nil {
		return false, goerr.Wrap(types.ErrConfiguration, "pipeline is not configured")
	}
	repo := x.clients.Repository()

	entry, err := repo.ClaimNextEntry(ctx)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}

	item, err := x.startWork(ctx, entry)
	if err != nil {
		x.markFailed(ctx, entry, nil)
		return true, err
	}

	logger := logging.From(ctx).With(
		slog.Any("entry_id", item.Entry.ID),
		slog.Any("job_id", item.Job.ID),
		slog.String("branch", item.Head.Branch.String()),
		slog.String("sha", item.Head.SHA.Short()),
	)
	ctx = logging.With(ctx, logger)
	logger.Info("work started")

	if err := x.RunPipeline(ctx, &item.Head); err != nil {
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		x.markFailed(ctx, &item.Entry, &item.Job)
		return true, goerr.Wrap(err, "work failed",
			goerr.V("entry_id", item.Entry.ID),
			goerr.V("job_id", item.Job.ID),
		)
	}

	if err := repo.UpdateEntryState(ctx, item.Entry.ID, types.EntryRunning, types.EntryDone); err != nil {
		return true, err
	}
	if err := repo.UpdateJobState(ctx, item.Job.ID, types.JobRunning, types.JobFinished); err != nil {
		return true, err
	}

	metrics.PipelineRuns.WithLabelValues("ok").Inc()
	logger.Info("work finished")
	return true, nil
}

func (x *UseCase) startWork(ctx context.Context, entry *model.QueueEntry) (*model.WorkItem, error) {
	repo := x.clients.Repository()

	if err := repo.UpdateEntryState(ctx, entry.ID, types.EntryAssigned, types.EntryRunning); err != nil {
		return nil, err
	}
	entry.State = types.EntryRunning

	job, err := repo.GetJob(ctx, entry.JobID)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateJobState(ctx, job.ID, job.State, types.JobRunning); err != nil {
		return nil, err
	}
	job.State = types.JobRunning

	head, err := repo.GetHead(ctx, job.HeadID)
	if err != nil {
		return nil, err
	}

	return &model.WorkItem{Entry: *entry, Job: *job, Head: *head}, nil
}

// markFailed moves the entry and the job, when given and running, to failed.
// Errors are logged only; the original failure is what the caller reports.
func (x *UseCase) markFailed(ctx context.Context, entry *model.QueueEntry, job *model.Job) {
	repo := x.clients.Repository()
	logger := logging.From(ctx)

	if err := repo.UpdateEntryState(ctx, entry.ID, entry.State, types.EntryFailed); err != nil {
		logger.Warn("failed to mark queue entry failed", slog.Any("error", err))
	}
	if job != nil && job.State == types.JobRunning {
		if err := repo.UpdateJobState(ctx, job.ID, types.JobRunning, types.JobFailed); err != nil {
			logger.Warn("failed to mark job failed", slog.Any("error", err))
		}
	}
}
