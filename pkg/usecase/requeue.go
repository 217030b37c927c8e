package usecase

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
)

// Requeue puts a failed queue entry back to new and its job back to waiting.
// Entries in any other state are rejected.
func (x *UseCase) Requeue(ctx context.Context, id types.EntryID) error {
	repo := x.clients.Repository()

	entry, err := repo.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if _, err := entry.State.Transition(types.EntryNew); err != nil {
		return goerr.Wrap(err, "queue entry can not be requeued", goerr.V("entry_id", id))
	}

	job, err := repo.GetJob(ctx, entry.JobID)
	if err != nil {
		return err
	}

	// Job first: the entry becomes claimable only after its job is waiting.
	if job.State == types.JobFailed {
		if err := repo.UpdateJobState(ctx, job.ID, types.JobFailed, types.JobWaiting); err != nil {
			return err
		}
	}
	if err := repo.UpdateEntryState(ctx, id, types.EntryFailed, types.EntryNew); err != nil {
		return err
	}

	logging.From(ctx).Info("queue entry requeued",
		slog.Any("entry_id", id),
		slog.Any("job_id", job.ID),
		slog.String("sha", job.SHA.Short()),
	)
	return nil
}
