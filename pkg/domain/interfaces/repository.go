package interfaces

import (
	"context"

	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
)

//go:generate moq -out ../mock/repository.go -pkg mock . Repository

// Repository is the durable store shared by the monitor, the scheduler and
// the worker. Lookups of missing records return repository.ErrNotFound.
type Repository interface {
	// Branch operations
	GetBranch(ctx context.Context, name types.BranchName) (*model.Branch, error)
	ListBranches(ctx context.Context) ([]*model.Branch, error)
	// CreateBranchWithHead stores a new branch and its first head in one
	// transaction. It fails with repository.ErrAlreadyExists if the branch
	// is already known.
	CreateBranchWithHead(ctx context.Context, branch *model.Branch, sha types.CommitSHA) (*model.Head, error)
	SetBranchClosed(ctx context.Context, name types.BranchName, closed bool) error

	// Head operations
	// AppendHead records (branch, sha). created is false and the stored head
	// is returned if the pair was already recorded.
	AppendHead(ctx context.Context, name types.BranchName, sha types.CommitSHA) (head *model.Head, created bool, err error)
	GetHead(ctx context.Context, id types.HeadID) (*model.Head, error)
	ListHeads(ctx context.Context) ([]*model.Head, error)
	// ListHeadsWithoutJob returns heads whose sha has no job yet, oldest
	// first.
	ListHeadsWithoutJob(ctx context.Context) ([]*model.Head, error)

	// Job operations
	// CreateJob creates a waiting job and its new queue entry in one
	// transaction. It fails with repository.ErrAlreadyExists if a job for
	// the head's sha exists.
	CreateJob(ctx context.Context, head *model.Head, kind types.JobKind) (*model.Job, *model.QueueEntry, error)
	GetJob(ctx context.Context, id types.JobID) (*model.Job, error)
	// UpdateJobState moves a job from one state to another. It fails with
	// types.ErrInvalidTransition if the move is not allowed or the job is
	// not in state from.
	UpdateJobState(ctx context.Context, id types.JobID, from, to types.JobState) error

	// Queue operations
	// ClaimNextEntry moves the oldest new entry to assigned and returns it.
	// It returns nil without error when no entry is waiting.
	ClaimNextEntry(ctx context.Context) (*model.QueueEntry, error)
	GetEntry(ctx context.Context, id types.EntryID) (*model.QueueEntry, error)
	UpdateEntryState(ctx context.Context, id types.EntryID, from, to types.EntryState) error
	ListWorkQueue(ctx context.Context) ([]*model.WorkQueueItem, error)
}
