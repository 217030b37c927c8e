package interfaces

//go:generate moq -out ../mock/usecase.go -pkg mock . UseCase

import (
	"context"

	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
)

type UseCase interface {
	PollRevisions(ctx context.Context) (*model.ReconcileReport, error)
	ScanAndSchedule(ctx context.Context) (*model.ScheduleReport, error)
	ProcessNext(ctx context.Context) (bool, error)

	ListWorkQueue(ctx context.Context) ([]*model.WorkQueueItem, error)
	ListBranchHistory(ctx context.Context) ([]*model.BranchHistory, error)
	Requeue(ctx context.Context, id types.EntryID) error
}
