package usecase

import (
	"context"

	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
)

func (x *UseCase) ListWorkQueue(ctx context.Context) ([]*model.WorkQueueItem, error) {
	return x.clients.Repository().ListWorkQueue(ctx)
}

// ListBranchHistory returns every branch with its recorded commits, oldest
// first.
func (x *UseCase) ListBranchHistory(ctx context.Context) ([]*model.BranchHistory, error) {
	repo := x.clients.Repository()

	branches, err := repo.ListBranches(ctx)
	if err != nil {
		return nil, err
	}
	heads, err := repo.ListHeads(ctx)
	if err != nil {
		return nil, err
	}

	commits := make(map[types.BranchName][]model.Commit, len(branches))
	for _, head := range heads {
		commits[head.Branch] = append(commits[head.Branch], model.Commit{
			SHA:  head.SHA,
			When: head.CreatedAt,
		})
	}

	history := make([]*model.BranchHistory, 0, len(branches))
	for _, b := range branches {
		history = append(history, &model.BranchHistory{
			Name:       b.Name,
			Source:     b.Source,
			State:      b.State(),
			PullNumber: b.PullNumber,
			Commits:    commits[b.Name],
		})
	}
	return history, nil
}
