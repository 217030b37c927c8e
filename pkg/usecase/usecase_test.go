package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/mock"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/infra"
	"github.com/tstr-dev/tstr/pkg/repository/memory"
	"github.com/tstr-dev/tstr/pkg/usecase"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
)

func TestNew(t *testing.T) {
	t.Run("create new usecase with all clients", func(t *testing.T) {
		clients := infra.New(infra.WithRepository(memory.New()))
		uc := usecase.New(clients)

		// Compile-time check that the usecase satisfies the interface
		var _ interfaces.UseCase = uc
	})
}

// sha returns a 40 character sha made of c.
func sha(c string) types.CommitSHA {
	return types.CommitSHA(strings.Repeat(c, 40))
}

func testContext() context.Context {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return logging.CtxWithTime(context.Background(), func() time.Time { return ts })
}

// upstream is a mutable source control state for poll tests.
type upstream struct {
	defaultBranch types.BranchName
	defaultSHA    types.CommitSHA
	open          []*interfaces.PullRequest
	all           map[types.PullNumber]*interfaces.PullRequest
	err           error
}

func newUpstream(sha types.CommitSHA) *upstream {
	return &upstream{
		defaultBranch: "main",
		defaultSHA:    sha,
		all:           map[types.PullNumber]*interfaces.PullRequest{},
	}
}

func (x *upstream) setPR(n types.PullNumber, sha types.CommitSHA, closed bool) {
	pr := &interfaces.PullRequest{Number: n, SHA: sha, Source: "feature", State: "open"}
	if closed {
		pr.State = "closed"
	}
	x.all[n] = pr

	open := x.open[:0]
	for _, p := range x.open {
		if p.Number != n {
			open = append(open, p)
		}
	}
	if !closed {
		open = append(open, pr)
	}
	x.open = open
}

func (x *upstream) mock() *mock.SourceControlMock {
	return &mock.SourceControlMock{
		GetDefaultBranchFunc: func(ctx context.Context) (types.BranchName, types.CommitSHA, error) {
			if x.err != nil {
				return "", "", x.err
			}
			return x.defaultBranch, x.defaultSHA, nil
		},
		ListOpenPullRequestsFunc: func(ctx context.Context) ([]*interfaces.PullRequest, error) {
			if x.err != nil {
				return nil, x.err
			}
			return append([]*interfaces.PullRequest{}, x.open...), nil
		},
		GetPullRequestFunc: func(ctx context.Context, n types.PullNumber) (*interfaces.PullRequest, error) {
			if x.err != nil {
				return nil, x.err
			}
			return x.all[n], nil
		},
	}
}
