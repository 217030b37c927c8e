package infra_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/mock"
	"github.com/tstr-dev/tstr/pkg/infra"
	"github.com/tstr-dev/tstr/pkg/infra/git"
	"github.com/tstr-dev/tstr/pkg/repository/memory"
)

func TestNew(t *testing.T) {
	t.Run("create new clients without options", func(t *testing.T) {
		clients := infra.New()
		gt.V(t, clients.CommandRunner()).NotEqual(nil)
		gt.V(t, clients.Git()).NotEqual(nil)
		gt.V(t, clients.Container()).NotEqual(nil)
		// Repository and source control need explicit configuration
		gt.V(t, clients.Repository()).Equal(nil)
		gt.V(t, clients.SourceControl()).Equal(nil)
	})

	t.Run("WithSourceControl option sets source control client", func(t *testing.T) {
		sc := &mock.SourceControlMock{}
		clients := infra.New(infra.WithSourceControl(sc))
		gt.V(t, clients.SourceControl()).Equal(sc)
	})

	t.Run("WithRepository option sets repository", func(t *testing.T) {
		repo := memory.New()
		clients := infra.New(infra.WithRepository(repo))
		gt.V(t, clients.Repository()).Equal(repo)
	})

	t.Run("WithCommandRunner routes git through the runner", func(t *testing.T) {
		runner := &mock.CommandRunnerMock{
			RunFunc: func(ctx context.Context, dir, name string, args ...string) (*interfaces.CommandResult, error) {
				return &interfaces.CommandResult{Stdout: []byte("abc1234\n")}, nil
			},
		}
		clients := infra.New(infra.WithCommandRunner(runner))
		gt.V(t, clients.CommandRunner()).Equal(runner)

		sha := gt.R1(clients.Git().CurrentCommit(context.Background(), "/src", true)).NoError(t)
		gt.V(t, string(sha)).Equal("abc1234")
		gt.V(t, len(runner.RunCalls())).Equal(1)
	})

	t.Run("multiple options can be combined", func(t *testing.T) {
		sc := &mock.SourceControlMock{}
		ct := &mock.ContainerRuntimeMock{}
		g := git.New(&mock.CommandRunnerMock{})

		clients := infra.New(
			infra.WithSourceControl(sc),
			infra.WithContainer(ct),
			infra.WithGit(g),
		)

		gt.V(t, clients.SourceControl()).Equal(sc)
		gt.V(t, clients.Container()).Equal(ct)
		gt.V(t, clients.Git()).Equal(g)
	})
}
