package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/cli/config"
	"github.com/tstr-dev/tstr/pkg/controller/supervisor"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/infra"
	"github.com/tstr-dev/tstr/pkg/infra/command"
	"github.com/tstr-dev/tstr/pkg/infra/container"
	"github.com/tstr-dev/tstr/pkg/infra/git"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
)

// workerOptions wires the process runner, the authenticated git client and
// the container runtime a worker config asks for.
func workerOptions(cfg *config.Worker) ([]infra.Option, error) {
	runner := command.New()
	gitRunner := command.New(command.WithEnv(git.AuthEnv(cfg.Token)...))

	var rt interfaces.ContainerRuntime
	switch cfg.Runtime() {
	case config.RuntimeDockerAPI:
		client, err := container.NewDockerAPIFromEnv()
		if err != nil {
			return nil, goerr.Wrap(types.ErrConfiguration, "failed to connect container API",
				goerr.V("error", err.Error()))
		}
		rt = client
	default:
		rt = container.NewCLI(runner, cfg.Runtime())
	}

	return []infra.Option{
		infra.WithCommandRunner(runner),
		infra.WithGit(git.New(gitRunner)),
		infra.WithContainer(rt),
	}, nil
}

func workerLoop(uc interfaces.UseCase, cfg *config.Worker) supervisor.Loop {
	return supervisor.Loop{
		Name:     "worker",
		Interval: cfg.Interval(),
		Run:      uc.ProcessNext,
	}
}

// runUntilSignal starts sv and blocks until SIGINT/SIGTERM or until errCh
// yields, then stops sv.
func runUntilSignal(ctx context.Context, sv *supervisor.Supervisor, errCh <-chan error) error {
	if err := sv.Start(ctx); err != nil {
		return err
	}
	defer sv.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logging.From(ctx).Info("shutting down", slog.Any("signal", sig))
	case <-ctx.Done():
	}
	return nil
}

func closeOnExit(ctx context.Context, closer io.Closer) {
	if err := closer.Close(); err != nil {
		logging.From(ctx).Warn("failed to close database", slog.Any("error", err))
	}
}
