package command

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
)

// Runner executes external processes and captures their output.
type Runner struct {
	env []string
}

var _ interfaces.CommandRunner = (*Runner)(nil)

type Option func(*Runner)

// WithEnv appends KEY=VALUE pairs to the environment of every process. The
// values are never logged.
func WithEnv(env ...string) Option {
	return func(x *Runner) {
		x.env = append(x.env, env...)
	}
}

func New(options ...Option) *Runner {
	r := &Runner{}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (x *Runner) Run(ctx context.Context, dir, name string, args ...string) (*interfaces.CommandResult, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(x.env) > 0 {
		cmd.Env = append(os.Environ(), x.env...)
	}

	started := time.Now()
	err := cmd.Run()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, goerr.Wrap(err, "failed to start command",
			goerr.V("name", name),
			goerr.V("args", args),
			goerr.V("dir", dir),
		)
	}

	result := &interfaces.CommandResult{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}

	logging.From(ctx).Debug("command finished",
		slog.String("name", name),
		slog.Any("args", args),
		slog.String("dir", dir),
		slog.Int("exit_code", result.ExitCode),
		slog.Duration("elapsed", time.Since(started)),
	)

	return result, nil
}
