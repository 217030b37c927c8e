// Package git wraps the git CLI through an interfaces.CommandRunner. Every
// non-zero exit becomes types.ErrGit with the captured stderr attached.
package git

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/types"
)

type Client struct {
	runner interfaces.CommandRunner
	bin    string
}

type Option func(*Client)

func WithBinary(path string) Option {
	return func(x *Client) {
		x.bin = path
	}
}

func New(runner interfaces.CommandRunner, options ...Option) *Client {
	c := &Client{
		runner: runner,
		bin:    "git",
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// AuthEnv returns environment variables that make git send token as HTTP
// basic credentials without putting it on the command line.
func AuthEnv(token types.WorkerToken) []string {
	cred := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + string(token)))
	return []string{
		"GIT_TERMINAL_PROMPT=0",
		"GIT_CONFIG_COUNT=1",
		"GIT_CONFIG_KEY_0=http.extraHeader",
		"GIT_CONFIG_VALUE_0=Authorization: Basic " + cred,
	}
}

func (x *Client) run(ctx context.Context, dir string, args ...string) (string, error) {
	result, err := x.runner.Run(ctx, dir, x.bin, args...)
	if err != nil {
		return "", goerr.Wrap(err, "failed to run git", goerr.V("args", args))
	}
	if result.ExitCode != 0 {
		return "", goerr.Wrap(types.ErrGit, "git exited with non-zero status",
			goerr.V("args", args),
			goerr.V("dir", dir),
			goerr.V("exit_code", result.ExitCode),
			goerr.V("stderr", string(result.Stderr)),
		)
	}
	return strings.TrimSpace(string(result.Stdout)), nil
}

func (x *Client) Clone(ctx context.Context, url, dir string, branch types.BranchName) error {
	_, err := x.run(ctx, "", "clone", "--branch", branch.String(), url, dir)
	return err
}

// Update fetches all remotes and fast-forwards branch to its upstream tip.
func (x *Client) Update(ctx context.Context, dir string, branch types.BranchName) error {
	if _, err := x.run(ctx, dir, "remote", "update", "--prune"); err != nil {
		return err
	}
	if _, err := x.run(ctx, dir, "checkout", "--force", branch.String()); err != nil {
		return err
	}
	_, err := x.run(ctx, dir, "pull", "--ff-only", "origin", branch.String())
	return err
}

func (x *Client) FetchRef(ctx context.Context, dir string, ref string) error {
	_, err := x.run(ctx, dir, "fetch", "origin", ref)
	return err
}

// Checkout detaches the work tree at rev.
func (x *Client) Checkout(ctx context.Context, dir string, rev string) error {
	_, err := x.run(ctx, dir, "checkout", "--force", "--detach", rev)
	return err
}

func (x *Client) CurrentCommit(ctx context.Context, dir string, short bool) (types.CommitSHA, error) {
	args := []string{"rev-parse"}
	if short {
		args = append(args, "--short")
	}
	args = append(args, "HEAD")

	out, err := x.run(ctx, dir, args...)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", goerr.Wrap(types.ErrGit, "empty rev-parse output", goerr.V("dir", dir))
	}
	return types.CommitSHA(out), nil
}

// Sync makes dir a clone of url with branch checked out at its upstream tip.
func (x *Client) Sync(ctx context.Context, url, dir string, branch types.BranchName) error {
	state, err := InspectPath(dir)
	if err != nil {
		return err
	}

	switch state {
	case PathMissing:
		return x.Clone(ctx, url, dir, branch)
	default:
		return x.Update(ctx, dir, branch)
	}
}

type PathState int

const (
	PathMissing PathState = iota
	PathRepository
)

// InspectPath reports whether dir is absent or an existing repository. Any
// other state is types.ErrRepositoryState.
func InspectPath(dir string) (PathState, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return PathMissing, nil
	}
	if err != nil {
		return 0, goerr.Wrap(err, "failed to stat repository path", goerr.V("path", dir))
	}

	if !info.IsDir() {
		return 0, goerr.Wrap(types.ErrRepositoryState, "repository path is not a directory",
			goerr.V("path", dir))
	}
	if !IsRepository(dir) {
		return 0, goerr.Wrap(types.ErrRepositoryState, "directory is not a git repository",
			goerr.V("path", dir))
	}

	return PathRepository, nil
}

func IsRepository(dir string) bool {
	_, err := gogit.PlainOpen(dir)
	return err == nil
}
