package interfaces

//go:generate moq -out ../mock/infra.go -pkg mock . SourceControl CommandRunner ContainerRuntime

import (
	"context"

	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
)

// SourceControl is the upstream hosting API of the monitored repository.
type SourceControl interface {
	// GetDefaultBranch returns the default branch name and its head sha.
	GetDefaultBranch(ctx context.Context) (types.BranchName, types.CommitSHA, error)
	ListOpenPullRequests(ctx context.Context) ([]*PullRequest, error)
	GetPullRequest(ctx context.Context, number types.PullNumber) (*PullRequest, error)
}

type PullRequest struct {
	Number types.PullNumber
	SHA    types.CommitSHA
	// Source is the head label of the pull request, e.g. "octo:feature/foo".
	// The owner prefix tells fork pull requests apart.
	Source types.SourceLabel
	State  model.UpstreamState
}

// CommandResult is the outcome of a process that was started. A non-zero
// ExitCode is not an error by itself.
type CommandResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

type CommandRunner interface {
	// Run executes name with args in dir ("" for the current directory).
	// The error is only for a process that could not be started.
	Run(ctx context.Context, dir, name string, args ...string) (*CommandResult, error)
}

type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

type BuildImageInput struct {
	ContextDir string
	// Dockerfile is relative to ContextDir.
	Dockerfile string
	Repository string
	Tag        types.ImageTag
}

type RunContainerInput struct {
	Image   string
	Mounts  []Mount
	Env     map[string]string
	WorkDir string
	Command []string
}

type ContainerRuntime interface {
	ImageExists(ctx context.Context, repository string, tag types.ImageTag) (bool, error)
	BuildImage(ctx context.Context, input *BuildImageInput) error
	TagImage(ctx context.Context, repository string, from, to types.ImageTag) error
	// RunContainer runs a container to completion. A non-zero exit is
	// returned in the result, not as an error.
	RunContainer(ctx context.Context, input *RunContainerInput) (*CommandResult, error)
}
