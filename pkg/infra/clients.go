package infra

import (
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/infra/command"
	"github.com/tstr-dev/tstr/pkg/infra/container"
	"github.com/tstr-dev/tstr/pkg/infra/git"
)

type Clients struct {
	repository    interfaces.Repository
	sourceControl interfaces.SourceControl
	runner        interfaces.CommandRunner
	git           *git.Client
	container     interfaces.ContainerRuntime
}

type Option func(*Clients)

func New(options ...Option) *Clients {
	runner := command.New()
	client := &Clients{
		runner:    runner,
		git:       git.New(runner),
		container: container.NewCLI(runner, "podman"),
	}

	for _, opt := range options {
		opt(client)
	}

	return client
}

func (x *Clients) Repository() interfaces.Repository {
	return x.repository
}
func (x *Clients) SourceControl() interfaces.SourceControl {
	return x.sourceControl
}
func (x *Clients) CommandRunner() interfaces.CommandRunner {
	return x.runner
}
func (x *Clients) Git() *git.Client {
	return x.git
}
func (x *Clients) Container() interfaces.ContainerRuntime {
	return x.container
}

func WithRepository(repo interfaces.Repository) Option {
	return func(x *Clients) {
		x.repository = repo
	}
}

func WithSourceControl(client interfaces.SourceControl) Option {
	return func(x *Clients) {
		x.sourceControl = client
	}
}

// WithCommandRunner replaces the process runner. The git client is rebuilt
// on top of it unless WithGit is given after this option.
func WithCommandRunner(runner interfaces.CommandRunner) Option {
	return func(x *Clients) {
		x.runner = runner
		x.git = git.New(runner)
	}
}

func WithGit(client *git.Client) Option {
	return func(x *Clients) {
		x.git = client
	}
}

func WithContainer(runtime interfaces.ContainerRuntime) Option {
	return func(x *Clients) {
		x.container = runtime
	}
}
