package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	docker "github.com/fsouza/go-dockerclient"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
)

// DockerClient is the subset of *docker.Client used by DockerAPI.
type DockerClient interface {
	InspectImage(name string) (*docker.Image, error)
	BuildImage(opts docker.BuildImageOptions) error
	TagImage(name string, opts docker.TagImageOptions) error
	CreateContainer(opts docker.CreateContainerOptions) (*docker.Container, error)
	StartContainerWithContext(id string, hostConfig *docker.HostConfig, ctx context.Context) error
	WaitContainerWithContext(id string, ctx context.Context) (int, error)
	Logs(opts docker.LogsOptions) error
	RemoveContainer(opts docker.RemoveContainerOptions) error
}

// DockerAPI talks to a Docker compatible daemon over its HTTP API.
type DockerAPI struct {
	client DockerClient
}

var _ interfaces.ContainerRuntime = (*DockerAPI)(nil)

// NewDockerAPIFromEnv connects using DOCKER_HOST and related variables.
func NewDockerAPIFromEnv() (*DockerAPI, error) {
	client, err := docker.NewClientFromEnv()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create docker client")
	}
	return NewDockerAPI(client), nil
}

func NewDockerAPI(client DockerClient) *DockerAPI {
	return &DockerAPI{client: client}
}

func (x *DockerAPI) ImageExists(ctx context.Context, repository string, tag types.ImageTag) (bool, error) {
	_, err := x.client.InspectImage(ImageRef(repository, tag))
	if errors.Is(err, docker.ErrNoSuchImage) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to inspect image",
			goerr.V("image", ImageRef(repository, tag)))
	}
	return true, nil
}

func (x *DockerAPI) BuildImage(ctx context.Context, input *interfaces.BuildImageInput) error {
	var out bytes.Buffer
	opts := docker.BuildImageOptions{
		Context:        ctx,
		Name:           ImageRef(input.Repository, input.Tag),
		Dockerfile:     input.Dockerfile,
		ContextDir:     input.ContextDir,
		OutputStream:   &out,
		RmTmpContainer: true,
	}
	if err := x.client.BuildImage(opts); err != nil {
		return goerr.Wrap(types.ErrCommandExecution, "image build failed",
			goerr.V("image", opts.Name),
			goerr.V("error", err.Error()),
			goerr.V("stderr", out.String()),
		)
	}

	logging.From(ctx).Debug("image built", slog.String("image", opts.Name))
	return nil
}

func (x *DockerAPI) TagImage(ctx context.Context, repository string, from, to types.ImageTag) error {
	err := x.client.TagImage(ImageRef(repository, from), docker.TagImageOptions{
		Repo:    repository,
		Tag:     string(to),
		Force:   true,
		Context: ctx,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to tag image",
			goerr.V("image", ImageRef(repository, from)), goerr.V("tag", to))
	}
	return nil
}

func (x *DockerAPI) RunContainer(ctx context.Context, input *interfaces.RunContainerInput) (*interfaces.CommandResult, error) {
	var env []string
	for _, k := range sortedKeys(input.Env) {
		env = append(env, k+"="+input.Env[k])
	}
	var binds []string
	for _, m := range input.Mounts {
		binds = append(binds, bindSpec(m))
	}

	hostConfig := &docker.HostConfig{Binds: binds}
	c, err := x.client.CreateContainer(docker.CreateContainerOptions{
		Config: &docker.Config{
			Image:      input.Image,
			Cmd:        input.Command,
			Env:        env,
			WorkingDir: input.WorkDir,
		},
		HostConfig: hostConfig,
		Context:    ctx,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create container", goerr.V("image", input.Image))
	}
	defer func() {
		err := x.client.RemoveContainer(docker.RemoveContainerOptions{
			ID:      c.ID,
			Force:   true,
			Context: context.WithoutCancel(ctx),
		})
		if err != nil {
			logging.From(ctx).Warn("failed to remove container",
				slog.String("id", c.ID), slog.Any("error", err))
		}
	}()

	if err := x.client.StartContainerWithContext(c.ID, nil, ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to start container", goerr.V("id", c.ID))
	}

	code, err := x.client.WaitContainerWithContext(c.ID, ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to wait container", goerr.V("id", c.ID))
	}

	var stdout, stderr bytes.Buffer
	if err := x.client.Logs(docker.LogsOptions{
		Context:      ctx,
		Container:    c.ID,
		OutputStream: &stdout,
		ErrorStream:  &stderr,
		Stdout:       true,
		Stderr:       true,
	}); err != nil && !errors.Is(err, io.EOF) {
		return nil, goerr.Wrap(err, "failed to read container logs", goerr.V("id", c.ID))
	}

	return &interfaces.CommandResult{
		ExitCode: code,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}, nil
}
