package container

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/types"
)

// CLI drives podman or docker through their command line.
type CLI struct {
	runner interfaces.CommandRunner
	bin    string
}

var _ interfaces.ContainerRuntime = (*CLI)(nil)

func NewCLI(runner interfaces.CommandRunner, bin string) *CLI {
	if bin == "" {
		bin = "podman"
	}
	return &CLI{runner: runner, bin: bin}
}

func ImageRef(repository string, tag types.ImageTag) string {
	return repository + ":" + string(tag)
}

func (x *CLI) run(ctx context.Context, args ...string) (*interfaces.CommandResult, error) {
	result, err := x.runner.Run(ctx, "", x.bin, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to run container runtime",
			goerr.V("bin", x.bin), goerr.V("args", args))
	}
	return result, nil
}

func (x *CLI) mustSucceed(ctx context.Context, args ...string) error {
	result, err := x.run(ctx, args...)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return goerr.Wrap(types.ErrCommandExecution, "container runtime exited with non-zero status",
			goerr.V("bin", x.bin),
			goerr.V("args", args),
			goerr.V("exit_code", result.ExitCode),
			goerr.V("stderr", string(result.Stderr)),
		)
	}
	return nil
}

func (x *CLI) ImageExists(ctx context.Context, repository string, tag types.ImageTag) (bool, error) {
	args := []string{"image", "inspect", "--format", "{{.Id}}", ImageRef(repository, tag)}
	result, err := x.run(ctx, args...)
	if err != nil {
		return false, err
	}
	if result.ExitCode == 0 {
		return true, nil
	}
	if isNoSuchImage(string(result.Stderr)) {
		return false, nil
	}
	return false, goerr.Wrap(types.ErrCommandExecution, "failed to inspect image",
		goerr.V("image", ImageRef(repository, tag)),
		goerr.V("exit_code", result.ExitCode),
		goerr.V("stderr", string(result.Stderr)),
	)
}

func isNoSuchImage(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "no such image") ||
		strings.Contains(s, "image not known") ||
		strings.Contains(s, "no such object")
}

func (x *CLI) BuildImage(ctx context.Context, input *interfaces.BuildImageInput) error {
	dockerfile := input.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}
	return x.mustSucceed(ctx, "build",
		"--tag", ImageRef(input.Repository, input.Tag),
		"--file", filepath.Join(input.ContextDir, dockerfile),
		input.ContextDir,
	)
}

func (x *CLI) TagImage(ctx context.Context, repository string, from, to types.ImageTag) error {
	return x.mustSucceed(ctx, "tag", ImageRef(repository, from), ImageRef(repository, to))
}

func (x *CLI) RunContainer(ctx context.Context, input *interfaces.RunContainerInput) (*interfaces.CommandResult, error) {
	args := []string{"run", "--rm"}
	for _, m := range input.Mounts {
		args = append(args, "--volume", bindSpec(m))
	}
	for _, k := range sortedKeys(input.Env) {
		args = append(args, "--env", k+"="+input.Env[k])
	}
	if input.WorkDir != "" {
		args = append(args, "--workdir", input.WorkDir)
	}
	args = append(args, input.Image)
	args = append(args, input.Command...)

	return x.run(ctx, args...)
}

func bindSpec(m interfaces.Mount) string {
	spec := m.Source + ":" + m.Target
	if m.ReadOnly {
		spec += ":ro"
	}
	return spec
}

func sortedKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
