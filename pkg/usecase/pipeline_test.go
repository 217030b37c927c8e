package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/mock"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/infra"
	"github.com/tstr-dev/tstr/pkg/infra/container"
	"github.com/tstr-dev/tstr/pkg/repository/memory"
	"github.com/tstr-dev/tstr/pkg/usecase"
)

// buildEnv scripts git and the container runtime over a real scratch
// directory.
type buildEnv struct {
	t   *testing.T
	cfg model.PipelineConfig

	images    map[string]bool
	checkouts map[string]string

	compileExit      int
	skipArtifact     bool
	discardToolchain bool

	runner    *mock.CommandRunnerMock
	container *mock.ContainerRuntimeMock
}

func newBuildEnv(t *testing.T) *buildEnv {
	env := &buildEnv{
		t: t,
		cfg: model.PipelineConfig{
			ScratchDir:    t.TempDir(),
			ToolchainRepo: "https://example.com/toolchain.git",
			TargetRepo:    "https://example.com/target.git",
		}.WithDefaults(),
		images:    map[string]bool{},
		checkouts: map[string]string{},
	}
	gt.NoError(t, env.cfg.Validate())

	env.runner = &mock.CommandRunnerMock{RunFunc: env.git}
	env.container = &mock.ContainerRuntimeMock{
		ImageExistsFunc: func(ctx context.Context, repository string, tag types.ImageTag) (bool, error) {
			return env.images[container.ImageRef(repository, tag)], nil
		},
		BuildImageFunc: func(ctx context.Context, input *interfaces.BuildImageInput) error {
			_, err := os.Stat(filepath.Join(input.ContextDir, input.Dockerfile))
			gt.NoError(t, err)
			if !(env.discardToolchain && input.Repository == env.cfg.ToolchainImage) {
				env.images[container.ImageRef(input.Repository, input.Tag)] = true
			}
			return nil
		},
		TagImageFunc: func(ctx context.Context, repository string, from, to types.ImageTag) error {
			env.images[container.ImageRef(repository, to)] = true
			return nil
		},
		RunContainerFunc: env.run,
	}
	return env
}

func (x *buildEnv) git(ctx context.Context, dir, name string, args ...string) (*interfaces.CommandResult, error) {
	gt.V(x.t, name).Equal("git")
	ok := &interfaces.CommandResult{}

	switch args[0] {
	case "clone":
		target := args[len(args)-1]
		gt.R1(gogit.PlainInit(target, false)).NoError(x.t)
		if target == x.cfg.ToolchainDir() {
			gt.NoError(x.t, os.WriteFile(filepath.Join(target, "Dockerfile"), []byte("FROM scratch\n"), 0o644))
			path := x.cfg.ProductDockerfilePath()
			gt.NoError(x.t, os.MkdirAll(filepath.Dir(path), 0o755))
			gt.NoError(x.t, os.WriteFile(path, []byte("FROM scratch\nCOPY product /\n"), 0o644))
		}
	case "checkout":
		x.checkouts[dir] = args[len(args)-1]
	case "rev-parse":
		rev := "1234567"
		if co, found := x.checkouts[dir]; found && len(co) == 40 {
			rev = co[:7]
		}
		ok.Stdout = []byte(rev + "\n")
	}
	return ok, nil
}

func (x *buildEnv) run(ctx context.Context, input *interfaces.RunContainerInput) (*interfaces.CommandResult, error) {
	if input.Command[0] == "ccache" {
		gt.V(x.t, input.Command).Equal([]string{"ccache", "-M", x.cfg.CacheQuota})
		return &interfaces.CommandResult{}, nil
	}

	gt.V(x.t, input.WorkDir).Equal(model.ContainerSourceDir)
	gt.V(x.t, len(input.Mounts)).Equal(3)
	if x.compileExit != 0 {
		return &interfaces.CommandResult{ExitCode: x.compileExit, Stderr: []byte("main.c:1: error")}, nil
	}
	if !x.skipArtifact {
		gt.NoError(x.t, os.MkdirAll(x.cfg.ArtifactDir(), 0o755))
		gt.NoError(x.t, os.WriteFile(x.cfg.ArtifactPath(), []byte("binary"), 0o755))
	}
	return &interfaces.CommandResult{}, nil
}

func (x *buildEnv) useCase(repo interfaces.Repository) *usecase.UseCase {
	return usecase.New(infra.New(
		infra.WithRepository(repo),
		infra.WithCommandRunner(x.runner),
		infra.WithContainer(x.container),
	), usecase.WithPipeline(x.cfg))
}

func (x *buildEnv) buildCount(repository string) int {
	n := 0
	for _, call := range x.container.BuildImageCalls() {
		if call.Input.Repository == repository {
			n++
		}
	}
	return n
}

func TestRunPipelineCacheHit(t *testing.T) {
	ctx := testContext()
	env := newBuildEnv(t)
	uc := env.useCase(memory.New())
	head := &model.Head{ID: 1, Branch: "main", SHA: sha("a")}

	gt.NoError(t, uc.RunPipeline(ctx, head))
	gt.V(t, env.buildCount(env.cfg.ToolchainImage)).Equal(1)
	gt.V(t, env.buildCount(env.cfg.ProductImage)).Equal(1)
	gt.True(t, env.images[container.ImageRef(env.cfg.ToolchainImage, "1234567")])
	gt.True(t, env.images[container.ImageRef(env.cfg.ToolchainImage, model.LatestTag)])
	gt.True(t, env.images[container.ImageRef(env.cfg.ProductImage, "aaaaaaa")])

	// Second run reuses both images
	gt.NoError(t, uc.RunPipeline(ctx, head))
	gt.V(t, env.buildCount(env.cfg.ToolchainImage)).Equal(1)
	gt.V(t, env.buildCount(env.cfg.ProductImage)).Equal(1)

	// Another commit only builds its product image
	gt.NoError(t, uc.RunPipeline(ctx, &model.Head{ID: 2, Branch: "pull/3/head", SHA: sha("b")}))
	gt.V(t, env.buildCount(env.cfg.ToolchainImage)).Equal(1)
	gt.V(t, env.buildCount(env.cfg.ProductImage)).Equal(2)

	// The pull request ref was fetched before checkout
	var fetched []string
	for _, call := range env.runner.RunCalls() {
		if call.Args[0] == "fetch" {
			fetched = append(fetched, call.Args[len(call.Args)-1])
		}
	}
	gt.V(t, fetched).Equal([]string{"main", "main", "pull/3/head"})
}

func TestProcessNext(t *testing.T) {
	setup := func(t *testing.T) (*buildEnv, *memory.Repository, *usecase.UseCase) {
		ctx := testContext()
		env := newBuildEnv(t)
		repo := memory.New()
		uc := env.useCase(repo)

		gt.R1(uc.Reconcile(ctx, []*model.ObservedHead{observedMain(sha("a"))})).NoError(t)
		gt.R1(uc.ScanAndSchedule(ctx)).NoError(t)
		return env, repo, uc
	}

	t.Run("successful run finishes job and entry", func(t *testing.T) {
		ctx := testContext()
		_, repo, uc := setup(t)

		gt.True(t, gt.R1(uc.ProcessNext(ctx)).NoError(t))
		queue := gt.R1(repo.ListWorkQueue(ctx)).NoError(t)
		gt.V(t, queue[0].EntryState).Equal(types.EntryDone)
		gt.V(t, queue[0].JobState).Equal(types.JobFinished)

		gt.False(t, gt.R1(uc.ProcessNext(ctx)).NoError(t))
	})

	t.Run("compile failure fails job and entry", func(t *testing.T) {
		ctx := testContext()
		env, repo, uc := setup(t)
		env.compileExit = 2

		processed, err := uc.ProcessNext(ctx)
		gt.True(t, processed)
		gt.True(t, errors.Is(err, types.ErrCommandExecution))
		gt.V(t, goerr.Unwrap(err).Values()["stderr"]).Equal("main.c:1: error")

		queue := gt.R1(repo.ListWorkQueue(ctx)).NoError(t)
		gt.V(t, queue[0].EntryState).Equal(types.EntryFailed)
		gt.V(t, queue[0].JobState).Equal(types.JobFailed)
		gt.V(t, env.buildCount(env.cfg.ProductImage)).Equal(0)

		// Nothing left to claim until requeued
		gt.False(t, gt.R1(uc.ProcessNext(ctx)).NoError(t))

		env.compileExit = 0
		gt.NoError(t, uc.Requeue(ctx, queue[0].EntryID))
		queue = gt.R1(repo.ListWorkQueue(ctx)).NoError(t)
		gt.V(t, queue[0].EntryState).Equal(types.EntryNew)
		gt.V(t, queue[0].JobState).Equal(types.JobWaiting)

		gt.True(t, gt.R1(uc.ProcessNext(ctx)).NoError(t))
		queue = gt.R1(repo.ListWorkQueue(ctx)).NoError(t)
		gt.V(t, queue[0].EntryState).Equal(types.EntryDone)
		gt.V(t, queue[0].JobState).Equal(types.JobFinished)
	})

	t.Run("missing artifact is a repository state error", func(t *testing.T) {
		ctx := testContext()
		env, repo, uc := setup(t)
		env.skipArtifact = true

		_, err := uc.ProcessNext(ctx)
		gt.True(t, errors.Is(err, types.ErrRepositoryState))

		queue := gt.R1(repo.ListWorkQueue(ctx)).NoError(t)
		gt.V(t, queue[0].EntryState).Equal(types.EntryFailed)
	})

	t.Run("missing toolchain image fails cache preparation", func(t *testing.T) {
		ctx := testContext()
		env, _, uc := setup(t)
		env.discardToolchain = true
		env.container.TagImageFunc = func(ctx context.Context, repository string, from, to types.ImageTag) error {
			return nil
		}

		_, err := uc.ProcessNext(ctx)
		gt.True(t, errors.Is(err, types.ErrPipeline))
		gt.V(t, len(env.container.RunContainerCalls())).Equal(0)
	})

	t.Run("scratch path that is a file is a repository state error", func(t *testing.T) {
		ctx := testContext()
		env, _, uc := setup(t)
		gt.NoError(t, os.WriteFile(env.cfg.ToolchainDir(), []byte("not a repo"), 0o644))

		_, err := uc.ProcessNext(ctx)
		gt.True(t, errors.Is(err, types.ErrRepositoryState))
		gt.V(t, len(env.runner.RunCalls())).Equal(0)
	})

	t.Run("without pipeline configuration", func(t *testing.T) {
		uc := usecase.New(infra.New(infra.WithRepository(memory.New())))
		_, err := uc.ProcessNext(testContext())
		gt.True(t, errors.Is(err, types.ErrConfiguration))
	})
}

func TestImageCached(t *testing.T) {
	ctx := context.Background()

	t.Run("reports presence", func(t *testing.T) {
		rt := &mock.ContainerRuntimeMock{
			ImageExistsFunc: func(ctx context.Context, repository string, tag types.ImageTag) (bool, error) {
				return repository == "tstr/toolchain" && tag == "abc1234", nil
			},
		}
		gt.True(t, gt.R1(usecase.ImageCachedForTest(ctx, rt, "tstr/toolchain", "abc1234")).NoError(t))
		gt.False(t, gt.R1(usecase.ImageCachedForTest(ctx, rt, "tstr/toolchain", "def5678")).NoError(t))
	})

	t.Run("propagates runtime errors", func(t *testing.T) {
		rt := &mock.ContainerRuntimeMock{
			ImageExistsFunc: func(ctx context.Context, repository string, tag types.ImageTag) (bool, error) {
				return false, errors.New("daemon unavailable")
			},
		}
		_, err := usecase.ImageCachedForTest(ctx, rt, "tstr/product", "abc1234")
		gt.Error(t, err)
	})
}
