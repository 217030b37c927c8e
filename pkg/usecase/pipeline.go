package usecase

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/infra/container"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
	"github.com/tstr-dev/tstr/pkg/utils/metrics"
)

const (
	toolchainDockerfile = "Dockerfile"
	productDockerfile   = "Dockerfile"
)

// RunPipeline builds head. Every stage is idempotent so a rerun after a
// failure or for the same sha only repeats what is missing.
func (x *UseCase) RunPipeline(ctx context.Context, head *model.Head) error {
	if x.pipeline == nil {
		return goerr.Wrap(types.ErrConfiguration, "pipeline is not configured")
	}
	cfg := x.pipeline

	var toolchainTag, productTag types.ImageTag

	stages := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{"sync_toolchain", func(ctx context.Context) (err error) {
			toolchainTag, err = x.syncToolchain(ctx, cfg)
			return err
		}},
		{"toolchain_image", func(ctx context.Context) error {
			return x.buildToolchainImage(ctx, cfg, toolchainTag)
		}},
		{"sync_target", func(ctx context.Context) (err error) {
			productTag, err = x.syncTarget(ctx, cfg, head)
			return err
		}},
		{"prepare_cache", func(ctx context.Context) error {
			return x.prepareCache(ctx, cfg, toolchainTag)
		}},
		{"compile", func(ctx context.Context) error {
			return x.compile(ctx, cfg, toolchainTag)
		}},
		{"product_image", func(ctx context.Context) error {
			return x.buildProductImage(ctx, cfg, productTag)
		}},
	}

	for _, stage := range stages {
		started := time.Now()
		logging.From(ctx).Debug("stage started", slog.String("stage", stage.name))

		err := stage.run(ctx)
		metrics.PipelineStageSeconds.WithLabelValues(stage.name).Observe(time.Since(started).Seconds())
		if err != nil {
			return goerr.Wrap(err, "pipeline stage failed", goerr.V("stage", stage.name))
		}
	}

	logging.From(ctx).Info("pipeline finished",
		slog.String("toolchain_tag", string(toolchainTag)),
		slog.String("product_tag", string(productTag)),
	)
	return nil
}

// imageCached reports whether repository:tag is present in the runtime. It
// has no other side effect than counting the lookup.
func imageCached(ctx context.Context, rt interfaces.ContainerRuntime, repository string, tag types.ImageTag) (bool, error) {
	exists, err := rt.ImageExists(ctx, repository, tag)
	if err != nil {
		return false, err
	}
	metrics.ImageCache.WithLabelValues(repository, metrics.CacheResult(exists)).Inc()
	return exists, nil
}

func (x *UseCase) syncToolchain(ctx context.Context, cfg *model.PipelineConfig) (types.ImageTag, error) {
	gitClient := x.clients.Git()
	if err := gitClient.Sync(ctx, cfg.ToolchainRepo, cfg.ToolchainDir(), cfg.ToolchainBranch); err != nil {
		return "", err
	}

	short, err := gitClient.CurrentCommit(ctx, cfg.ToolchainDir(), true)
	if err != nil {
		return "", err
	}
	return types.ImageTag(short), nil
}

func (x *UseCase) buildToolchainImage(ctx context.Context, cfg *model.PipelineConfig, tag types.ImageTag) error {
	rt := x.clients.Container()

	exists, err := imageCached(ctx, rt, cfg.ToolchainImage, tag)
	if err != nil {
		return err
	}
	if exists {
		logging.From(ctx).Info("toolchain image is cached", slog.String("tag", string(tag)))
	} else {
		if err := rt.BuildImage(ctx, &interfaces.BuildImageInput{
			ContextDir: cfg.ToolchainDir(),
			Dockerfile: toolchainDockerfile,
			Repository: cfg.ToolchainImage,
			Tag:        tag,
		}); err != nil {
			return err
		}
		logging.From(ctx).Info("toolchain image built", slog.String("tag", string(tag)))
	}

	return rt.TagImage(ctx, cfg.ToolchainImage, tag, model.LatestTag)
}

// syncTarget checks out the commit under test and returns its short sha.
func (x *UseCase) syncTarget(ctx context.Context, cfg *model.PipelineConfig, head *model.Head) (types.ImageTag, error) {
	gitClient := x.clients.Git()
	dir := cfg.TargetDir()

	if err := gitClient.Sync(ctx, cfg.TargetRepo, dir, cfg.TargetBranch); err != nil {
		return "", err
	}
	if err := gitClient.FetchRef(ctx, dir, head.Branch.String()); err != nil {
		return "", err
	}
	if err := gitClient.Checkout(ctx, dir, head.SHA.String()); err != nil {
		return "", err
	}

	short, err := gitClient.CurrentCommit(ctx, dir, true)
	if err != nil {
		return "", err
	}
	return types.ImageTag(short), nil
}

func (x *UseCase) prepareCache(ctx context.Context, cfg *model.PipelineConfig, toolchainTag types.ImageTag) error {
	rt := x.clients.Container()

	for _, dir := range []string{cfg.CacheDir(), cfg.BuildDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return goerr.Wrap(err, "failed to create directory", goerr.V("path", dir))
		}
	}

	exists, err := imageCached(ctx, rt, cfg.ToolchainImage, toolchainTag)
	if err != nil {
		return err
	}
	if !exists {
		return goerr.Wrap(types.ErrPipeline, "toolchain image is missing",
			goerr.V("image", container.ImageRef(cfg.ToolchainImage, toolchainTag)))
	}

	result, err := rt.RunContainer(ctx, &interfaces.RunContainerInput{
		Image:   container.ImageRef(cfg.ToolchainImage, toolchainTag),
		Mounts:  []interfaces.Mount{{Source: cfg.CacheDir(), Target: model.ContainerCacheDir}},
		Env:     map[string]string{"CCACHE_DIR": model.ContainerCacheDir},
		Command: []string{"ccache", "-M", cfg.CacheQuota},
	})
	if err != nil {
		return err
	}
	return commandFailed(result, "failed to set compiler cache quota")
}

func (x *UseCase) compile(ctx context.Context, cfg *model.PipelineConfig, toolchainTag types.ImageTag) error {
	result, err := x.clients.Container().RunContainer(ctx, &interfaces.RunContainerInput{
		Image: container.ImageRef(cfg.ToolchainImage, toolchainTag),
		Mounts: []interfaces.Mount{
			{Source: cfg.TargetDir(), Target: model.ContainerSourceDir},
			{Source: cfg.BuildDir(), Target: model.ContainerBuildDir},
			{Source: cfg.CacheDir(), Target: model.ContainerCacheDir},
		},
		Env:     map[string]string{"CCACHE_DIR": model.ContainerCacheDir},
		WorkDir: model.ContainerSourceDir,
		Command: cfg.BuildCommand,
	})
	if err != nil {
		return err
	}
	if err := commandFailed(result, "compile failed"); err != nil {
		return err
	}

	if _, err := os.Stat(cfg.ArtifactPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return goerr.Wrap(types.ErrRepositoryState, "build artifact is missing",
				goerr.V("path", cfg.ArtifactPath()))
		}
		return goerr.Wrap(err, "failed to stat build artifact", goerr.V("path", cfg.ArtifactPath()))
	}
	return nil
}

func (x *UseCase) buildProductImage(ctx context.Context, cfg *model.PipelineConfig, tag types.ImageTag) error {
	rt := x.clients.Container()

	exists, err := imageCached(ctx, rt, cfg.ProductImage, tag)
	if err != nil {
		return err
	}
	if exists {
		logging.From(ctx).Info("product image is cached", slog.String("tag", string(tag)))
		return nil
	}

	dockerfile, err := os.ReadFile(cfg.ProductDockerfilePath())
	if err != nil {
		return goerr.Wrap(types.ErrRepositoryState, "product Dockerfile is not readable",
			goerr.V("path", cfg.ProductDockerfilePath()), goerr.V("error", err.Error()))
	}
	dst := filepath.Join(cfg.ArtifactDir(), productDockerfile)
	if err := os.WriteFile(dst, dockerfile, 0o644); err != nil {
		return goerr.Wrap(err, "failed to place product Dockerfile", goerr.V("path", dst))
	}

	if err := rt.BuildImage(ctx, &interfaces.BuildImageInput{
		ContextDir: cfg.ArtifactDir(),
		Dockerfile: productDockerfile,
		Repository: cfg.ProductImage,
		Tag:        tag,
	}); err != nil {
		return err
	}

	logging.From(ctx).Info("product image built", slog.String("tag", string(tag)))
	return nil
}

func commandFailed(result *interfaces.CommandResult, msg string) error {
	if result.ExitCode == 0 {
		return nil
	}
	return goerr.Wrap(types.ErrCommandExecution, msg,
		goerr.V("exit_code", result.ExitCode),
		goerr.V("stderr", string(result.Stderr)),
	)
}
