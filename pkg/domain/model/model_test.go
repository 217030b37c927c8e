package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
)

func TestObservedHeadValidate(t *testing.T) {
	valid := func() model.ObservedHead {
		return model.ObservedHead{
			Branch:     "main",
			Source:     "main",
			SHA:        "0123456789abcdef0123456789abcdef01234567",
			PullNumber: types.NoPullRequest,
			Upstream:   model.UpstreamOpen,
		}
	}

	t.Run("default branch passes", func(t *testing.T) {
		h := valid()
		gt.NoError(t, h.Validate())
	})

	t.Run("pull request passes", func(t *testing.T) {
		h := valid()
		h.Branch = model.PullHeadName(42)
		h.IsPullRequest = true
		h.PullNumber = 42
		gt.NoError(t, h.Validate())
	})

	t.Run("empty branch fails", func(t *testing.T) {
		h := valid()
		h.Branch = ""
		err := h.Validate()
		gt.Error(t, err)
		gt.True(t, errors.Is(err, types.ErrInvalidGitHubData))
	})

	t.Run("non hex sha fails", func(t *testing.T) {
		h := valid()
		h.SHA = "not-a-sha"
		gt.Error(t, h.Validate())
	})

	t.Run("pull request without number fails", func(t *testing.T) {
		h := valid()
		h.IsPullRequest = true
		gt.Error(t, h.Validate())
	})

	t.Run("branch with pull number fails", func(t *testing.T) {
		h := valid()
		h.PullNumber = 3
		gt.Error(t, h.Validate())
	})

	t.Run("unknown upstream state fails", func(t *testing.T) {
		h := valid()
		h.Upstream = "merged"
		gt.Error(t, h.Validate())
	})
}

func TestPullHeadName(t *testing.T) {
	gt.V(t, model.PullHeadName(17)).Equal(types.BranchName("pull/17/head"))
}

func TestPipelineConfig(t *testing.T) {
	t.Run("defaults and paths", func(t *testing.T) {
		cfg := model.PipelineConfig{
			ScratchDir:    "/var/tstr",
			ToolchainRepo: "https://github.com/example/toolchain.git",
			TargetRepo:    "https://github.com/example/target.git",
		}.WithDefaults()

		gt.NoError(t, cfg.Validate())
		gt.V(t, cfg.ToolchainDir()).Equal("/var/tstr/toolchain")
		gt.V(t, cfg.TargetDir()).Equal("/var/tstr/target")
		gt.V(t, cfg.CacheDir()).Equal("/var/tstr/ccache")
		gt.V(t, cfg.ArtifactPath()).Equal("/var/tstr/build/bin/product")
		gt.V(t, cfg.ArtifactDir()).Equal("/var/tstr/build/bin")
		gt.V(t, cfg.ProductDockerfilePath()).Equal("/var/tstr/toolchain/product/Dockerfile")
		gt.V(t, cfg.CacheQuota).Equal(model.DefaultCacheQuota)
		gt.V(t, cfg.TargetBranch).Equal(types.BranchName("main"))
	})

	t.Run("relative scratch dir is a configuration error", func(t *testing.T) {
		cfg := model.PipelineConfig{
			ScratchDir:    "scratch",
			ToolchainRepo: "a",
			TargetRepo:    "b",
		}.WithDefaults()
		err := cfg.Validate()
		gt.Error(t, err)
		gt.True(t, errors.Is(err, types.ErrConfiguration))
	})

	t.Run("missing target repository", func(t *testing.T) {
		cfg := model.PipelineConfig{ScratchDir: "/tmp/x", ToolchainRepo: "a"}.WithDefaults()
		gt.Error(t, cfg.Validate())
	})
}
