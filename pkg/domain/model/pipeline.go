package model

import (
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/types"
)

const (
	DefaultToolchainImage = "tstr/toolchain"
	DefaultProductImage   = "tstr/product"
	DefaultCacheQuota     = "10G"
	LatestTag             = types.ImageTag("latest")

	// Mount points inside the toolchain container.
	ContainerSourceDir = "/src"
	ContainerBuildDir  = "/build"
	ContainerCacheDir  = "/ccache"
)

// PipelineConfig describes where the worker keeps its clones and what it
// builds. All working directories live under ScratchDir.
type PipelineConfig struct {
	ScratchDir string
	Token      types.WorkerToken

	ToolchainRepo   string
	ToolchainBranch types.BranchName
	TargetRepo      string
	TargetBranch    types.BranchName

	ToolchainImage string
	ProductImage   string

	// ProductDockerfile is relative to the toolchain clone.
	ProductDockerfile string
	// BuildCommand runs in the toolchain container with ContainerSourceDir
	// as working directory.
	BuildCommand []string
	// Artifact is relative to BuildDir. Its directory is the product image
	// build context.
	Artifact   string
	CacheQuota string
}

func (x *PipelineConfig) ToolchainDir() string { return filepath.Join(x.ScratchDir, "toolchain") }
func (x *PipelineConfig) TargetDir() string    { return filepath.Join(x.ScratchDir, "target") }
func (x *PipelineConfig) BuildDir() string     { return filepath.Join(x.ScratchDir, "build") }
func (x *PipelineConfig) CacheDir() string     { return filepath.Join(x.ScratchDir, "ccache") }

func (x *PipelineConfig) ArtifactPath() string {
	return filepath.Join(x.BuildDir(), x.Artifact)
}

func (x *PipelineConfig) ArtifactDir() string {
	return filepath.Dir(x.ArtifactPath())
}

func (x *PipelineConfig) ProductDockerfilePath() string {
	return filepath.Join(x.ToolchainDir(), x.ProductDockerfile)
}

// WithDefaults fills empty fields with defaults and returns the result.
func (x PipelineConfig) WithDefaults() PipelineConfig {
	if x.ToolchainBranch == "" {
		x.ToolchainBranch = "main"
	}
	if x.TargetBranch == "" {
		x.TargetBranch = "main"
	}
	if x.ToolchainImage == "" {
		x.ToolchainImage = DefaultToolchainImage
	}
	if x.ProductImage == "" {
		x.ProductImage = DefaultProductImage
	}
	if x.ProductDockerfile == "" {
		x.ProductDockerfile = "product/Dockerfile"
	}
	if len(x.BuildCommand) == 0 {
		x.BuildCommand = []string{"make", "-j", "BUILD_DIR=" + ContainerBuildDir}
	}
	if x.Artifact == "" {
		x.Artifact = "bin/product"
	}
	if x.CacheQuota == "" {
		x.CacheQuota = DefaultCacheQuota
	}
	return x
}

func (x *PipelineConfig) Validate() error {
	if x.ScratchDir == "" {
		return goerr.Wrap(types.ErrConfiguration, "scratch directory is empty")
	}
	if !filepath.IsAbs(x.ScratchDir) {
		return goerr.Wrap(types.ErrConfiguration, "scratch directory must be absolute",
			goerr.V("scratch_dir", x.ScratchDir))
	}
	if x.ToolchainRepo == "" {
		return goerr.Wrap(types.ErrConfiguration, "toolchain repository is empty")
	}
	if x.TargetRepo == "" {
		return goerr.Wrap(types.ErrConfiguration, "target repository is empty")
	}
	if x.Artifact == "" || filepath.IsAbs(x.Artifact) {
		return goerr.Wrap(types.ErrConfiguration, "artifact must be a relative path",
			goerr.V("artifact", x.Artifact))
	}
	if len(x.BuildCommand) == 0 {
		return goerr.Wrap(types.ErrConfiguration, "build command is empty")
	}
	return nil
}
