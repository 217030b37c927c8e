package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/utils/safe"
	"gopkg.in/yaml.v3"
)

const (
	RuntimePodman    = "podman"
	RuntimeDocker    = "docker"
	RuntimeDockerAPI = "docker-api"
)

type RepositorySource struct {
	URL    string           `yaml:"url"`
	Branch types.BranchName `yaml:"branch"`
}

// Worker is the on-disk configuration of the build worker. JSON is accepted
// as well since it is a subset of YAML.
type Worker struct {
	QueueURL   string            `yaml:"queue_url"`
	ScratchDir string            `yaml:"scratch_dir"`
	Token      types.WorkerToken `yaml:"token" masq:"secret"`

	Toolchain RepositorySource `yaml:"toolchain"`
	Target    RepositorySource `yaml:"target"`

	ToolchainImage    string   `yaml:"toolchain_image"`
	ProductImage      string   `yaml:"product_image"`
	ProductDockerfile string   `yaml:"product_dockerfile"`
	BuildCommand      []string `yaml:"build_command"`
	Artifact          string   `yaml:"artifact"`
	CacheQuota        string   `yaml:"cache_quota"`

	ContainerRuntime string        `yaml:"container_runtime"`
	PollInterval     time.Duration `yaml:"poll_interval"`
}

// LoadWorker reads and validates a worker config file. Every failure is a
// types.ErrConfiguration.
func LoadWorker(path string) (*Worker, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "failed to read worker config",
			goerr.V("path", path), goerr.V("error", err.Error()))
	}

	var cfg Worker
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "failed to parse worker config",
			goerr.V("path", path), goerr.V("error", err.Error()))
	}
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid worker config", goerr.V("path", path))
	}
	return &cfg, nil
}

func (x *Worker) Validate() error {
	if x.QueueURL == "" {
		return goerr.Wrap(types.ErrConfiguration, "queue_url is required")
	}
	if _, _, err := ParseDSN(x.QueueURL); err != nil {
		return err
	}
	if x.Token == "" {
		return goerr.Wrap(types.ErrConfiguration, "token is required")
	}
	switch x.ContainerRuntime {
	case "", RuntimePodman, RuntimeDocker, RuntimeDockerAPI:
	default:
		return goerr.Wrap(types.ErrConfiguration, "unknown container runtime",
			goerr.V("container_runtime", x.ContainerRuntime))
	}
	if x.PollInterval < 0 {
		return goerr.Wrap(types.ErrConfiguration, "poll_interval must not be negative")
	}

	pipeline := x.Pipeline()
	if err := pipeline.Validate(); err != nil {
		return err
	}

	stat, err := os.Stat(x.ScratchDir)
	if err != nil {
		return goerr.Wrap(types.ErrConfiguration, "scratch directory is not accessible",
			goerr.V("scratch_dir", x.ScratchDir), goerr.V("error", err.Error()))
	}
	if !stat.IsDir() {
		return goerr.Wrap(types.ErrConfiguration, "scratch directory is not a directory",
			goerr.V("scratch_dir", x.ScratchDir))
	}
	return nil
}

// Pipeline returns the pipeline settings with defaults applied.
func (x *Worker) Pipeline() model.PipelineConfig {
	return model.PipelineConfig{
		ScratchDir:        x.ScratchDir,
		Token:             x.Token,
		ToolchainRepo:     x.Toolchain.URL,
		ToolchainBranch:   x.Toolchain.Branch,
		TargetRepo:        x.Target.URL,
		TargetBranch:      x.Target.Branch,
		ToolchainImage:    x.ToolchainImage,
		ProductImage:      x.ProductImage,
		ProductDockerfile: x.ProductDockerfile,
		BuildCommand:      x.BuildCommand,
		Artifact:          x.Artifact,
		CacheQuota:        x.CacheQuota,
	}.WithDefaults()
}

func (x *Worker) Runtime() string {
	if x.ContainerRuntime == "" {
		return RuntimePodman
	}
	return x.ContainerRuntime
}

func (x *Worker) Interval() time.Duration {
	if x.PollInterval == 0 {
		return 5 * time.Second
	}
	return x.PollInterval
}

// DefaultWorker is the template written by --gen-config.
func DefaultWorker() *Worker {
	p := model.PipelineConfig{}.WithDefaults()
	return &Worker{
		QueueURL:   "sqlite:///var/lib/tstr/tstr.db",
		ScratchDir: "/var/lib/tstr/scratch",
		Token:      "",
		Toolchain: RepositorySource{
			URL:    "https://github.com/example/toolchain.git",
			Branch: p.ToolchainBranch,
		},
		Target: RepositorySource{
			URL:    "https://github.com/example/product.git",
			Branch: p.TargetBranch,
		},
		ToolchainImage:    p.ToolchainImage,
		ProductImage:      p.ProductImage,
		ProductDockerfile: p.ProductDockerfile,
		BuildCommand:      p.BuildCommand,
		Artifact:          p.Artifact,
		CacheQuota:        p.CacheQuota,
		ContainerRuntime:  RuntimePodman,
		PollInterval:      5 * time.Second,
	}
}

// WriteDefaultWorker writes DefaultWorker to path. An existing file is never
// overwritten.
func WriteDefaultWorker(path string) error {
	raw, err := yaml.Marshal(DefaultWorker())
	if err != nil {
		return goerr.Wrap(err, "failed to marshal default worker config")
	}

	fd, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		return goerr.Wrap(types.ErrInvalidOption, "config file already exists", goerr.V("path", path))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to create config file", goerr.V("path", path))
	}
	defer safe.Close(fd)

	if _, err := fd.Write(raw); err != nil {
		return goerr.Wrap(err, "failed to write config file", goerr.V("path", path))
	}
	return nil
}

func (x Worker) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("QueueURL", maskDSN(x.QueueURL)),
		slog.String("ScratchDir", x.ScratchDir),
		slog.Int("Token.len", len(x.Token)),
		slog.String("Toolchain", x.Toolchain.URL),
		slog.String("Target", x.Target.URL),
		slog.String("ContainerRuntime", x.Runtime()),
		slog.Duration("PollInterval", x.Interval()),
	)
}
