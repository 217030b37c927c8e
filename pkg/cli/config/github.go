package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/infra/github"
	"github.com/urfave/cli/v3"
)

// GitHub selects the monitored repository and how to authenticate to it,
// with a token or as a GitHub App installation.
type GitHub struct {
	owner   string
	repo    string
	baseURL string

	token types.GitHubToken `masq:"secret"`

	appID      types.GitHubAppID
	installID  types.GitHubInstallID
	privateKey types.GitHubAppPrivateKey `masq:"secret"`
}

func (x *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-owner",
			Usage:       "Owner of the monitored repository",
			Category:    "GitHub",
			Destination: &x.owner,
			Sources:     cli.EnvVars("TSTR_GITHUB_OWNER"),
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "github-repo",
			Usage:       "Name of the monitored repository",
			Category:    "GitHub",
			Destination: &x.repo,
			Sources:     cli.EnvVars("TSTR_GITHUB_REPO"),
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "github-base-url",
			Usage:       "GitHub API base URL for GitHub Enterprise",
			Category:    "GitHub",
			Destination: &x.baseURL,
			Sources:     cli.EnvVars("TSTR_GITHUB_BASE_URL"),
		},
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub token",
			Category:    "GitHub",
			Destination: (*string)(&x.token),
			Sources:     cli.EnvVars("TSTR_GITHUB_TOKEN"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Category:    "GitHub",
			Destination: (*int64)(&x.appID),
			Sources:     cli.EnvVars("TSTR_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-app-install-id",
			Usage:       "GitHub App installation ID",
			Category:    "GitHub",
			Destination: (*int64)(&x.installID),
			Sources:     cli.EnvVars("TSTR_GITHUB_APP_INSTALL_ID"),
		},
		&cli.StringFlag{
			Name:        "github-app-private-key",
			Usage:       "GitHub App Private Key",
			Category:    "GitHub",
			Destination: (*string)(&x.privateKey),
			Sources:     cli.EnvVars("TSTR_GITHUB_APP_PRIVATE_KEY"),
		},
	}
}

func (x *GitHub) useApp() bool {
	return x.appID != 0 || x.installID != 0 || x.privateKey != ""
}

func (x *GitHub) Validate() error {
	if x.owner == "" || x.repo == "" {
		return goerr.Wrap(types.ErrConfiguration, "GitHub owner and repository are required")
	}

	switch {
	case x.token != "" && x.useApp():
		return goerr.Wrap(types.ErrConfiguration, "GitHub token and GitHub App are exclusive")
	case x.useApp():
		if x.appID == 0 || x.installID == 0 || x.privateKey == "" {
			return goerr.Wrap(types.ErrConfiguration, "GitHub App requires app ID, install ID and private key")
		}
	}
	// Neither set means unauthenticated access to a public repository.
	return nil
}

// New builds the source control client for the configured repository.
func (x *GitHub) New() (*github.Client, error) {
	if err := x.Validate(); err != nil {
		return nil, err
	}

	var opts []github.Option
	if x.baseURL != "" {
		opts = append(opts, github.WithBaseURL(x.baseURL))
	}

	if x.useApp() {
		return github.NewAppClient(x.owner, x.repo, x.appID, x.installID, x.privateKey, opts...)
	}
	return github.NewTokenClient(x.owner, x.repo, x.token, opts...)
}

func (x GitHub) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("Owner", x.owner),
		slog.String("Repo", x.repo),
		slog.String("BaseURL", x.baseURL),
		slog.Int("Token.len", len(x.token)),
		slog.Int64("AppID", int64(x.appID)),
		slog.Int64("InstallID", int64(x.installID)),
		slog.Int("privateKey.len", len(x.privateKey)),
	)
}
