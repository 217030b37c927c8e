package github

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v53/github"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"

	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
)

// Client reads branch and pull request heads of one repository.
type Client struct {
	owner  string
	repo   string
	client *github.Client
}

var _ interfaces.SourceControl = (*Client)(nil)

type Option func(*options)

type options struct {
	baseURL   string
	transport http.RoundTripper
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(baseURL string) Option {
	return func(x *options) {
		x.baseURL = baseURL
	}
}

func WithTransport(tr http.RoundTripper) Option {
	return func(x *options) {
		x.transport = tr
	}
}

func buildOptions(opts []Option) *options {
	o := &options{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newClient(owner, repo string, httpClient *http.Client, o *options) (*Client, error) {
	if owner == "" || repo == "" {
		return nil, goerr.Wrap(types.ErrInvalidOption, "owner and repository are required",
			goerr.V("owner", owner), goerr.V("repo", repo))
	}

	client := github.NewClient(httpClient)
	if o.baseURL != "" {
		u := o.baseURL
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		parsed, err := url.Parse(u)
		if err != nil {
			return nil, goerr.Wrap(types.ErrInvalidOption, "invalid GitHub base URL",
				goerr.V("url", o.baseURL), goerr.V("error", err.Error()))
		}
		client.BaseURL = parsed
	}

	return &Client{owner: owner, repo: repo, client: client}, nil
}

// NewTokenClient authenticates with a personal access token. An empty token
// gives unauthenticated access, which is enough for public repositories.
func NewTokenClient(owner, repo string, token types.GitHubToken, opts ...Option) (*Client, error) {
	o := buildOptions(opts)
	httpClient := &http.Client{Transport: o.transport}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: string(token)})
		httpClient = &http.Client{
			Transport: &oauth2.Transport{Source: ts, Base: o.transport},
		}
	}
	return newClient(owner, repo, httpClient, o)
}

// NewAppClient authenticates as a GitHub App installation.
func NewAppClient(owner, repo string, appID types.GitHubAppID, installID types.GitHubInstallID, pem types.GitHubAppPrivateKey, opts ...Option) (*Client, error) {
	if appID == 0 {
		return nil, goerr.Wrap(types.ErrInvalidOption, "appID is empty")
	}
	if installID == 0 {
		return nil, goerr.Wrap(types.ErrInvalidOption, "installID is empty")
	}
	if pem == "" {
		return nil, goerr.Wrap(types.ErrInvalidOption, "pem is empty")
	}

	o := buildOptions(opts)
	itr, err := ghinstallation.New(o.transport, int64(appID), int64(installID), []byte(pem))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport",
			goerr.V("appID", appID), goerr.V("installID", installID))
	}
	if o.baseURL != "" {
		itr.BaseURL = strings.TrimSuffix(o.baseURL, "/")
	}

	return newClient(owner, repo, &http.Client{Transport: itr}, o)
}

func (x *Client) GetDefaultBranch(ctx context.Context) (types.BranchName, types.CommitSHA, error) {
	repo, _, err := x.client.Repositories.Get(ctx, x.owner, x.repo)
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to get repository",
			goerr.V("owner", x.owner), goerr.V("repo", x.repo))
	}
	branch := repo.GetDefaultBranch()
	if branch == "" {
		return "", "", goerr.Wrap(types.ErrInvalidGitHubData, "repository has no default branch",
			goerr.V("owner", x.owner), goerr.V("repo", x.repo))
	}

	sha, _, err := x.client.Repositories.GetCommitSHA1(ctx, x.owner, x.repo, branch, "")
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to get default branch head",
			goerr.V("branch", branch))
	}

	return types.BranchName(branch), types.CommitSHA(strings.TrimSpace(sha)), nil
}

func (x *Client) ListOpenPullRequests(ctx context.Context) ([]*interfaces.PullRequest, error) {
	var result []*interfaces.PullRequest
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		pulls, resp, err := x.client.PullRequests.List(ctx, x.owner, x.repo, opts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list pull requests",
				goerr.V("owner", x.owner), goerr.V("repo", x.repo), goerr.V("page", opts.Page))
		}

		for _, pr := range pulls {
			result = append(result, toPullRequest(pr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logging.From(ctx).Debug("listed open pull requests",
		slog.String("repo", x.owner+"/"+x.repo),
		slog.Int("count", len(result)),
	)

	return result, nil
}

func (x *Client) GetPullRequest(ctx context.Context, number types.PullNumber) (*interfaces.PullRequest, error) {
	pr, _, err := x.client.PullRequests.Get(ctx, x.owner, x.repo, int(number))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get pull request",
			goerr.V("number", number))
	}
	return toPullRequest(pr), nil
}

func toPullRequest(pr *github.PullRequest) *interfaces.PullRequest {
	state := model.UpstreamUnknown
	switch pr.GetState() {
	case "open":
		state = model.UpstreamOpen
	case "closed":
		state = model.UpstreamClosed
	}

	return &interfaces.PullRequest{
		Number: types.PullNumber(pr.GetNumber()),
		SHA:    types.CommitSHA(pr.GetHead().GetSHA()),
		Source: types.SourceLabel(pr.GetHead().GetLabel()),
		State:  state,
	}
}
