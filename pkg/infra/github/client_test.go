package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/infra/github"
	"github.com/tstr-dev/tstr/pkg/utils/testutil"
)

func pullJSON(number int, sha, label, state string) map[string]any {
	ref := label[strings.Index(label, ":")+1:]
	return map[string]any{
		"number": number,
		"state":  state,
		"head":   map[string]any{"sha": sha, "ref": ref, "label": label},
	}
}

func newServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("GET /repos/octo/target", func(w http.ResponseWriter, r *http.Request) {
		gt.V(t, r.Header.Get("Authorization")).Equal("Bearer test-token")
		_ = json.NewEncoder(w).Encode(map[string]any{"default_branch": "main"})
	})
	mux.HandleFunc("GET /repos/octo/target/commits/main", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	})
	mux.HandleFunc("GET /repos/octo/target/pulls", func(w http.ResponseWriter, r *http.Request) {
		gt.V(t, r.URL.Query().Get("state")).Equal("open")
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/octo/target/pulls?state=open&page=2>; rel="next"`, srv.URL))
			_ = json.NewEncoder(w).Encode([]any{
				pullJSON(1, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "octo:feature/a", "open"),
			})
		case "2":
			_ = json.NewEncoder(w).Encode([]any{
				pullJSON(2, "cccccccccccccccccccccccccccccccccccccccc", "forker:feature/b", "open"),
			})
		}
	})
	mux.HandleFunc("GET /repos/octo/target/pulls/{number}", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.PathValue("number"))
		if n != 7 {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(pullJSON(7, "dddddddddddddddddddddddddddddddddddddddd", "octo:fix/x", "closed"))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	client := gt.R1(github.NewTokenClient("octo", "target", "test-token", github.WithBaseURL(srv.URL))).NoError(t)

	t.Run("default branch and its head", func(t *testing.T) {
		name, sha, err := client.GetDefaultBranch(ctx)
		gt.NoError(t, err)
		gt.V(t, name).Equal(types.BranchName("main"))
		gt.V(t, sha).Equal(types.CommitSHA("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	})

	t.Run("open pull requests across pages", func(t *testing.T) {
		pulls := gt.R1(client.ListOpenPullRequests(ctx)).NoError(t)
		gt.V(t, len(pulls)).Equal(2)
		gt.V(t, pulls[0].Number).Equal(types.PullNumber(1))
		gt.V(t, pulls[0].Source).Equal(types.SourceLabel("octo:feature/a"))
		gt.V(t, pulls[1].Source).Equal(types.SourceLabel("forker:feature/b"))
		gt.V(t, pulls[1].SHA).Equal(types.CommitSHA("cccccccccccccccccccccccccccccccccccccccc"))
		gt.V(t, pulls[1].State).Equal(model.UpstreamOpen)
	})

	t.Run("single pull request", func(t *testing.T) {
		pr := gt.R1(client.GetPullRequest(ctx, 7)).NoError(t)
		gt.V(t, pr.State).Equal(model.UpstreamClosed)
		gt.V(t, pr.Source).Equal(types.SourceLabel("octo:fix/x"))
		gt.V(t, pr.SHA).Equal(types.CommitSHA("dddddddddddddddddddddddddddddddddddddddd"))
	})

	t.Run("missing pull request", func(t *testing.T) {
		_, err := client.GetPullRequest(ctx, 8)
		gt.Error(t, err)
	})
}

func TestNewClient(t *testing.T) {
	t.Run("owner is required", func(t *testing.T) {
		_, err := github.NewTokenClient("", "target", "")
		gt.Error(t, err)
	})

	t.Run("app client requires app id", func(t *testing.T) {
		_, err := github.NewAppClient("octo", "target", 0, 1, "pem")
		gt.Error(t, err)
	})

	t.Run("app client rejects an invalid key", func(t *testing.T) {
		_, err := github.NewAppClient("octo", "target", 1, 2, "invalid-key")
		gt.Error(t, err)
	})
}

func TestClient_Integration(t *testing.T) {
	owner := testutil.GetEnvOrSkip(t, "TEST_GITHUB_OWNER")
	repo := testutil.GetEnvOrSkip(t, "TEST_GITHUB_REPO")
	token := testutil.GetEnvOrSkip(t, "TEST_GITHUB_TOKEN")

	client := gt.R1(github.NewTokenClient(owner, repo, types.GitHubToken(token))).NoError(t)
	ctx := context.Background()

	name, sha, err := client.GetDefaultBranch(ctx)
	gt.NoError(t, err)
	gt.V(t, name).NotEqual(types.BranchName(""))
	gt.V(t, len(sha)).Equal(40)

	pulls := gt.R1(client.ListOpenPullRequests(ctx)).NoError(t)
	t.Logf("Found %d open pull requests in %s/%s", len(pulls), owner, repo)
}
