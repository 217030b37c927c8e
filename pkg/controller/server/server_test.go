package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/tstr-dev/tstr/pkg/controller/server"
	"github.com/tstr-dev/tstr/pkg/domain/mock"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/utils/metrics"
)

func TestRouterSmokeTests(t *testing.T) {
	t.Run("GET /health returns 200", func(t *testing.T) {
		srv := server.New(&mock.UseCaseMock{})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		srv.Mux().ServeHTTP(rec, req)

		gt.V(t, rec.Code).Equal(http.StatusOK)
		gt.V(t, rec.Body.String()).Equal("ok")
	})

	t.Run("GET /metrics is absent without registry", func(t *testing.T) {
		srv := server.New(&mock.UseCaseMock{})

		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		srv.Mux().ServeHTTP(rec, req)

		gt.V(t, rec.Code).Equal(http.StatusNotFound)
	})

	t.Run("GET /metrics exposes registry", func(t *testing.T) {
		srv := server.New(&mock.UseCaseMock{}, server.WithMetrics(metrics.NewRegistry()))
		metrics.ScheduledJobs.Inc()

		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		srv.Mux().ServeHTTP(rec, req)

		gt.V(t, rec.Code).Equal(http.StatusOK)
		gt.True(t, strings.Contains(rec.Body.String(), "tstr_scheduled_jobs_total"))
	})
}

func TestWorkQueueAPI(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns projection as JSON", func(t *testing.T) {
		uc := &mock.UseCaseMock{
			ListWorkQueueFunc: func(ctx context.Context) ([]*model.WorkQueueItem, error) {
				return []*model.WorkQueueItem{
					{
						EntryID:    1,
						JobID:      2,
						SHA:        "0123456789abcdef0123456789abcdef01234567",
						Branch:     "pull/7/head",
						Kind:       types.JobKindBuild,
						JobState:   types.JobRunning,
						EntryState: types.EntryRunning,
						Timestamp:  ts,
					},
				}, nil
			},
		}
		srv := server.New(uc)

		req := httptest.NewRequest(http.MethodGet, "/api/workqueue", nil)
		rec := httptest.NewRecorder()
		srv.Mux().ServeHTTP(rec, req)

		gt.V(t, rec.Code).Equal(http.StatusOK)
		gt.V(t, rec.Header().Get("Content-Type")).Equal("application/json")

		var items []map[string]any
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
		gt.V(t, len(items)).Equal(1)
		gt.V(t, items[0]["branch"]).Equal("pull/7/head")
		gt.V(t, items[0]["kind"]).Equal("build")
		gt.V(t, items[0]["job_state"]).Equal("running")
		gt.V(t, items[0]["entry_state"]).Equal("running")
		gt.V(t, items[0]["entry_id"]).Equal(float64(1))
	})

	t.Run("hides internal errors", func(t *testing.T) {
		uc := &mock.UseCaseMock{
			ListWorkQueueFunc: func(ctx context.Context) ([]*model.WorkQueueItem, error) {
				return nil, errors.New("database is locked")
			},
		}
		srv := server.New(uc)

		req := httptest.NewRequest(http.MethodGet, "/api/workqueue", nil)
		rec := httptest.NewRecorder()
		srv.Mux().ServeHTTP(rec, req)

		gt.V(t, rec.Code).Equal(http.StatusInternalServerError)
		gt.False(t, strings.Contains(rec.Body.String(), "locked"))
	})
}

func TestHeadsAPI(t *testing.T) {
	uc := &mock.UseCaseMock{
		ListBranchHistoryFunc: func(ctx context.Context) ([]*model.BranchHistory, error) {
			return []*model.BranchHistory{
				{
					Name:       "main",
					Source:     "main",
					State:      types.BranchOpen,
					PullNumber: types.NoPullRequest,
					Commits: []model.Commit{
						{SHA: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
					},
				},
			}, nil
		},
	}
	srv := server.New(uc)

	req := httptest.NewRequest(http.MethodGet, "/api/heads", nil)
	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, req)

	gt.V(t, rec.Code).Equal(http.StatusOK)

	var history []*model.BranchHistory
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	gt.V(t, len(history)).Equal(1)
	gt.V(t, history[0].State).Equal(types.BranchOpen)
	gt.V(t, history[0].PullNumber).Equal(types.NoPullRequest)
	gt.V(t, len(uc.ListBranchHistoryCalls())).Equal(1)
}
