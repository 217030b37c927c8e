package testhelper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/repository"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
)

// Factory returns an empty repository. Every test case gets its own
// instance because queue order is global to a store.
type Factory func(t *testing.T) interfaces.Repository

// TestAll runs all test cases for Repository
// This is the main entry point for testing any Repository implementation
func TestAll(t *testing.T, newRepo Factory) {
	t.Run("BranchLifecycle", func(t *testing.T) {
		TestBranchLifecycle(t, newRepo(t))
	})
	t.Run("BranchWithSlash", func(t *testing.T) {
		TestBranchWithSlash(t, newRepo(t))
	})
	t.Run("AppendHead", func(t *testing.T) {
		TestAppendHead(t, newRepo(t))
	})
	t.Run("CreateJob", func(t *testing.T) {
		TestCreateJob(t, newRepo(t))
	})
	t.Run("HeadsWithoutJob", func(t *testing.T) {
		TestHeadsWithoutJob(t, newRepo(t))
	})
	t.Run("ClaimNextEntry", func(t *testing.T) {
		TestClaimNextEntry(t, newRepo(t))
	})
	t.Run("StateUpdates", func(t *testing.T) {
		TestStateUpdates(t, newRepo(t))
	})
	t.Run("WorkQueue", func(t *testing.T) {
		TestWorkQueue(t, newRepo(t))
	})
	t.Run("ConcurrentCreateJob", func(t *testing.T) {
		TestConcurrentCreateJob(t, newRepo(t))
	})
	t.Run("ConcurrentClaim", func(t *testing.T) {
		TestConcurrentClaim(t, newRepo(t))
	})
}

// NewSHA returns a random 40 character hex sha.
func NewSHA() types.CommitSHA {
	a := uuid.New()
	b := uuid.New()
	return types.CommitSHA(fmt.Sprintf("%x%x", a[:], b[:4]))
}

// NewBranch returns an open non pull request branch.
func NewBranch(name types.BranchName) *model.Branch {
	return &model.Branch{
		Name:       name,
		Source:     types.SourceLabel(name),
		PullNumber: types.NoPullRequest,
	}
}

func fixedTime(ctx context.Context, ts time.Time) context.Context {
	return logging.CtxWithTime(ctx, func() time.Time { return ts })
}

// TestBranchLifecycle tests create, get, list and close of a branch
func TestBranchLifecycle(t *testing.T, repo interfaces.Repository) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := fixedTime(context.Background(), created)

	sha := NewSHA()
	branch := &model.Branch{
		Name:          model.PullHeadName(12),
		Source:        "feature/login",
		IsPullRequest: true,
		PullNumber:    12,
	}

	head, err := repo.CreateBranchWithHead(ctx, branch, sha)
	gt.NoError(t, err)
	gt.V(t, head.Branch).Equal(branch.Name)
	gt.V(t, head.SHA).Equal(sha)
	gt.V(t, head.ID > 0).Equal(true)

	got, err := repo.GetBranch(ctx, branch.Name)
	gt.NoError(t, err)
	gt.V(t, got.Source).Equal(types.SourceLabel("feature/login"))
	gt.V(t, got.IsPullRequest).Equal(true)
	gt.V(t, got.PullNumber).Equal(types.PullNumber(12))
	gt.V(t, got.Closed).Equal(false)
	gt.True(t, got.UpdatedAt.Equal(created))

	// Creating the same branch again must fail and leave no extra head
	_, err = repo.CreateBranchWithHead(ctx, branch, NewSHA())
	gt.Error(t, err)
	gt.True(t, errors.Is(err, repository.ErrAlreadyExists))
	heads, err := repo.ListHeads(ctx)
	gt.NoError(t, err)
	gt.V(t, len(heads)).Equal(1)

	// Close and reopen
	closedAt := created.Add(time.Hour)
	gt.NoError(t, repo.SetBranchClosed(fixedTime(ctx, closedAt), branch.Name, true))
	got, err = repo.GetBranch(ctx, branch.Name)
	gt.NoError(t, err)
	gt.V(t, got.Closed).Equal(true)
	gt.V(t, got.State()).Equal(types.BranchClosed)
	gt.True(t, got.UpdatedAt.Equal(closedAt))

	gt.NoError(t, repo.SetBranchClosed(ctx, branch.Name, false))
	got, err = repo.GetBranch(ctx, branch.Name)
	gt.NoError(t, err)
	gt.V(t, got.Closed).Equal(false)

	// A second branch shows up in the list
	_, err = repo.CreateBranchWithHead(ctx, NewBranch("main"), NewSHA())
	gt.NoError(t, err)
	branches, err := repo.ListBranches(ctx)
	gt.NoError(t, err)
	gt.V(t, len(branches)).Equal(2)

	// Not found
	_, err = repo.GetBranch(ctx, "no-such-branch")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, repository.ErrNotFound))
	err = repo.SetBranchClosed(ctx, "no-such-branch", true)
	gt.True(t, errors.Is(err, repository.ErrNotFound))
}

// TestBranchWithSlash tests branch names that contain slashes
func TestBranchWithSlash(t *testing.T, repo interfaces.Repository) {
	ctx := context.Background()

	names := []types.BranchName{"feature/new-ui", "release/v1/hotfix", model.PullHeadName(1)}
	for _, name := range names {
		_, err := repo.CreateBranchWithHead(ctx, NewBranch(name), NewSHA())
		gt.NoError(t, err)
	}

	for _, name := range names {
		got, err := repo.GetBranch(ctx, name)
		gt.NoError(t, err)
		gt.V(t, got.Name).Equal(name)
	}
}

// TestAppendHead tests that (branch, sha) is recorded once
func TestAppendHead(t *testing.T, repo interfaces.Repository) {
	ctx := context.Background()

	first, err := repo.CreateBranchWithHead(ctx, NewBranch("main"), NewSHA())
	gt.NoError(t, err)

	sha := NewSHA()
	second, created, err := repo.AppendHead(ctx, "main", sha)
	gt.NoError(t, err)
	gt.True(t, created)
	gt.True(t, second.ID > first.ID)

	again, created, err := repo.AppendHead(ctx, "main", sha)
	gt.NoError(t, err)
	gt.False(t, created)
	gt.V(t, again.ID).Equal(second.ID)

	// The first sha is still known
	_, created, err = repo.AppendHead(ctx, "main", first.SHA)
	gt.NoError(t, err)
	gt.False(t, created)

	heads, err := repo.ListHeads(ctx)
	gt.NoError(t, err)
	gt.V(t, len(heads)).Equal(2)
	gt.V(t, heads[0].ID).Equal(first.ID)
	gt.V(t, heads[1].ID).Equal(second.ID)

	got, err := repo.GetHead(ctx, second.ID)
	gt.NoError(t, err)
	gt.V(t, got.SHA).Equal(sha)

	_, _, err = repo.AppendHead(ctx, "unknown", NewSHA())
	gt.True(t, errors.Is(err, repository.ErrNotFound))

	_, err = repo.GetHead(ctx, second.ID+100)
	gt.True(t, errors.Is(err, repository.ErrNotFound))
}

// TestCreateJob tests atomic job and queue entry creation
func TestCreateJob(t *testing.T, repo interfaces.Repository) {
	ctx := context.Background()

	head, err := repo.CreateBranchWithHead(ctx, NewBranch("main"), NewSHA())
	gt.NoError(t, err)

	job, entry, err := repo.CreateJob(ctx, head, types.JobKindBuild)
	gt.NoError(t, err)
	gt.V(t, job.HeadID).Equal(head.ID)
	gt.V(t, job.SHA).Equal(head.SHA)
	gt.V(t, job.Kind).Equal(types.JobKindBuild)
	gt.V(t, job.State).Equal(types.JobWaiting)
	gt.V(t, entry.JobID).Equal(job.ID)
	gt.V(t, entry.State).Equal(types.EntryNew)

	got, err := repo.GetJob(ctx, job.ID)
	gt.NoError(t, err)
	gt.V(t, got.SHA).Equal(head.SHA)

	gotEntry, err := repo.GetEntry(ctx, entry.ID)
	gt.NoError(t, err)
	gt.V(t, gotEntry.JobID).Equal(job.ID)

	// Second job for the same sha is rejected
	_, _, err = repo.CreateJob(ctx, head, types.JobKindBuild)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, repository.ErrAlreadyExists))

	// Even through a head of another branch with the same sha
	other, err := repo.CreateBranchWithHead(ctx, NewBranch("release"), head.SHA)
	gt.NoError(t, err)
	_, _, err = repo.CreateJob(ctx, other, types.JobKindBuild)
	gt.True(t, errors.Is(err, repository.ErrAlreadyExists))

	items, err := repo.ListWorkQueue(ctx)
	gt.NoError(t, err)
	gt.V(t, len(items)).Equal(1)

	_, err = repo.GetJob(ctx, job.ID+100)
	gt.True(t, errors.Is(err, repository.ErrNotFound))
	_, err = repo.GetEntry(ctx, entry.ID+100)
	gt.True(t, errors.Is(err, repository.ErrNotFound))
}

// TestHeadsWithoutJob tests the scheduler's scan query
func TestHeadsWithoutJob(t *testing.T, repo interfaces.Repository) {
	ctx := context.Background()

	h1, err := repo.CreateBranchWithHead(ctx, NewBranch("main"), NewSHA())
	gt.NoError(t, err)
	h2, _, err := repo.AppendHead(ctx, "main", NewSHA())
	gt.NoError(t, err)
	// Same sha as h2 on another branch
	_, err = repo.CreateBranchWithHead(ctx, NewBranch("copy"), h2.SHA)
	gt.NoError(t, err)

	heads, err := repo.ListHeadsWithoutJob(ctx)
	gt.NoError(t, err)
	gt.V(t, len(heads)).Equal(2)
	gt.V(t, heads[0].ID).Equal(h1.ID)
	gt.V(t, heads[1].ID).Equal(h2.ID)

	_, _, err = repo.CreateJob(ctx, h1, types.JobKindBuild)
	gt.NoError(t, err)
	_, _, err = repo.CreateJob(ctx, h2, types.JobKindBuild)
	gt.NoError(t, err)

	heads, err = repo.ListHeadsWithoutJob(ctx)
	gt.NoError(t, err)
	gt.V(t, len(heads)).Equal(0)
}

// TestClaimNextEntry tests that entries are claimed oldest first
func TestClaimNextEntry(t *testing.T, repo interfaces.Repository) {
	ctx := context.Background()

	entry, err := repo.ClaimNextEntry(ctx)
	gt.NoError(t, err)
	gt.True(t, entry == nil)

	h1, err := repo.CreateBranchWithHead(ctx, NewBranch("main"), NewSHA())
	gt.NoError(t, err)
	h2, _, err := repo.AppendHead(ctx, "main", NewSHA())
	gt.NoError(t, err)

	_, e1, err := repo.CreateJob(ctx, h1, types.JobKindBuild)
	gt.NoError(t, err)
	_, e2, err := repo.CreateJob(ctx, h2, types.JobKindBuild)
	gt.NoError(t, err)

	claimed, err := repo.ClaimNextEntry(ctx)
	gt.NoError(t, err)
	gt.V(t, claimed.ID).Equal(e1.ID)
	gt.V(t, claimed.State).Equal(types.EntryAssigned)

	claimed, err = repo.ClaimNextEntry(ctx)
	gt.NoError(t, err)
	gt.V(t, claimed.ID).Equal(e2.ID)

	claimed, err = repo.ClaimNextEntry(ctx)
	gt.NoError(t, err)
	gt.True(t, claimed == nil)

	stored, err := repo.GetEntry(ctx, e1.ID)
	gt.NoError(t, err)
	gt.V(t, stored.State).Equal(types.EntryAssigned)
}

// TestStateUpdates tests compare-and-set state updates of jobs and entries
func TestStateUpdates(t *testing.T, repo interfaces.Repository) {
	ctx := context.Background()

	head, err := repo.CreateBranchWithHead(ctx, NewBranch("main"), NewSHA())
	gt.NoError(t, err)
	job, entry, err := repo.CreateJob(ctx, head, types.JobKindBuild)
	gt.NoError(t, err)

	// Stale from state
	err = repo.UpdateEntryState(ctx, entry.ID, types.EntryAssigned, types.EntryRunning)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, types.ErrInvalidTransition))

	// Disallowed transition
	err = repo.UpdateEntryState(ctx, entry.ID, types.EntryNew, types.EntryDone)
	gt.True(t, errors.Is(err, types.ErrInvalidTransition))

	claimed, err := repo.ClaimNextEntry(ctx)
	gt.NoError(t, err)
	gt.V(t, claimed.ID).Equal(entry.ID)
	gt.NoError(t, repo.UpdateEntryState(ctx, entry.ID, types.EntryAssigned, types.EntryRunning))
	gt.NoError(t, repo.UpdateJobState(ctx, job.ID, types.JobWaiting, types.JobRunning))

	// Failure and requeue
	gt.NoError(t, repo.UpdateEntryState(ctx, entry.ID, types.EntryRunning, types.EntryFailed))
	gt.NoError(t, repo.UpdateJobState(ctx, job.ID, types.JobRunning, types.JobFailed))
	gt.NoError(t, repo.UpdateEntryState(ctx, entry.ID, types.EntryFailed, types.EntryNew))
	gt.NoError(t, repo.UpdateJobState(ctx, job.ID, types.JobFailed, types.JobWaiting))

	// Second attempt succeeds
	claimed, err = repo.ClaimNextEntry(ctx)
	gt.NoError(t, err)
	gt.V(t, claimed.ID).Equal(entry.ID)
	gt.NoError(t, repo.UpdateEntryState(ctx, entry.ID, types.EntryAssigned, types.EntryRunning))
	gt.NoError(t, repo.UpdateJobState(ctx, job.ID, types.JobWaiting, types.JobRunning))
	gt.NoError(t, repo.UpdateEntryState(ctx, entry.ID, types.EntryRunning, types.EntryDone))
	gt.NoError(t, repo.UpdateJobState(ctx, job.ID, types.JobRunning, types.JobFinished))

	// done is terminal
	err = repo.UpdateEntryState(ctx, entry.ID, types.EntryDone, types.EntryNew)
	gt.True(t, errors.Is(err, types.ErrInvalidTransition))

	gotJob, err := repo.GetJob(ctx, job.ID)
	gt.NoError(t, err)
	gt.V(t, gotJob.State).Equal(types.JobFinished)
	gotEntry, err := repo.GetEntry(ctx, entry.ID)
	gt.NoError(t, err)
	gt.V(t, gotEntry.State).Equal(types.EntryDone)

	err = repo.UpdateJobState(ctx, job.ID+100, types.JobWaiting, types.JobRunning)
	gt.True(t, errors.Is(err, repository.ErrNotFound))
}

// TestWorkQueue tests the dashboard projection
func TestWorkQueue(t *testing.T, repo interfaces.Repository) {
	ts := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	ctx := fixedTime(context.Background(), ts)

	h1, err := repo.CreateBranchWithHead(ctx, NewBranch("main"), NewSHA())
	gt.NoError(t, err)
	pr := &model.Branch{Name: model.PullHeadName(3), Source: "fix/x", IsPullRequest: true, PullNumber: 3}
	h2, err := repo.CreateBranchWithHead(ctx, pr, NewSHA())
	gt.NoError(t, err)

	j1, e1, err := repo.CreateJob(ctx, h1, types.JobKindBuild)
	gt.NoError(t, err)
	j2, e2, err := repo.CreateJob(ctx, h2, types.JobKindBuild)
	gt.NoError(t, err)

	_, err = repo.ClaimNextEntry(ctx)
	gt.NoError(t, err)

	items, err := repo.ListWorkQueue(ctx)
	gt.NoError(t, err)
	gt.V(t, len(items)).Equal(2)

	gt.V(t, items[0].EntryID).Equal(e1.ID)
	gt.V(t, items[0].JobID).Equal(j1.ID)
	gt.V(t, items[0].SHA).Equal(h1.SHA)
	gt.V(t, items[0].Branch).Equal(types.BranchName("main"))
	gt.V(t, items[0].Kind).Equal(types.JobKindBuild)
	gt.V(t, items[0].JobState).Equal(types.JobWaiting)
	gt.V(t, items[0].EntryState).Equal(types.EntryAssigned)
	gt.True(t, items[0].Timestamp.Equal(ts))
	gt.True(t, items[0].JobCreatedAt.Equal(ts))

	gt.V(t, items[1].EntryID).Equal(e2.ID)
	gt.V(t, items[1].JobID).Equal(j2.ID)
	gt.V(t, items[1].Branch).Equal(model.PullHeadName(3))
	gt.V(t, items[1].EntryState).Equal(types.EntryNew)
}

// TestConcurrentCreateJob tests that concurrent schedulers create one job
func TestConcurrentCreateJob(t *testing.T, repo interfaces.Repository) {
	ctx := context.Background()

	head, err := repo.CreateBranchWithHead(ctx, NewBranch("main"), NewSHA())
	gt.NoError(t, err)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		dup     int
		other   []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.CreateJob(ctx, head, types.JobKindBuild)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, repository.ErrAlreadyExists):
				dup++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	gt.V(t, len(other)).Equal(0)
	gt.V(t, created).Equal(1)
	gt.V(t, dup).Equal(workers - 1)

	items, err := repo.ListWorkQueue(ctx)
	gt.NoError(t, err)
	gt.V(t, len(items)).Equal(1)
}

// TestConcurrentClaim tests that one entry is never claimed twice
func TestConcurrentClaim(t *testing.T, repo interfaces.Repository) {
	ctx := context.Background()

	const entries = 4
	_, err := repo.CreateBranchWithHead(ctx, NewBranch("main"), NewSHA())
	gt.NoError(t, err)
	for range entries - 1 {
		_, _, err := repo.AppendHead(ctx, "main", NewSHA())
		gt.NoError(t, err)
	}
	heads, err := repo.ListHeads(ctx)
	gt.NoError(t, err)
	for _, h := range heads {
		_, _, err := repo.CreateJob(ctx, h, types.JobKindBuild)
		gt.NoError(t, err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed = map[types.EntryID]int{}
		errs    []error
	)
	for range entries * 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := repo.ClaimNextEntry(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if e != nil {
				claimed[e.ID]++
			}
		}()
	}
	wg.Wait()

	gt.V(t, len(errs)).Equal(0)
	gt.V(t, len(claimed)).Equal(entries)
	for _, n := range claimed {
		gt.V(t, n).Equal(1)
	}
}
