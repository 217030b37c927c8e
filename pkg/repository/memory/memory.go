package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/repository"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
)

type headKey struct {
	branch types.BranchName
	sha    types.CommitSHA
}

// Repository keeps everything in process memory. It is used by tests and
// dry runs; all state is lost on exit.
type Repository struct {
	mu sync.Mutex

	branches  map[types.BranchName]*model.Branch
	heads     []*model.Head
	headIndex map[headKey]*model.Head
	jobs      map[types.JobID]*model.Job
	jobBySHA  map[types.CommitSHA]*model.Job
	entries   []*model.QueueEntry

	lastHeadID  types.HeadID
	lastJobID   types.JobID
	lastEntryID types.EntryID
}

var _ interfaces.Repository = (*Repository)(nil)

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		branches:  make(map[types.BranchName]*model.Branch),
		headIndex: make(map[headKey]*model.Head),
		jobs:      make(map[types.JobID]*model.Job),
		jobBySHA:  make(map[types.CommitSHA]*model.Job),
	}
}

func copyOf[T any](v *T) *T {
	c := *v
	return &c
}

// Branch operations

func (r *Repository) GetBranch(ctx context.Context, name types.BranchName) (*model.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.branches[name]
	if !ok {
		return nil, goerr.Wrap(repository.ErrNotFound, "branch not found", goerr.V("branch", name))
	}
	return copyOf(b), nil
}

func (r *Repository) ListBranches(ctx context.Context) ([]*model.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	branches := make([]*model.Branch, 0, len(r.branches))
	for _, b := range r.branches {
		branches = append(branches, copyOf(b))
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

func (r *Repository) CreateBranchWithHead(ctx context.Context, branch *model.Branch, sha types.CommitSHA) (*model.Head, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.branches[branch.Name]; ok {
		return nil, goerr.Wrap(repository.ErrAlreadyExists, "branch already exists", goerr.V("branch", branch.Name))
	}

	now := logging.CtxTime(ctx)
	b := copyOf(branch)
	b.UpdatedAt = now
	r.branches[b.Name] = b

	return copyOf(r.appendHead(b.Name, sha, now)), nil
}

func (r *Repository) SetBranchClosed(ctx context.Context, name types.BranchName, closed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.branches[name]
	if !ok {
		return goerr.Wrap(repository.ErrNotFound, "branch not found", goerr.V("branch", name))
	}
	b.Closed = closed
	b.UpdatedAt = logging.CtxTime(ctx)
	return nil
}

// Head operations

func (r *Repository) appendHead(name types.BranchName, sha types.CommitSHA, now time.Time) *model.Head {
	r.lastHeadID++
	h := &model.Head{
		ID:        r.lastHeadID,
		Branch:    name,
		SHA:       sha,
		CreatedAt: now,
	}
	r.heads = append(r.heads, h)
	r.headIndex[headKey{name, sha}] = h
	return h
}

func (r *Repository) AppendHead(ctx context.Context, name types.BranchName, sha types.CommitSHA) (*model.Head, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.branches[name]
	if !ok {
		return nil, false, goerr.Wrap(repository.ErrNotFound, "branch not found", goerr.V("branch", name))
	}
	if h, ok := r.headIndex[headKey{name, sha}]; ok {
		return copyOf(h), false, nil
	}

	now := logging.CtxTime(ctx)
	b.UpdatedAt = now
	return copyOf(r.appendHead(name, sha, now)), true, nil
}

func (r *Repository) GetHead(ctx context.Context, id types.HeadID) (*model.Head, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.heads {
		if h.ID == id {
			return copyOf(h), nil
		}
	}
	return nil, goerr.Wrap(repository.ErrNotFound, "head not found", goerr.V("head_id", id))
}

func (r *Repository) ListHeads(ctx context.Context) ([]*model.Head, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	heads := make([]*model.Head, 0, len(r.heads))
	for _, h := range r.heads {
		heads = append(heads, copyOf(h))
	}
	return heads, nil
}

func (r *Repository) ListHeadsWithoutJob(ctx context.Context) ([]*model.Head, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[types.CommitSHA]struct{})
	var heads []*model.Head
	for _, h := range r.heads {
		if _, ok := r.jobBySHA[h.SHA]; ok {
			continue
		}
		if _, ok := seen[h.SHA]; ok {
			continue
		}
		seen[h.SHA] = struct{}{}
		heads = append(heads, copyOf(h))
	}
	return heads, nil
}

// Job operations

func (r *Repository) CreateJob(ctx context.Context, head *model.Head, kind types.JobKind) (*model.Job, *model.QueueEntry, error) {
	if !kind.Valid() {
		return nil, nil, goerr.Wrap(repository.ErrInvalidInput, "unknown job kind", goerr.V("kind", kind))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobBySHA[head.SHA]; ok {
		return nil, nil, goerr.Wrap(repository.ErrAlreadyExists, "job for head already exists",
			goerr.V("sha", head.SHA))
	}

	now := logging.CtxTime(ctx)
	r.lastJobID++
	job := &model.Job{
		ID:        r.lastJobID,
		HeadID:    head.ID,
		SHA:       head.SHA,
		Kind:      kind,
		State:     types.JobWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.lastEntryID++
	entry := &model.QueueEntry{
		ID:        r.lastEntryID,
		JobID:     job.ID,
		State:     types.EntryNew,
		UpdatedAt: now,
	}

	r.jobs[job.ID] = job
	r.jobBySHA[job.SHA] = job
	r.entries = append(r.entries, entry)

	return copyOf(job), copyOf(entry), nil
}

func (r *Repository) GetJob(ctx context.Context, id types.JobID) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, goerr.Wrap(repository.ErrNotFound, "job not found", goerr.V("job_id", id))
	}
	return copyOf(job), nil
}

func (r *Repository) UpdateJobState(ctx context.Context, id types.JobID, from, to types.JobState) error {
	if _, err := from.Transition(to); err != nil {
		return goerr.Wrap(err, "job state update rejected", goerr.V("job_id", id))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return goerr.Wrap(repository.ErrNotFound, "job not found", goerr.V("job_id", id))
	}
	if job.State != from {
		return repository.StateMismatch("job", id, from, job.State)
	}
	job.State = to
	job.UpdatedAt = logging.CtxTime(ctx)
	return nil
}

// Queue operations

func (r *Repository) ClaimNextEntry(ctx context.Context) (*model.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.State == types.EntryNew {
			e.State = types.EntryAssigned
			e.UpdatedAt = logging.CtxTime(ctx)
			return copyOf(e), nil
		}
	}
	return nil, nil
}

func (r *Repository) findEntry(id types.EntryID) *model.QueueEntry {
	for _, e := range r.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (r *Repository) GetEntry(ctx context.Context, id types.EntryID) (*model.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.findEntry(id)
	if e == nil {
		return nil, goerr.Wrap(repository.ErrNotFound, "queue entry not found", goerr.V("entry_id", id))
	}
	return copyOf(e), nil
}

func (r *Repository) UpdateEntryState(ctx context.Context, id types.EntryID, from, to types.EntryState) error {
	if _, err := from.Transition(to); err != nil {
		return goerr.Wrap(err, "queue entry state update rejected", goerr.V("entry_id", id))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.findEntry(id)
	if e == nil {
		return goerr.Wrap(repository.ErrNotFound, "queue entry not found", goerr.V("entry_id", id))
	}
	if e.State != from {
		return repository.StateMismatch("queue entry", id, from, e.State)
	}
	e.State = to
	e.UpdatedAt = logging.CtxTime(ctx)
	return nil
}

func (r *Repository) ListWorkQueue(ctx context.Context) ([]*model.WorkQueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*model.WorkQueueItem, 0, len(r.entries))
	for _, e := range r.entries {
		job := r.jobs[e.JobID]
		var branch types.BranchName
		for _, h := range r.heads {
			if h.ID == job.HeadID {
				branch = h.Branch
				break
			}
		}

		items = append(items, &model.WorkQueueItem{
			EntryID:      e.ID,
			JobID:        job.ID,
			SHA:          job.SHA,
			Branch:       branch,
			Kind:         job.Kind,
			JobState:     job.State,
			EntryState:   e.State,
			Timestamp:    e.UpdatedAt,
			JobCreatedAt: job.CreatedAt,
		})
	}
	return items, nil
}
