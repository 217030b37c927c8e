package sqlite

import (
	"context"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/repository"
	"github.com/tstr-dev/tstr/pkg/repository/sqlite/migrations"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
)

// Repository stores state in a local SQLite database file.
type Repository struct {
	pool *sqlitex.Pool
	path string
}

var _ interfaces.Repository = (*Repository)(nil)

type Option func(*options)

type options struct {
	poolSize int
}

func WithPoolSize(n int) Option {
	return func(x *options) {
		x.poolSize = n
	}
}

// New opens the database at path and applies pending migrations.
func New(ctx context.Context, path string, opts ...Option) (*Repository, error) {
	o := &options{poolSize: 4}
	for _, opt := range opts {
		opt(o)
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    o.poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}

	repo := &Repository{pool: pool, path: path}
	if err := repo.Migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	logging.From(ctx).Info("sqlite repository opened",
		slog.String("path", path),
		slog.Int("pool_size", o.poolSize),
	)
	return repo, nil
}

func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return goerr.Wrap(err, "failed to apply pragma", goerr.V("pragma", pragma))
		}
	}
	return nil
}

func (r *Repository) Close() error {
	if err := r.pool.Close(); err != nil {
		return goerr.Wrap(err, "failed to close sqlite database", goerr.V("path", r.path))
	}
	return nil
}

func (r *Repository) take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to take sqlite connection")
	}
	return conn, nil
}

// Migrate applies embedded migrations that are not yet recorded in
// schema_migrations.
func (r *Repository) Migrate(ctx context.Context) (err error) {
	conn, err := r.take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	if err := sqlitex.ExecuteTransient(conn,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at INTEGER NOT NULL)`, nil); err != nil {
		return goerr.Wrap(err, "failed to create schema_migrations")
	}

	files, err := listMigrationFiles(migrations.Files)
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := r.applyMigration(ctx, conn, file); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) applyMigration(ctx context.Context, conn *sqlite.Conn, file string) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer endFn(&err)

	applied := false
	if err := sqlitex.Execute(conn, `SELECT 1 FROM schema_migrations WHERE version = ?`, &sqlitex.ExecOptions{
		Args: []any{file},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			applied = true
			return nil
		},
	}); err != nil {
		return goerr.Wrap(err, "failed to check migration", goerr.V("version", file))
	}
	if applied {
		return nil
	}

	body, err := fs.ReadFile(migrations.Files, file)
	if err != nil {
		return goerr.Wrap(err, "failed to read migration", goerr.V("version", file))
	}
	if err := sqlitex.ExecuteScript(conn, string(body), nil); err != nil {
		return goerr.Wrap(err, "failed to apply migration", goerr.V("version", file))
	}
	if err := sqlitex.Execute(conn, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, &sqlitex.ExecOptions{
		Args: []any{file, logging.CtxTime(ctx).UnixNano()},
	}); err != nil {
		return goerr.Wrap(err, "failed to record migration", goerr.V("version", file))
	}

	logging.From(ctx).Info("migration applied", slog.String("version", file))
	return nil
}

func listMigrationFiles(migFS fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migFS, ".")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list migrations")
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func isUniqueViolation(err error) bool {
	switch sqlite.ErrCode(err) {
	case sqlite.ResultConstraintUnique, sqlite.ResultConstraintPrimaryKey:
		return true
	}
	return false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// Branch operations

const branchColumns = `name, source, is_pull_request, pull_number, closed, updated_at`

func scanBranch(stmt *sqlite.Stmt) *model.Branch {
	return &model.Branch{
		Name:          types.BranchName(stmt.ColumnText(0)),
		Source:        types.SourceLabel(stmt.ColumnText(1)),
		IsPullRequest: stmt.ColumnInt64(2) != 0,
		PullNumber:    types.PullNumber(stmt.ColumnInt64(3)),
		Closed:        stmt.ColumnInt64(4) != 0,
		UpdatedAt:     fromNanos(stmt.ColumnInt64(5)),
	}
}

func (r *Repository) GetBranch(ctx context.Context, name types.BranchName) (*model.Branch, error) {
	conn, err := r.take(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(conn)

	var branch *model.Branch
	if err := sqlitex.Execute(conn, `SELECT `+branchColumns+` FROM branches WHERE name = ?`, &sqlitex.ExecOptions{
		Args: []any{string(name)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			branch = scanBranch(stmt)
			return nil
		},
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to get branch", goerr.V("branch", name))
	}
	if branch == nil {
		return nil, goerr.Wrap(repository.ErrNotFound, "branch not found", goerr.V("branch", name))
	}
	return branch, nil
}

func (r *Repository) ListBranches(ctx context.Context) ([]*model.Branch, error) {
	conn, err := r.take(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(conn)

	var branches []*model.Branch
	if err := sqlitex.Execute(conn, `SELECT `+branchColumns+` FROM branches ORDER BY name`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			branches = append(branches, scanBranch(stmt))
			return nil
		},
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to list branches")
	}
	return branches, nil
}

func (r *Repository) CreateBranchWithHead(ctx context.Context, branch *model.Branch, sha types.CommitSHA) (head *model.Head, err error) {
	conn, err := r.take(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer endFn(&err)

	now := logging.CtxTime(ctx)
	if err := sqlitex.Execute(conn,
		`INSERT INTO branches (`+branchColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				string(branch.Name),
				string(branch.Source),
				boolInt(branch.IsPullRequest),
				int64(branch.PullNumber),
				boolInt(branch.Closed),
				now.UnixNano(),
			},
		}); err != nil {
		if isUniqueViolation(err) {
			return nil, goerr.Wrap(repository.ErrAlreadyExists, "branch already exists", goerr.V("branch", branch.Name))
		}
		return nil, goerr.Wrap(err, "failed to insert branch", goerr.V("branch", branch.Name))
	}

	return insertHead(conn, branch.Name, sha, now)
}

func insertHead(conn *sqlite.Conn, name types.BranchName, sha types.CommitSHA, now time.Time) (*model.Head, error) {
	if err := sqlitex.Execute(conn, `INSERT INTO heads (branch, sha, created_at) VALUES (?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{string(name), string(sha), now.UnixNano()},
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to insert head", goerr.V("branch", name), goerr.V("sha", sha))
	}
	return &model.Head{
		ID:        types.HeadID(conn.LastInsertRowID()),
		Branch:    name,
		SHA:       sha,
		CreatedAt: now,
	}, nil
}

func (r *Repository) SetBranchClosed(ctx context.Context, name types.BranchName, closed bool) error {
	conn, err := r.take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	if err := sqlitex.Execute(conn, `UPDATE branches SET closed = ?, updated_at = ? WHERE name = ?`, &sqlitex.ExecOptions{
		Args: []any{boolInt(closed), logging.CtxTime(ctx).UnixNano(), string(name)},
	}); err != nil {
		return goerr.Wrap(err, "failed to update branch", goerr.V("branch", name))
	}
	if conn.Changes() == 0 {
		return goerr.Wrap(repository.ErrNotFound, "branch not found", goerr.V("branch", name))
	}
	return nil
}

// Head operations

const headColumns = `id, branch, sha, created_at`

func scanHead(stmt *sqlite.Stmt) *model.Head {
	return &model.Head{
		ID:        types.HeadID(stmt.ColumnInt64(0)),
		Branch:    types.BranchName(stmt.ColumnText(1)),
		SHA:       types.CommitSHA(stmt.ColumnText(2)),
		CreatedAt: fromNanos(stmt.ColumnInt64(3)),
	}
}

func selectHead(conn *sqlite.Conn, query string, args ...any) (*model.Head, error) {
	var head *model.Head
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			head = scanHead(stmt)
			return nil
		},
	})
	return head, err
}

func (r *Repository) AppendHead(ctx context.Context, name types.BranchName, sha types.CommitSHA) (head *model.Head, created bool, err error) {
	conn, err := r.take(ctx)
	if err != nil {
		return nil, false, err
	}
	defer r.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to begin transaction")
	}
	defer endFn(&err)

	existing, err := selectHead(conn, `SELECT `+headColumns+` FROM heads WHERE branch = ? AND sha = ?`, string(name), string(sha))
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to look up head", goerr.V("branch", name))
	}
	if existing != nil {
		return existing, false, nil
	}

	now := logging.CtxTime(ctx)
	if err := sqlitex.Execute(conn, `UPDATE branches SET updated_at = ? WHERE name = ?`, &sqlitex.ExecOptions{
		Args: []any{now.UnixNano(), string(name)},
	}); err != nil {
		return nil, false, goerr.Wrap(err, "failed to touch branch", goerr.V("branch", name))
	}
	if conn.Changes() == 0 {
		return nil, false, goerr.Wrap(repository.ErrNotFound, "branch not found", goerr.V("branch", name))
	}

	head, err = insertHead(conn, name, sha, now)
	if err != nil {
		return nil, false, err
	}
	return head, true, nil
}

func (r *Repository) GetHead(ctx context.Context, id types.HeadID) (*model.Head, error) {
	conn, err := r.take(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(conn)

	head, err := selectHead(conn, `SELECT `+headColumns+` FROM heads WHERE id = ?`, int64(id))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get head", goerr.V("head_id", id))
	}
	if head == nil {
		return nil, goerr.Wrap(repository.ErrNotFound, "head not found", goerr.V("head_id", id))
	}
	return head, nil
}

func (r *Repository) listHeads(ctx context.Context, query string) ([]*model.Head, error) {
	conn, err := r.take(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(conn)

	var heads []*model.Head
	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			heads = append(heads, scanHead(stmt))
			return nil
		},
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to list heads")
	}
	return heads, nil
}

func (r *Repository) ListHeads(ctx context.Context) ([]*model.Head, error) {
	return r.listHeads(ctx, `SELECT `+headColumns+` FROM heads ORDER BY id`)
}

func (r *Repository) ListHeadsWithoutJob(ctx context.Context) ([]*model.Head, error) {
	return r.listHeads(ctx, `SELECT `+headColumns+` FROM heads h
		WHERE NOT EXISTS (SELECT 1 FROM jobs j WHERE j.sha = h.sha)
		  AND h.id = (SELECT MIN(id) FROM heads h2 WHERE h2.sha = h.sha)
		ORDER BY h.id`)
}

// Job operations

const jobColumns = `id, head_id, sha, kind, state, created_at, updated_at`

func scanJob(stmt *sqlite.Stmt) *model.Job {
	return &model.Job{
		ID:        types.JobID(stmt.ColumnInt64(0)),
		HeadID:    types.HeadID(stmt.ColumnInt64(1)),
		SHA:       types.CommitSHA(stmt.ColumnText(2)),
		Kind:      types.JobKind(stmt.ColumnText(3)),
		State:     types.JobState(stmt.ColumnText(4)),
		CreatedAt: fromNanos(stmt.ColumnInt64(5)),
		UpdatedAt: fromNanos(stmt.ColumnInt64(6)),
	}
}

func (r *Repository) CreateJob(ctx context.Context, head *model.Head, kind types.JobKind) (job *model.Job, entry *model.QueueEntry, err error) {
	if !kind.Valid() {
		return nil, nil, goerr.Wrap(repository.ErrInvalidInput, "unknown job kind", goerr.V("kind", kind))
	}

	conn, err := r.take(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer r.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer endFn(&err)

	now := logging.CtxTime(ctx)
	if err := sqlitex.Execute(conn,
		`INSERT INTO jobs (head_id, sha, kind, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{int64(head.ID), string(head.SHA), string(kind), string(types.JobWaiting), now.UnixNano(), now.UnixNano()},
		}); err != nil {
		if isUniqueViolation(err) {
			return nil, nil, goerr.Wrap(repository.ErrAlreadyExists, "job for head already exists", goerr.V("sha", head.SHA))
		}
		return nil, nil, goerr.Wrap(err, "failed to insert job", goerr.V("sha", head.SHA))
	}
	job = &model.Job{
		ID:        types.JobID(conn.LastInsertRowID()),
		HeadID:    head.ID,
		SHA:       head.SHA,
		Kind:      kind,
		State:     types.JobWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := sqlitex.Execute(conn, `INSERT INTO queue_entries (job_id, state, updated_at) VALUES (?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{int64(job.ID), string(types.EntryNew), now.UnixNano()},
	}); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to insert queue entry", goerr.V("job_id", job.ID))
	}
	entry = &model.QueueEntry{
		ID:        types.EntryID(conn.LastInsertRowID()),
		JobID:     job.ID,
		State:     types.EntryNew,
		UpdatedAt: now,
	}

	return job, entry, nil
}

func (r *Repository) getJob(conn *sqlite.Conn, id types.JobID) (*model.Job, error) {
	var job *model.Job
	if err := sqlitex.Execute(conn, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{int64(id)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			job = scanJob(stmt)
			return nil
		},
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to get job", goerr.V("job_id", id))
	}
	if job == nil {
		return nil, goerr.Wrap(repository.ErrNotFound, "job not found", goerr.V("job_id", id))
	}
	return job, nil
}

func (r *Repository) GetJob(ctx context.Context, id types.JobID) (*model.Job, error) {
	conn, err := r.take(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(conn)

	return r.getJob(conn, id)
}

func (r *Repository) UpdateJobState(ctx context.Context, id types.JobID, from, to types.JobState) error {
	if _, err := from.Transition(to); err != nil {
		return goerr.Wrap(err, "job state update rejected", goerr.V("job_id", id))
	}

	conn, err := r.take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	if err := sqlitex.Execute(conn, `UPDATE jobs SET state = ?, updated_at = ? WHERE id = ? AND state = ?`, &sqlitex.ExecOptions{
		Args: []any{string(to), logging.CtxTime(ctx).UnixNano(), int64(id), string(from)},
	}); err != nil {
		return goerr.Wrap(err, "failed to update job state", goerr.V("job_id", id))
	}
	if conn.Changes() > 0 {
		return nil
	}

	job, err := r.getJob(conn, id)
	if err != nil {
		return err
	}
	return repository.StateMismatch("job", id, from, job.State)
}

// Queue operations

const entryColumns = `id, job_id, state, updated_at`

func scanEntry(stmt *sqlite.Stmt) *model.QueueEntry {
	return &model.QueueEntry{
		ID:        types.EntryID(stmt.ColumnInt64(0)),
		JobID:     types.JobID(stmt.ColumnInt64(1)),
		State:     types.EntryState(stmt.ColumnText(2)),
		UpdatedAt: fromNanos(stmt.ColumnInt64(3)),
	}
}

func (r *Repository) ClaimNextEntry(ctx context.Context) (entry *model.QueueEntry, err error) {
	conn, err := r.take(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer endFn(&err)

	if err := sqlitex.Execute(conn, `UPDATE queue_entries SET state = ?, updated_at = ?
		WHERE id = (SELECT id FROM queue_entries WHERE state = ? ORDER BY id LIMIT 1)
		RETURNING `+entryColumns, &sqlitex.ExecOptions{
		Args: []any{string(types.EntryAssigned), logging.CtxTime(ctx).UnixNano(), string(types.EntryNew)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			entry = scanEntry(stmt)
			return nil
		},
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to claim queue entry")
	}
	return entry, nil
}

func (r *Repository) getEntry(conn *sqlite.Conn, id types.EntryID) (*model.QueueEntry, error) {
	var entry *model.QueueEntry
	if err := sqlitex.Execute(conn, `SELECT `+entryColumns+` FROM queue_entries WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{int64(id)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			entry = scanEntry(stmt)
			return nil
		},
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to get queue entry", goerr.V("entry_id", id))
	}
	if entry == nil {
		return nil, goerr.Wrap(repository.ErrNotFound, "queue entry not found", goerr.V("entry_id", id))
	}
	return entry, nil
}

func (r *Repository) GetEntry(ctx context.Context, id types.EntryID) (*model.QueueEntry, error) {
	conn, err := r.take(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(conn)

	return r.getEntry(conn, id)
}

func (r *Repository) UpdateEntryState(ctx context.Context, id types.EntryID, from, to types.EntryState) error {
	if _, err := from.Transition(to); err != nil {
		return goerr.Wrap(err, "queue entry state update rejected", goerr.V("entry_id", id))
	}

	conn, err := r.take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	if err := sqlitex.Execute(conn, `UPDATE queue_entries SET state = ?, updated_at = ? WHERE id = ? AND state = ?`, &sqlitex.ExecOptions{
		Args: []any{string(to), logging.CtxTime(ctx).UnixNano(), int64(id), string(from)},
	}); err != nil {
		return goerr.Wrap(err, "failed to update queue entry state", goerr.V("entry_id", id))
	}
	if conn.Changes() > 0 {
		return nil
	}

	entry, err := r.getEntry(conn, id)
	if err != nil {
		return err
	}
	return repository.StateMismatch("queue entry", id, from, entry.State)
}

func (r *Repository) ListWorkQueue(ctx context.Context) ([]*model.WorkQueueItem, error) {
	conn, err := r.take(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(conn)

	var items []*model.WorkQueueItem
	if err := sqlitex.Execute(conn, `SELECT e.id, j.id, j.sha, h.branch, j.kind, j.state, e.state, e.updated_at, j.created_at
		FROM queue_entries e
		JOIN jobs j ON j.id = e.job_id
		JOIN heads h ON h.id = j.head_id
		ORDER BY e.id`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			items = append(items, &model.WorkQueueItem{
				EntryID:      types.EntryID(stmt.ColumnInt64(0)),
				JobID:        types.JobID(stmt.ColumnInt64(1)),
				SHA:          types.CommitSHA(stmt.ColumnText(2)),
				Branch:       types.BranchName(stmt.ColumnText(3)),
				Kind:         types.JobKind(stmt.ColumnText(4)),
				JobState:     types.JobState(stmt.ColumnText(5)),
				EntryState:   types.EntryState(stmt.ColumnText(6)),
				Timestamp:    fromNanos(stmt.ColumnInt64(7)),
				JobCreatedAt: fromNanos(stmt.ColumnInt64(8)),
			})
			return nil
		},
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to list work queue")
	}
	return items, nil
}
