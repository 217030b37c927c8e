package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"

	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/repository"
	"github.com/tstr-dev/tstr/pkg/repository/postgres/migrations"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
	"github.com/tstr-dev/tstr/pkg/utils/safe"
)

const uniqueViolation = "23505"

// Repository stores state in PostgreSQL.
type Repository struct {
	db *sql.DB
}

var _ interfaces.Repository = (*Repository)(nil)

// New connects to dsn and applies pending migrations.
func New(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		safe.Close(db)
		return nil, goerr.Wrap(err, "failed to connect postgres")
	}

	repo := &Repository{db: db}
	if err := repo.Migrate(ctx); err != nil {
		safe.Close(db)
		return nil, err
	}
	return repo, nil
}

func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close postgres")
	}
	return nil
}

// Migrate applies embedded migrations that are not yet recorded in
// schema_migrations, each in its own transaction.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL
	)`); err != nil {
		return goerr.Wrap(err, "failed to create schema_migrations")
	}

	files, err := listMigrationFiles(migrations.Files)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := r.applyMigration(ctx, file); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) applyMigration(ctx context.Context, file string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer safe.Rollback(tx)

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, file).Scan(&exists); err != nil {
		return goerr.Wrap(err, "failed to check migration", goerr.V("version", file))
	}
	if exists {
		return nil
	}

	body, err := fs.ReadFile(migrations.Files, file)
	if err != nil {
		return goerr.Wrap(err, "failed to read migration", goerr.V("version", file))
	}
	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return goerr.Wrap(err, "failed to apply migration", goerr.V("version", file))
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`, file, logging.CtxTime(ctx)); err != nil {
		return goerr.Wrap(err, "failed to record migration", goerr.V("version", file))
	}
	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit migration", goerr.V("version", file))
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
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type scanner interface {
	Scan(dest ...any) error
}

// Branch operations

const branchColumns = `name, source, is_pull_request, pull_number, closed, updated_at`

func scanBranch(row scanner) (*model.Branch, error) {
	var b model.Branch
	var name, source string
	var pull int64
	if err := row.Scan(&name, &source, &b.IsPullRequest, &pull, &b.Closed, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Name = types.BranchName(name)
	b.Source = types.SourceLabel(source)
	b.PullNumber = types.PullNumber(pull)
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func (r *Repository) GetBranch(ctx context.Context, name types.BranchName) (*model.Branch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+branchColumns+` FROM branches WHERE name = $1`, string(name))
	branch, err := scanBranch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(repository.ErrNotFound, "branch not found", goerr.V("branch", name))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get branch", goerr.V("branch", name))
	}
	return branch, nil
}

func (r *Repository) ListBranches(ctx context.Context) ([]*model.Branch, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+branchColumns+` FROM branches ORDER BY name`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list branches")
	}
	defer safe.Close(rows)

	var branches []*model.Branch
	for rows.Next() {
		branch, err := scanBranch(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan branch")
		}
		branches = append(branches, branch)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate branches")
	}
	return branches, nil
}

func (r *Repository) CreateBranchWithHead(ctx context.Context, branch *model.Branch, sha types.CommitSHA) (*model.Head, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer safe.Rollback(tx)

	now := logging.CtxTime(ctx).UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO branches (`+branchColumns+`) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (name) DO NOTHING`,
		string(branch.Name), string(branch.Source), branch.IsPullRequest, int64(branch.PullNumber), branch.Closed, now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert branch", goerr.V("branch", branch.Name))
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, goerr.Wrap(err, "failed to read affected rows")
	} else if n == 0 {
		return nil, goerr.Wrap(repository.ErrAlreadyExists, "branch already exists", goerr.V("branch", branch.Name))
	}

	head, err := insertHead(ctx, tx, branch.Name, sha, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit branch", goerr.V("branch", branch.Name))
	}
	return head, nil
}

func insertHead(ctx context.Context, tx *sql.Tx, name types.BranchName, sha types.CommitSHA, now time.Time) (*model.Head, error) {
	var id int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO heads (branch, sha, created_at) VALUES ($1, $2, $3) RETURNING id`,
		string(name), string(sha), now).Scan(&id); err != nil {
		return nil, goerr.Wrap(err, "failed to insert head", goerr.V("branch", name), goerr.V("sha", sha))
	}
	return &model.Head{ID: types.HeadID(id), Branch: name, SHA: sha, CreatedAt: now}, nil
}

func (r *Repository) SetBranchClosed(ctx context.Context, name types.BranchName, closed bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE branches SET closed = $1, updated_at = $2 WHERE name = $3`,
		closed, logging.CtxTime(ctx).UTC(), string(name))
	if err != nil {
		return goerr.Wrap(err, "failed to update branch", goerr.V("branch", name))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return goerr.Wrap(repository.ErrNotFound, "branch not found", goerr.V("branch", name))
	}
	return nil
}

// Head operations

const headColumns = `id, branch, sha, created_at`

func scanHead(row scanner) (*model.Head, error) {
	var h model.Head
	var id int64
	var branch, sha string
	if err := row.Scan(&id, &branch, &sha, &h.CreatedAt); err != nil {
		return nil, err
	}
	h.ID = types.HeadID(id)
	h.Branch = types.BranchName(branch)
	h.SHA = types.CommitSHA(sha)
	h.CreatedAt = h.CreatedAt.UTC()
	return &h, nil
}

func (r *Repository) AppendHead(ctx context.Context, name types.BranchName, sha types.CommitSHA) (*model.Head, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to begin transaction")
	}
	defer safe.Rollback(tx)

	now := logging.CtxTime(ctx).UTC()
	// Locks the branch row so concurrent appends for one branch serialize.
	res, err := tx.ExecContext(ctx, `UPDATE branches SET updated_at = $1 WHERE name = $2`, now, string(name))
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to touch branch", goerr.V("branch", name))
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, false, goerr.Wrap(err, "failed to read affected rows")
	} else if n == 0 {
		return nil, false, goerr.Wrap(repository.ErrNotFound, "branch not found", goerr.V("branch", name))
	}

	existing, err := scanHead(tx.QueryRowContext(ctx,
		`SELECT `+headColumns+` FROM heads WHERE branch = $1 AND sha = $2`, string(name), string(sha)))
	switch {
	case err == nil:
		// Leave updated_at untouched when nothing new was recorded.
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, goerr.Wrap(err, "failed to look up head", goerr.V("branch", name))
	}

	head, err := insertHead(ctx, tx, name, sha, now)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, goerr.Wrap(err, "failed to commit head", goerr.V("branch", name))
	}
	return head, true, nil
}

func (r *Repository) GetHead(ctx context.Context, id types.HeadID) (*model.Head, error) {
	head, err := scanHead(r.db.QueryRowContext(ctx, `SELECT `+headColumns+` FROM heads WHERE id = $1`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(repository.ErrNotFound, "head not found", goerr.V("head_id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get head", goerr.V("head_id", id))
	}
	return head, nil
}

func (r *Repository) listHeads(ctx context.Context, query string) ([]*model.Head, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list heads")
	}
	defer safe.Close(rows)

	var heads []*model.Head
	for rows.Next() {
		head, err := scanHead(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan head")
		}
		heads = append(heads, head)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate heads")
	}
	return heads, nil
}

func (r *Repository) ListHeads(ctx context.Context) ([]*model.Head, error) {
	return r.listHeads(ctx, `SELECT `+headColumns+` FROM heads ORDER BY id`)
}

func (r *Repository) ListHeadsWithoutJob(ctx context.Context) ([]*model.Head, error) {
	return r.listHeads(ctx, `SELECT `+headColumns+` FROM (
			SELECT DISTINCT ON (sha) `+headColumns+` FROM heads h
			WHERE NOT EXISTS (SELECT 1 FROM jobs j WHERE j.sha = h.sha)
			ORDER BY sha, id
		) oldest ORDER BY id`)
}

// Job operations

const jobColumns = `id, head_id, sha, kind, state, created_at, updated_at`

func scanJob(row scanner) (*model.Job, error) {
	var j model.Job
	var id, headID int64
	var sha, kind, state string
	if err := row.Scan(&id, &headID, &sha, &kind, &state, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.ID = types.JobID(id)
	j.HeadID = types.HeadID(headID)
	j.SHA = types.CommitSHA(sha)
	j.Kind = types.JobKind(kind)
	j.State = types.JobState(state)
	j.CreatedAt = j.CreatedAt.UTC()
	j.UpdatedAt = j.UpdatedAt.UTC()
	return &j, nil
}

func (r *Repository) CreateJob(ctx context.Context, head *model.Head, kind types.JobKind) (*model.Job, *model.QueueEntry, error) {
	if !kind.Valid() {
		return nil, nil, goerr.Wrap(repository.ErrInvalidInput, "unknown job kind", goerr.V("kind", kind))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer safe.Rollback(tx)

	now := logging.CtxTime(ctx).UTC()
	var jobID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO jobs (head_id, sha, kind, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (sha) DO NOTHING
		RETURNING id`,
		int64(head.ID), string(head.SHA), string(kind), string(types.JobWaiting), now).Scan(&jobID)
	switch {
	case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
		return nil, nil, goerr.Wrap(repository.ErrAlreadyExists, "job for head already exists", goerr.V("sha", head.SHA))
	case err != nil:
		return nil, nil, goerr.Wrap(err, "failed to insert job", goerr.V("sha", head.SHA))
	}

	var entryID int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO queue_entries (job_id, state, updated_at) VALUES ($1, $2, $3) RETURNING id`,
		jobID, string(types.EntryNew), now).Scan(&entryID); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to insert queue entry", goerr.V("job_id", jobID))
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to commit job", goerr.V("sha", head.SHA))
	}

	job := &model.Job{
		ID:        types.JobID(jobID),
		HeadID:    head.ID,
		SHA:       head.SHA,
		Kind:      kind,
		State:     types.JobWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	entry := &model.QueueEntry{
		ID:        types.EntryID(entryID),
		JobID:     job.ID,
		State:     types.EntryNew,
		UpdatedAt: now,
	}
	return job, entry, nil
}

func (r *Repository) GetJob(ctx context.Context, id types.JobID) (*model.Job, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(repository.ErrNotFound, "job not found", goerr.V("job_id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get job", goerr.V("job_id", id))
	}
	return job, nil
}

func (r *Repository) UpdateJobState(ctx context.Context, id types.JobID, from, to types.JobState) error {
	if _, err := from.Transition(to); err != nil {
		return goerr.Wrap(err, "job state update rejected", goerr.V("job_id", id))
	}

	res, err := r.db.ExecContext(ctx, `UPDATE jobs SET state = $1, updated_at = $2 WHERE id = $3 AND state = $4`,
		string(to), logging.CtxTime(ctx).UTC(), int64(id), string(from))
	if err != nil {
		return goerr.Wrap(err, "failed to update job state", goerr.V("job_id", id))
	}
	if n, err := res.RowsAffected(); err != nil {
		return goerr.Wrap(err, "failed to read affected rows")
	} else if n > 0 {
		return nil
	}

	job, err := r.GetJob(ctx, id)
	if err != nil {
		return err
	}
	return repository.StateMismatch("job", id, from, job.State)
}

// Queue operations

const entryColumns = `id, job_id, state, updated_at`

func scanEntry(row scanner) (*model.QueueEntry, error) {
	var e model.QueueEntry
	var id, jobID int64
	var state string
	if err := row.Scan(&id, &jobID, &state, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.ID = types.EntryID(id)
	e.JobID = types.JobID(jobID)
	e.State = types.EntryState(state)
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

func (r *Repository) ClaimNextEntry(ctx context.Context) (*model.QueueEntry, error) {
	entry, err := scanEntry(r.db.QueryRowContext(ctx, `UPDATE queue_entries SET state = $1, updated_at = $2
		WHERE id = (
			SELECT id FROM queue_entries WHERE state = $3
			ORDER BY id LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+entryColumns,
		string(types.EntryAssigned), logging.CtxTime(ctx).UTC(), string(types.EntryNew)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to claim queue entry")
	}
	return entry, nil
}

func (r *Repository) GetEntry(ctx context.Context, id types.EntryID) (*model.QueueEntry, error) {
	entry, err := scanEntry(r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM queue_entries WHERE id = $1`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(repository.ErrNotFound, "queue entry not found", goerr.V("entry_id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get queue entry", goerr.V("entry_id", id))
	}
	return entry, nil
}

func (r *Repository) UpdateEntryState(ctx context.Context, id types.EntryID, from, to types.EntryState) error {
	if _, err := from.Transition(to); err != nil {
		return goerr.Wrap(err, "queue entry state update rejected", goerr.V("entry_id", id))
	}

	res, err := r.db.ExecContext(ctx, `UPDATE queue_entries SET state = $1, updated_at = $2 WHERE id = $3 AND state = $4`,
		string(to), logging.CtxTime(ctx).UTC(), int64(id), string(from))
	if err != nil {
		return goerr.Wrap(err, "failed to update queue entry state", goerr.V("entry_id", id))
	}
	if n, err := res.RowsAffected(); err != nil {
		return goerr.Wrap(err, "failed to read affected rows")
	} else if n > 0 {
		return nil
	}

	entry, err := r.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	return repository.StateMismatch("queue entry", id, from, entry.State)
}

func (r *Repository) ListWorkQueue(ctx context.Context) ([]*model.WorkQueueItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT e.id, j.id, j.sha, h.branch, j.kind, j.state, e.state, e.updated_at, j.created_at
		FROM queue_entries e
		JOIN jobs j ON j.id = e.job_id
		JOIN heads h ON h.id = j.head_id
		ORDER BY e.id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list work queue")
	}
	defer safe.Close(rows)

	var items []*model.WorkQueueItem
	for rows.Next() {
		var item model.WorkQueueItem
		var entryID, jobID int64
		var sha, branch, kind, jobState, entryState string
		if err := rows.Scan(&entryID, &jobID, &sha, &branch, &kind, &jobState, &entryState, &item.Timestamp, &item.JobCreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan work queue item")
		}
		item.EntryID = types.EntryID(entryID)
		item.JobID = types.JobID(jobID)
		item.SHA = types.CommitSHA(sha)
		item.Branch = types.BranchName(branch)
		item.Kind = types.JobKind(kind)
		item.JobState = types.JobState(jobState)
		item.EntryState = types.EntryState(entryState)
		item.Timestamp = item.Timestamp.UTC()
		item.JobCreatedAt = item.JobCreatedAt.UTC()
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate work queue")
	}
	return items, nil
}
