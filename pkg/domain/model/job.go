package model

import (
	"time"

	"github.com/tstr-dev/tstr/pkg/domain/types"
)

type Job struct {
	ID        types.JobID     `json:"id"`
	HeadID    types.HeadID    `json:"head_id"`
	SHA       types.CommitSHA `json:"sha"`
	Kind      types.JobKind   `json:"kind"`
	State     types.JobState  `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// QueueEntry is the dispatch record of a Job. It is created in the same
// transaction as the Job.
type QueueEntry struct {
	ID        types.EntryID    `json:"id"`
	JobID     types.JobID      `json:"job_id"`
	State     types.EntryState `json:"state"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type ScheduleReport struct {
	Scheduled int `json:"scheduled"`
	Existing  int `json:"existing"`
}

// WorkQueueItem is one row of the work queue projection.
type WorkQueueItem struct {
	EntryID    types.EntryID    `json:"entry_id"`
	JobID      types.JobID      `json:"job_id"`
	SHA        types.CommitSHA  `json:"sha"`
	Branch     types.BranchName `json:"branch"`
	Kind       types.JobKind    `json:"kind"`
	JobState   types.JobState   `json:"job_state"`
	EntryState types.EntryState `json:"entry_state"`
	// Timestamp is the last change of the entry, JobCreatedAt the creation
	// of its job.
	Timestamp    time.Time `json:"timestamp"`
	JobCreatedAt time.Time `json:"job_created_at"`
}

// WorkItem is a claimed queue entry with everything the pipeline needs.
type WorkItem struct {
	Entry QueueEntry
	Job   Job
	Head  Head
}
