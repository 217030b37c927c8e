package types

import (
	"slices"

	"github.com/m-mizutani/goerr/v2"
)

type (
	BranchState string
	JobKind     string
	JobState    string
	EntryState  string
)

const (
	BranchOpen   BranchState = "open"
	BranchClosed BranchState = "closed"
)

const (
	JobKindBuild           JobKind = "build"
	JobKindIntegrationTest JobKind = "integration-test"
	JobKindBenchmark       JobKind = "benchmark"
)

const (
	JobWaiting  JobState = "waiting"
	JobRunning  JobState = "running"
	JobFinished JobState = "finished"
	JobFailed   JobState = "failed"
)

const (
	EntryNew      EntryState = "new"
	EntryAssigned EntryState = "assigned"
	EntryRunning  EntryState = "running"
	EntryDone     EntryState = "done"
	EntryFailed   EntryState = "failed"
)

var branchTransitions = map[BranchState][]BranchState{
	BranchOpen:   {BranchClosed},
	BranchClosed: {BranchOpen},
}

// failed -> waiting is the operator requeue path.
var jobTransitions = map[JobState][]JobState{
	JobWaiting:  {JobRunning},
	JobRunning:  {JobFinished, JobFailed},
	JobFinished: {},
	JobFailed:   {JobWaiting},
}

var entryTransitions = map[EntryState][]EntryState{
	EntryNew:      {EntryAssigned},
	EntryAssigned: {EntryRunning, EntryFailed},
	EntryRunning:  {EntryDone, EntryFailed},
	EntryDone:     {},
	EntryFailed:   {EntryNew},
}

func (x BranchState) Valid() bool {
	_, ok := branchTransitions[x]
	return ok
}

func (x JobState) Valid() bool {
	_, ok := jobTransitions[x]
	return ok
}

func (x EntryState) Valid() bool {
	_, ok := entryTransitions[x]
	return ok
}

func (x JobKind) Valid() bool {
	switch x {
	case JobKindBuild, JobKindIntegrationTest, JobKindBenchmark:
		return true
	}
	return false
}

// Transition returns next if moving from x to next is allowed.
func (x BranchState) Transition(next BranchState) (BranchState, error) {
	if !slices.Contains(branchTransitions[x], next) {
		return x, goerr.Wrap(ErrInvalidTransition, "branch state",
			goerr.V("from", x), goerr.V("to", next))
	}
	return next, nil
}

func (x JobState) Transition(next JobState) (JobState, error) {
	if !slices.Contains(jobTransitions[x], next) {
		return x, goerr.Wrap(ErrInvalidTransition, "job state",
			goerr.V("from", x), goerr.V("to", next))
	}
	return next, nil
}

func (x EntryState) Transition(next EntryState) (EntryState, error) {
	if !slices.Contains(entryTransitions[x], next) {
		return x, goerr.Wrap(ErrInvalidTransition, "queue entry state",
			goerr.V("from", x), goerr.V("to", next))
	}
	return next, nil
}

// BranchStateOf maps the closed flag kept on a branch record.
func BranchStateOf(closed bool) BranchState {
	if closed {
		return BranchClosed
	}
	return BranchOpen
}
