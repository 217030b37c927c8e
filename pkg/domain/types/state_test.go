package types_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tstr-dev/tstr/pkg/domain/types"
)

func TestEntryTransition(t *testing.T) {
	testCases := []struct {
		name    string
		from    types.EntryState
		to      types.EntryState
		allowed bool
	}{
		{"claim", types.EntryNew, types.EntryAssigned, true},
		{"start", types.EntryAssigned, types.EntryRunning, true},
		{"complete", types.EntryRunning, types.EntryDone, true},
		{"fail while running", types.EntryRunning, types.EntryFailed, true},
		{"fail while assigned", types.EntryAssigned, types.EntryFailed, true},
		{"requeue failed", types.EntryFailed, types.EntryNew, true},
		{"done back to new", types.EntryDone, types.EntryNew, false},
		{"skip assigned", types.EntryNew, types.EntryRunning, false},
		{"done to running", types.EntryDone, types.EntryRunning, false},
		{"same state", types.EntryRunning, types.EntryRunning, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.from.Transition(tc.to)
			if tc.allowed {
				gt.NoError(t, err)
				gt.V(t, got).Equal(tc.to)
			} else {
				gt.Error(t, err)
				gt.True(t, errors.Is(err, types.ErrInvalidTransition))
				gt.V(t, got).Equal(tc.from)
			}
		})
	}
}

func TestJobTransition(t *testing.T) {
	t.Run("waiting to running to finished", func(t *testing.T) {
		s := gt.R1(types.JobWaiting.Transition(types.JobRunning)).NoError(t)
		s = gt.R1(s.Transition(types.JobFinished)).NoError(t)
		gt.V(t, s).Equal(types.JobFinished)
	})

	t.Run("finished is terminal", func(t *testing.T) {
		for _, next := range []types.JobState{types.JobWaiting, types.JobRunning, types.JobFailed} {
			_, err := types.JobFinished.Transition(next)
			gt.Error(t, err)
		}
	})

	t.Run("failed can be requeued", func(t *testing.T) {
		s := gt.R1(types.JobFailed.Transition(types.JobWaiting)).NoError(t)
		gt.V(t, s).Equal(types.JobWaiting)
	})

	t.Run("waiting cannot finish directly", func(t *testing.T) {
		_, err := types.JobWaiting.Transition(types.JobFinished)
		gt.Error(t, err)
	})
}

func TestBranchTransition(t *testing.T) {
	gt.V(t, gt.R1(types.BranchOpen.Transition(types.BranchClosed)).NoError(t)).Equal(types.BranchClosed)
	gt.V(t, gt.R1(types.BranchClosed.Transition(types.BranchOpen)).NoError(t)).Equal(types.BranchOpen)

	_, err := types.BranchOpen.Transition(types.BranchOpen)
	gt.Error(t, err)

	gt.V(t, types.BranchStateOf(true)).Equal(types.BranchClosed)
	gt.V(t, types.BranchStateOf(false)).Equal(types.BranchOpen)
}

func TestValid(t *testing.T) {
	gt.True(t, types.EntryDone.Valid())
	gt.False(t, types.EntryState("unknown").Valid())
	gt.True(t, types.JobKindBenchmark.Valid())
	gt.False(t, types.JobKind("s3tests").Valid())
	gt.True(t, types.JobFailed.Valid())
}

func TestCommitSHAShort(t *testing.T) {
	gt.V(t, types.CommitSHA("0123456789abcdef0123").Short()).Equal("0123456789ab")
	gt.V(t, types.CommitSHA("abc").Short()).Equal("abc")
}
