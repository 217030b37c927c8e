package model

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/types"
)

type UpstreamState string

const (
	UpstreamUnknown UpstreamState = ""
	UpstreamOpen    UpstreamState = "open"
	UpstreamClosed  UpstreamState = "closed"
)

var ptnValidCommitSHA = regexp.MustCompile(`^[0-9a-f]{7,64}$`)

// ObservedHead is one branch head as reported by source control in a single
// poll cycle.
type ObservedHead struct {
	Branch        types.BranchName
	Source        types.SourceLabel
	SHA           types.CommitSHA
	IsPullRequest bool
	PullNumber    types.PullNumber
	Upstream      UpstreamState
}

func (x *ObservedHead) Validate() error {
	if x.Branch == "" {
		return goerr.Wrap(types.ErrInvalidGitHubData, "branch name is empty")
	}
	if !ptnValidCommitSHA.MatchString(string(x.SHA)) {
		return goerr.Wrap(types.ErrInvalidGitHubData, "invalid commit sha",
			goerr.V("branch", x.Branch), goerr.V("sha", x.SHA))
	}
	if x.IsPullRequest && x.PullNumber <= 0 {
		return goerr.Wrap(types.ErrInvalidGitHubData, "pull request without number",
			goerr.V("branch", x.Branch))
	}
	if !x.IsPullRequest && x.PullNumber != types.NoPullRequest {
		return goerr.Wrap(types.ErrInvalidGitHubData, "pull number set on non pull request",
			goerr.V("branch", x.Branch), goerr.V("pull_number", x.PullNumber))
	}
	switch x.Upstream {
	case UpstreamUnknown, UpstreamOpen, UpstreamClosed:
	default:
		return goerr.Wrap(types.ErrInvalidGitHubData, "unknown upstream state",
			goerr.V("branch", x.Branch), goerr.V("state", x.Upstream))
	}
	return nil
}

func (x *ObservedHead) IsClosed() bool {
	return x.Upstream == UpstreamClosed
}

// ReconcileReport counts the outcome of one reconcile cycle. Every observed
// head lands in exactly one of Skipped, Closed or NewHeads. NewBranches,
// Reopened and a new head recorded right before closing overlap with them.
type ReconcileReport struct {
	NewBranches int `json:"new_branches"`
	NewHeads    int `json:"new_heads"`
	Skipped     int `json:"skipped"`
	Closed      int `json:"closed"`
	Reopened    int `json:"reopened"`
}

func (x ReconcileReport) Changed() bool {
	return x.NewBranches+x.NewHeads+x.Closed+x.Reopened > 0
}
