package model

import (
	"fmt"
	"time"

	"github.com/tstr-dev/tstr/pkg/domain/types"
)

// Branch is a tracked line of development: the default branch or one pull
// request. It is never deleted; only Closed changes after creation.
type Branch struct {
	Name          types.BranchName  `json:"name"`
	Source        types.SourceLabel `json:"source"`
	IsPullRequest bool              `json:"is_pull_request"`
	PullNumber    types.PullNumber  `json:"pull_number"`
	Closed        bool              `json:"closed"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (x *Branch) State() types.BranchState {
	return types.BranchStateOf(x.Closed)
}

// Head is one observed commit of a branch. (Branch, SHA) is unique.
type Head struct {
	ID        types.HeadID     `json:"id"`
	Branch    types.BranchName `json:"branch"`
	SHA       types.CommitSHA  `json:"sha"`
	CreatedAt time.Time        `json:"created_at"`
}

// PullHeadName is the ref name a pull request is tracked under.
func PullHeadName(n types.PullNumber) types.BranchName {
	return types.BranchName(fmt.Sprintf("pull/%d/head", n))
}

type Commit struct {
	SHA  types.CommitSHA `json:"sha"`
	When time.Time       `json:"when"`
}

// BranchHistory is the dashboard view of a branch and every head recorded for
// it, oldest first.
type BranchHistory struct {
	Name       types.BranchName  `json:"name"`
	Source     types.SourceLabel `json:"source"`
	State      types.BranchState `json:"state"`
	PullNumber types.PullNumber  `json:"pull_number"`
	Commits    []Commit          `json:"commits"`
}
