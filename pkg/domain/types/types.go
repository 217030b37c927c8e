package types

import (
	"log/slog"

	"github.com/google/uuid"
)

type (
	BranchName      string
	CommitSHA       string
	SourceLabel     string
	HeadID          int64
	JobID           int64
	EntryID         int64
	PullNumber      int
	ImageTag        string
	RequestID       string
	GitHubAppID     int64
	GitHubInstallID int64
)

// NoPullRequest is stored as PR number of branches that are not pull requests.
const NoPullRequest PullNumber = -1

func (x CommitSHA) String() string { return string(x) }

// Short returns the abbreviated form used in logs. It is not a content tag:
// image tags are taken from git itself.
func (x CommitSHA) Short() string {
	if len(x) > 12 {
		return string(x[:12])
	}
	return string(x)
}

func (x BranchName) String() string { return string(x) }

func NewRequestID() RequestID {
	return RequestID(uuid.NewString())
}

type (
	GitHubToken         string
	GitHubAppPrivateKey string
	WorkerToken         string
)

func (x GitHubToken) LogValue() slog.Value {
	return slog.StringValue("***********")
}

func (x GitHubToken) String() string {
	return "***********"
}

func (x GitHubAppPrivateKey) LogValue() slog.Value {
	return slog.StringValue("***********")
}

func (x GitHubAppPrivateKey) String() string {
	return "***********"
}

func (x WorkerToken) LogValue() slog.Value {
	return slog.StringValue("***********")
}

func (x WorkerToken) String() string {
	return "***********"
}
