package types

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrInvalidOption is returned for a bad argument or flag value.
	ErrInvalidOption = goerr.New("invalid option")

	// ErrConfiguration is fatal at process start; no loop may run after it.
	ErrConfiguration = goerr.New("invalid configuration")

	// ErrTransientPoll means the upstream source control API failed. The
	// poll cycle is abandoned and retried on the next interval.
	ErrTransientPoll = goerr.New("transient poll failure")

	// ErrRepositoryState is a local path of the wrong type, or an expected
	// artifact that is missing after a step reported success.
	ErrRepositoryState = goerr.New("unexpected repository state")

	// ErrCommandExecution is an external process exiting non-zero. The
	// captured stderr is attached as the "stderr" value.
	ErrCommandExecution = goerr.New("command execution failed")

	// ErrGit is a git invocation exiting non-zero, with "stderr" attached.
	ErrGit = goerr.New("git command failed")

	ErrPipeline = goerr.New("pipeline failed")

	ErrInvalidTransition = goerr.New("invalid state transition")

	ErrInvalidGitHubData = goerr.New("invalid GitHub data")
)
