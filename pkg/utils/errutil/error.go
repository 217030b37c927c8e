package errutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
)

// HandleError is the terminal handler of every background loop iteration.
// It reports to Sentry and logs; it never stops the caller.
func HandleError(ctx context.Context, msg string, err error) {
	kind := Kind(err)

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("error.kind", kind)
		if goErr := goerr.Unwrap(err); goErr != nil {
			for k, v := range goErr.Values() {
				scope.SetExtra(fmt.Sprintf("%v", k), v)
			}
		}
	})
	evID := hub.CaptureException(err)

	logging.From(ctx).Error(msg,
		"error", err,
		"error.kind", kind,
		"sentry.EventID", evID,
	)
}

var kinds = []struct {
	err  error
	name string
}{
	{types.ErrConfiguration, "configuration"},
	{types.ErrTransientPoll, "transient_poll"},
	{types.ErrRepositoryState, "repository_state"},
	{types.ErrGit, "git"},
	{types.ErrCommandExecution, "command_execution"},
	{types.ErrPipeline, "pipeline"},
	{types.ErrInvalidTransition, "invalid_transition"},
	{types.ErrInvalidGitHubData, "invalid_github_data"},
	{types.ErrInvalidOption, "invalid_option"},
}

// Kind returns a stable short name of the error class, used as log field and
// metric label.
func Kind(err error) string {
	if err == nil {
		return "none"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "unknown"
}
