package repository

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/types"
)

var (
	ErrNotFound      = goerr.New("not found")
	ErrAlreadyExists = goerr.New("already exists")
	ErrInvalidInput  = goerr.New("invalid input")
)

// StateMismatch is the error of a compare-and-set state update that found the
// record in another state than expected.
func StateMismatch(record string, id, expected, actual any) error {
	return goerr.Wrap(types.ErrInvalidTransition, record+" is not in the expected state",
		goerr.V("id", id),
		goerr.V("expected", expected),
		goerr.V("actual", actual),
	)
}
