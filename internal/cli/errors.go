package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// exitError tags an error with the process exit code it maps to.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func systemError(err error) error { return &exitError{code: exitSysError, err: err} }
func userError(err error) error   { return &exitError{code: exitUserError, err: err} }

// userKinds are catalog errors caused by the request rather than the system.
var userKinds = []error{
	types.ErrNotFound,
	types.ErrAlreadyExists,
	types.ErrConflict,
	types.ErrInvalidReference,
	types.ErrNotInCollection,
	types.ErrInvalidName,
	types.ErrInvalidData,
	types.ErrInvalidOrderBy,
}

// exitCode maps err to a process exit code. Untagged errors wrapping a known
// kind are user errors; anything else is a system error.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	for _, kind := range userKinds {
		if errors.Is(err, kind) {
			return exitUserError
		}
	}
	return exitSysError
}

// exactArgs is cobra.ExactArgs reporting a user error.
func exactArgs(n int) cobra.PositionalArgs {
	return userArgs(cobra.ExactArgs(n))
}

// minArgs is cobra.MinimumNArgs reporting a user error.
func minArgs(n int) cobra.PositionalArgs {
	return userArgs(cobra.MinimumNArgs(n))
}

func userArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return userError(err)
		}
		return nil
	}
}
