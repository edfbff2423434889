package commands

import (
	"errors"
	"fmt"
	"io"

	"tasktracker/internal/auth"
	"tasktracker/internal/exitcode"
	"tasktracker/internal/service"
	"tasktracker/internal/tasklist"
)

// signInHint is printed for every operation refused while signed out.
const signInHint = "not signed in (run: tasktracker login)"

// ExitCodeFor classifies err into the exit code taxonomy.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, tasklist.ErrSignedOut),
		errors.Is(err, auth.ErrNoCredentials),
		errors.Is(err, service.ErrUnauthorized):
		return exitcode.AuthError
	case errors.Is(err, service.ErrNotFound):
		return exitcode.UserError
	default:
		return exitcode.BackendError
	}
}

// reportError prints err to errOut and returns its exit code.
func reportError(errOut io.Writer, err error) int {
	code := ExitCodeFor(err)
	switch {
	case errors.Is(err, tasklist.ErrSignedOut):
		fmt.Fprintf(errOut, "error: %s\n", signInHint)
	case code == exitcode.AuthError:
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
	case code == exitcode.UserError:
		fmt.Fprintf(errOut, "error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	}
	return code
}
