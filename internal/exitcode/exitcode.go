// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown task reference).
	UserError = 1

	// AuthError indicates a sign-in or credential error.
	AuthError = 2

	// BackendError indicates a remote store, RPC or network error.
	BackendError = 3
)
