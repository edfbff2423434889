package service

import "errors"

// Errors backends wrap so callers can classify failures without knowing
// which backend produced them.
var (
	// ErrUnauthorized means the stored credentials were rejected or are missing.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the task or account does not exist in the remote store.
	ErrNotFound = errors.New("not found")

	// ErrTimeout means the remote store did not answer in time.
	ErrTimeout = errors.New("request timed out")
)
