package jobstore

import "errors"

var (
	// ErrAlreadyExists indicates a create call for a job id that already has a directory.
	ErrAlreadyExists = errors.New("job already exists")
	// ErrUnknownJob indicates a write against a job id with no directory.
	ErrUnknownJob = errors.New("unknown job")
	// ErrNotFound indicates a requested artifact has not been produced yet.
	ErrNotFound = errors.New("artifact not found")
)
