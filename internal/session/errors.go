package session

import "errors"

var (
	// ErrLastRun indicates NextRun was called on the final run.
	ErrLastRun = errors.New("session: already on the last run")

	// ErrUnknownNoteCode indicates a note code outside the code table.
	ErrUnknownNoteCode = errors.New("session: unknown note code")

	// ErrInvalidRun indicates a run index below 1.
	ErrInvalidRun = errors.New("session: run must be >= 1")
)
