package session

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySubmission rejects blank text
	ErrEmptySubmission = errors.New("empty submission")
	// ErrTurnInProgress rejects a submission while a reply is streaming
	ErrTurnInProgress = errors.New("a reply is still streaming")
	// ErrTableOccupied is returned when a second live connection is registered
	ErrTableOccupied = errors.New("connection table already holds a live connection")
	// ErrStopped is returned by queries after Run has returned
	ErrStopped = errors.New("controller stopped")
)

// BackendError is an error frame reported by the backend
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error: %s", e.Message)
}
