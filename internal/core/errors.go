package core

import "errors"

var (
	// ErrInvalidTask is returned when a task handed to the scheduler is
	// unusable (nil or unnamed). The collection is left unchanged.
	ErrInvalidTask = errors.New("invalid task")

	// ErrInvalidDeadline is returned when a deadline string cannot be parsed.
	ErrInvalidDeadline = errors.New("invalid deadline")

	// ErrTaskNotFound is returned when no pending task has the requested name.
	ErrTaskNotFound = errors.New("task not found")
)
