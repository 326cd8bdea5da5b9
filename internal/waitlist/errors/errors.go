package errors

import "errors"

var (
	ErrNotFound = errors.New("waiting list entry not found")

	ErrInvalidID = errors.New("invalid waiting list entry ID format")

	ErrAlreadyQueued = errors.New("member already has an active waiting list entry for this session")

	ErrSessionNotFull = errors.New("session has free capacity, enroll directly instead of queueing")

	ErrSessionClosed = errors.New("session is not accepting enrollments")

	ErrNotAssigned = errors.New("waiting list entry is not awaiting confirmation")

	ErrDeadlinePassed = errors.New("approval deadline has passed, the spot was released")

	ErrAlreadyFinalized = errors.New("waiting list entry is already in a terminal state")

	ErrQueueLocked = errors.New("session queue is being modified by another request")
)
