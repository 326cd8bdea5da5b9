package errors

import "errors"

var (
	ErrNotFound           = errors.New("class session not found")
	ErrInvalidID          = errors.New("invalid class session ID")
	ErrSessionClosed      = errors.New("session is not accepting enrollments")
	ErrSessionFull        = errors.New("session is at full capacity")
	ErrAlreadyEnrolled    = errors.New("member is already enrolled in this session")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrTrainerNotFound    = errors.New("trainer not found")
	ErrHasEnrollments     = errors.New("session has active enrollments")
)
