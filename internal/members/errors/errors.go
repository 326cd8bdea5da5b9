package errors

import "errors"

var (
	ErrNotFound       = errors.New("member not found")
	ErrInvalidID      = errors.New("invalid member ID")
	ErrDuplicateEmail = errors.New("a member with this email already exists")
	ErrInvalidPhone   = errors.New("phone number could not be normalized")
)
