package errors

import "errors"

var (
	ErrNotFound     = errors.New("trainer not found")
	ErrInvalidID    = errors.New("invalid trainer ID")
	ErrInvalidPhone = errors.New("phone number could not be normalized")
)
