package errors

import "errors"

var (
	ErrNotFound      = errors.New("subscription not found")
	ErrPlanNotFound  = errors.New("plan not found")
	ErrInvalidID     = errors.New("invalid subscription ID")
	ErrAlreadyActive = errors.New("member already has an active subscription")
	ErrNotFreezable  = errors.New("only active subscriptions can be frozen")
	ErrNotFrozen     = errors.New("subscription is not frozen")
	ErrPlanInUse     = errors.New("plan has active subscriptions")
)
