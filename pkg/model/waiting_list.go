package model

import "time"

// Waiting-list entry lifecycle. WAITING entries hold dense positions 1..N
// per session. An ASSIGNED entry has been offered the spot and must confirm
// before its deadline; it no longer holds a position.
const (
	WaitingStatusWaiting   = "WAITING"
	WaitingStatusAssigned  = "ASSIGNED"
	WaitingStatusConfirmed = "CONFIRMED"
	WaitingStatusExpired   = "EXPIRED"
	WaitingStatusCancelled = "CANCELLED"
)

type WaitingListEntry struct {
	ID        string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	SessionID string `json:"session_id" bson:"session_id" validate:"required,uuid4"`
	MemberID  string `json:"member_id" bson:"member_id" validate:"required,uuid4"`
	Status    string `json:"status" bson:"status" validate:"required,oneof=WAITING ASSIGNED CONFIRMED EXPIRED CANCELLED"`
	// Position is meaningful only while Status is WAITING; 0 otherwise.
	Position int `json:"position" bson:"position" validate:"min=0"`
	// PriorityScore is the score computed at insertion time. Later insertions
	// rank against it; ordering authority among WAITING entries is Position.
	PriorityScore int       `json:"priority_score" bson:"priority_score" validate:"min=0"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
	// AssignedAt and ApprovalDeadline are set when the entry is promoted.
	AssignedAt       *time.Time `json:"assigned_at,omitempty" bson:"assigned_at,omitempty"`
	ApprovalDeadline *time.Time `json:"approval_deadline,omitempty" bson:"approval_deadline,omitempty"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}

// IsTerminal reports whether the entry has left the queue for good.
func (e *WaitingListEntry) IsTerminal() bool {
	switch e.Status {
	case WaitingStatusConfirmed, WaitingStatusExpired, WaitingStatusCancelled:
		return true
	}
	return false
}

// WaitingHours returns whole hours elapsed since the entry was created.
func (e *WaitingListEntry) WaitingHours(now time.Time) int {
	if now.Before(e.CreatedAt) {
		return 0
	}
	return int(now.Sub(e.CreatedAt).Hours())
}

// DeadlinePassed reports whether an ASSIGNED entry has outlived its approval
// window.
func (e *WaitingListEntry) DeadlinePassed(now time.Time) bool {
	return e.Status == WaitingStatusAssigned &&
		e.ApprovalDeadline != nil &&
		now.After(*e.ApprovalDeadline)
}
