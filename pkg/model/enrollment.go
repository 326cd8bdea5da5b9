package model

import "time"

const (
	EnrollmentStatusRegistered = "REGISTERED"
	EnrollmentStatusCanceled   = "CANCELED"
	EnrollmentStatusAttended   = "ATTENDED"
	EnrollmentStatusNoShow     = "NO_SHOW"
)

type Enrollment struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	SessionID string    `json:"session_id" bson:"session_id" validate:"required,uuid4"`
	MemberID  string    `json:"member_id" bson:"member_id" validate:"required,uuid4"`
	Status    string    `json:"status" bson:"status" validate:"required,oneof=REGISTERED CANCELED ATTENDED NO_SHOW"`
	// Source records how the spot was obtained: direct enrollment or
	// promotion from the waiting list.
	Source    string    `json:"source,omitempty" bson:"source,omitempty" validate:"omitempty,oneof=DIRECT WAITLIST"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

const (
	EnrollmentSourceDirect   = "DIRECT"
	EnrollmentSourceWaitlist = "WAITLIST"
)
