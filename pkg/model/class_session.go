package model

import "time"

const (
	SessionStatusOpen      = "OPEN"
	SessionStatusFull      = "FULL"
	SessionStatusCancelled = "CANCELLED"
	SessionStatusCompleted = "COMPLETED"
	SessionStatusClosed    = "CLOSED"
)

type ClassSession struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	TrainerID string    `json:"trainer_id" bson:"trainer_id" validate:"required,uuid4"`
	StartTime time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Capacity  int       `json:"capacity" bson:"capacity" validate:"required,min=1,max=200"`
	Status    string    `json:"status" bson:"status" validate:"required,oneof=OPEN FULL CANCELLED COMPLETED CLOSED"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type ClassSessionUpdate struct {
	Name      string     `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	StartTime *time.Time `json:"start_time,omitempty" validate:"omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty" validate:"omitempty"`
	Capacity  *int       `json:"capacity,omitempty" validate:"omitempty,min=1,max=200"`
	Status    string     `json:"status,omitempty" validate:"omitempty,oneof=OPEN FULL CANCELLED COMPLETED CLOSED"`
}

// AcceptsEnrollments reports whether the session can still take participants
// or waiting-list entries.
func (s *ClassSession) AcceptsEnrollments() bool {
	return s.Status == SessionStatusOpen || s.Status == SessionStatusFull
}
