package model

import "time"

// Plan types. VIP carries the highest waiting-list priority.
const (
	PlanTypeMonthly = "MONTHLY"
	PlanTypeYearly  = "YEARLY"
	PlanTypeWeekly  = "WEEKLY"
	PlanTypeDaily   = "DAILY"
	PlanTypeVIP     = "VIP"
)

type Plan struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	Name         string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Type         string    `json:"type" bson:"type" validate:"required,oneof=MONTHLY YEARLY WEEKLY DAILY VIP"`
	Price        float64   `json:"price" bson:"price" validate:"required,gt=0"`
	DurationDays int       `json:"duration_days" bson:"duration_days" validate:"required,min=1"`
	// Entries granted for the plan period. 0 means unlimited.
	Entries   int       `json:"entries" bson:"entries" validate:"min=0"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type PlanUpdate struct {
	Name         string   `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Type         string   `json:"type,omitempty" validate:"omitempty,oneof=MONTHLY YEARLY WEEKLY DAILY VIP"`
	Price        *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	DurationDays *int     `json:"duration_days,omitempty" validate:"omitempty,min=1"`
	Entries      *int     `json:"entries,omitempty" validate:"omitempty,min=0"`
}
