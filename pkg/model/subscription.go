package model

import "time"

const (
	SubscriptionStatusActive  = "ACTIVE"
	SubscriptionStatusFrozen  = "FROZEN"
	SubscriptionStatusExpired = "EXPIRED"
	SubscriptionStatusBlocked = "BLOCKED"
)

type Subscription struct {
	ID       string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	MemberID string `json:"member_id" bson:"member_id" validate:"required,uuid4"`
	PlanID   string `json:"plan_id" bson:"plan_id" validate:"required,uuid4"`
	// PlanType is denormalized from the plan at creation so priority scoring
	// does not need a second lookup.
	PlanType         string    `json:"plan_type" bson:"plan_type" validate:"required,oneof=MONTHLY YEARLY WEEKLY DAILY VIP"`
	Status           string    `json:"status" bson:"status" validate:"required,oneof=ACTIVE FROZEN EXPIRED BLOCKED"`
	StartDate        time.Time `json:"start_date" bson:"start_date" validate:"required"`
	EndDate          time.Time `json:"end_date" bson:"end_date" validate:"required,gtfield=StartDate"`
	RemainingEntries int       `json:"remaining_entries" bson:"remaining_entries" validate:"min=0"`
	// Unlimited subscriptions ignore RemainingEntries.
	Unlimited      bool      `json:"unlimited" bson:"unlimited"`
	Debt           float64   `json:"debt" bson:"debt" validate:"min=0"`
	FailedPayments int       `json:"failed_payments" bson:"failed_payments" validate:"min=0"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// IsActiveAt reports whether the subscription is usable at the given instant.
func (s *Subscription) IsActiveAt(t time.Time) bool {
	return s.Status == SubscriptionStatusActive &&
		!t.Before(s.StartDate) &&
		!t.After(s.EndDate)
}
