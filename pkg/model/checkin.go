package model

import "time"

const (
	CheckinResultApproved = "APPROVED"
	CheckinResultDenied   = "DENIED"
	CheckinResultPending  = "PENDING"
)

// Denial reasons recorded on a failed check-in.
const (
	CheckinReasonNoSubscription = "NO_ACTIVE_SUBSCRIPTION"
	CheckinReasonOutOfRange     = "SUBSCRIPTION_OUT_OF_RANGE"
	CheckinReasonFrozen         = "SUBSCRIPTION_FROZEN"
	CheckinReasonNoEntries      = "NO_REMAINING_ENTRIES"
	CheckinReasonDebt           = "OUTSTANDING_DEBT"
	CheckinReasonFailedPayments = "FAILED_PAYMENTS"
)

type Checkin struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	MemberID  string    `json:"member_id" bson:"member_id" validate:"required,uuid4"`
	Result    string    `json:"result" bson:"result" validate:"required,oneof=APPROVED DENIED PENDING"`
	Reason    string    `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
