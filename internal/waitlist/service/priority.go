package service

import (
	"time"

	"gymflow/pkg/config"
	"gymflow/pkg/model"
)

// PriorityCalculator scores queue candidates. The base depends on the
// member's subscription tier; seniority accrues one point per whole hour
// spent waiting, so a long wait eventually outranks a fresher VIP only
// within the same tier band.
type PriorityCalculator struct {
	vipScore    int
	activeScore int
}

func NewPriorityCalculator(cfg *config.Config) *PriorityCalculator {
	return &PriorityCalculator{
		vipScore:    cfg.PriorityVIPScore,
		activeScore: cfg.PriorityActiveScore,
	}
}

// Score computes the current priority of an entry enqueued at enqueuedAt.
// sub may be nil when the member has no active subscription.
func (c *PriorityCalculator) Score(sub *model.Subscription, enqueuedAt, now time.Time) int {
	base := 0
	if sub != nil && sub.IsActiveAt(now) {
		if sub.PlanType == model.PlanTypeVIP {
			base = c.vipScore
		} else {
			base = c.activeScore
		}
	}

	waited := 0
	if now.After(enqueuedAt) {
		waited = int(now.Sub(enqueuedAt).Hours())
	}

	return base + waited
}
