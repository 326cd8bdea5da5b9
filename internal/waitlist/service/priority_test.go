package service

import (
	"testing"
	"time"

	"gymflow/pkg/model"
)

func testCalculator() *PriorityCalculator {
	return &PriorityCalculator{vipScore: 1000, activeScore: 100}
}

func subscription(planType, status string, start, end time.Time) *model.Subscription {
	return &model.Subscription{
		ID:        "sub-1",
		PlanType:  planType,
		Status:    status,
		StartDate: start,
		EndDate:   end,
	}
}

func TestScore_TierBases(t *testing.T) {
	calc := testCalculator()
	now := time.Now().UTC()
	start := now.Add(-24 * time.Hour)
	end := now.Add(24 * time.Hour)

	tests := []struct {
		name string
		sub  *model.Subscription
		want int
	}{
		{"no subscription", nil, 0},
		{"vip", subscription(model.PlanTypeVIP, model.SubscriptionStatusActive, start, end), 1000},
		{"monthly", subscription(model.PlanTypeMonthly, model.SubscriptionStatusActive, start, end), 100},
		{"frozen counts as none", subscription(model.PlanTypeVIP, model.SubscriptionStatusFrozen, start, end), 0},
		{"lapsed counts as none", subscription(model.PlanTypeVIP, model.SubscriptionStatusActive, start.Add(-72*time.Hour), now.Add(-48*time.Hour)), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Score(tt.sub, now, now)
			if got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScore_SeniorityAccruesPerWholeHour(t *testing.T) {
	calc := testCalculator()
	now := time.Now().UTC()

	tests := []struct {
		name       string
		enqueuedAt time.Time
		want       int
	}{
		{"just enqueued", now, 0},
		{"59 minutes", now.Add(-59 * time.Minute), 0},
		{"one hour", now.Add(-time.Hour), 1},
		{"90 minutes rounds down", now.Add(-90 * time.Minute), 1},
		{"two days", now.Add(-48 * time.Hour), 48},
		{"clock skew never negative", now.Add(time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Score(nil, tt.enqueuedAt, now)
			if got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScore_BaseAndSeniorityCombine(t *testing.T) {
	calc := testCalculator()
	now := time.Now().UTC()
	sub := subscription(model.PlanTypeVIP, model.SubscriptionStatusActive, now.Add(-30*24*time.Hour), now.Add(30*24*time.Hour))

	got := calc.Score(sub, now.Add(-5*time.Hour), now)
	if got != 1005 {
		t.Errorf("Score() = %d, want 1005", got)
	}
}
