package service

import (
	"context"
	"testing"
	"time"

	"gymflow/pkg/config"
	apperrors "gymflow/pkg/errors"
	"gymflow/pkg/logger"
	"gymflow/pkg/model"
)

// Mock collaborators for testing
type mockCheckinRepository struct {
	createFunc func(ctx context.Context, checkin *model.Checkin) error
}

func (m *mockCheckinRepository) Create(ctx context.Context, checkin *model.Checkin) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, checkin)
	}
	return nil
}

func (m *mockCheckinRepository) FindByMember(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Checkin, int64, error) {
	return []*model.Checkin{}, 0, nil
}

type mockMemberDirectory struct {
	existsFunc func(ctx context.Context, memberID string) (bool, error)
}

func (m *mockMemberDirectory) MemberExists(ctx context.Context, memberID string) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(ctx, memberID)
	}
	return true, nil
}

type mockSubscriptions struct {
	getFunc     func(ctx context.Context, memberID string) ([]*model.Subscription, error)
	consumeFunc func(ctx context.Context, subscriptionID string) error
}

func (m *mockSubscriptions) GetMemberSubscriptions(ctx context.Context, memberID string) ([]*model.Subscription, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, memberID)
	}
	return []*model.Subscription{}, nil
}

func (m *mockSubscriptions) ConsumeEntry(ctx context.Context, subscriptionID string) error {
	if m.consumeFunc != nil {
		return m.consumeFunc(ctx, subscriptionID)
	}
	return nil
}

const testMemberID = "7a6b5c4d-3e2f-4a1b-8c9d-0e1f2a3b4c5d"

func newTestService(repo *mockCheckinRepository, members *mockMemberDirectory, subs *mockSubscriptions, now time.Time) *checkinService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   logger.LevelError,
			Format:  logger.FormatJSON,
			Service: "test",
		}),
	}
	return &checkinService{
		repo:    repo,
		members: members,
		subs:    subs,
		cfg:     cfg,
		now:     func() time.Time { return now },
	}
}

func usableSubscription(now time.Time) *model.Subscription {
	return &model.Subscription{
		ID:               "sub-1",
		PlanType:         model.PlanTypeMonthly,
		Status:           model.SubscriptionStatusActive,
		StartDate:        now.Add(-10 * 24 * time.Hour),
		EndDate:          now.Add(20 * 24 * time.Hour),
		RemainingEntries: 5,
	}
}

func TestCheckIn_GateRules(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name       string
		subs       []*model.Subscription
		wantResult string
		wantReason string
	}{
		{
			name:       "no subscriptions",
			subs:       []*model.Subscription{},
			wantResult: model.CheckinResultDenied,
			wantReason: model.CheckinReasonNoSubscription,
		},
		{
			name: "frozen subscription",
			subs: []*model.Subscription{func() *model.Subscription {
				s := usableSubscription(now)
				s.Status = model.SubscriptionStatusFrozen
				return s
			}()},
			wantResult: model.CheckinResultDenied,
			wantReason: model.CheckinReasonFrozen,
		},
		{
			name: "expired status",
			subs: []*model.Subscription{func() *model.Subscription {
				s := usableSubscription(now)
				s.Status = model.SubscriptionStatusExpired
				return s
			}()},
			wantResult: model.CheckinResultDenied,
			wantReason: model.CheckinReasonNoSubscription,
		},
		{
			name: "out of date range",
			subs: []*model.Subscription{func() *model.Subscription {
				s := usableSubscription(now)
				s.EndDate = now.Add(-24 * time.Hour)
				return s
			}()},
			wantResult: model.CheckinResultDenied,
			wantReason: model.CheckinReasonOutOfRange,
		},
		{
			name: "outstanding debt",
			subs: []*model.Subscription{func() *model.Subscription {
				s := usableSubscription(now)
				s.Debt = 50
				return s
			}()},
			wantResult: model.CheckinResultDenied,
			wantReason: model.CheckinReasonDebt,
		},
		{
			name: "too many failed payments",
			subs: []*model.Subscription{func() *model.Subscription {
				s := usableSubscription(now)
				s.FailedPayments = 3
				return s
			}()},
			wantResult: model.CheckinResultDenied,
			wantReason: model.CheckinReasonFailedPayments,
		},
		{
			name: "no remaining entries",
			subs: []*model.Subscription{func() *model.Subscription {
				s := usableSubscription(now)
				s.RemainingEntries = 0
				return s
			}()},
			wantResult: model.CheckinResultDenied,
			wantReason: model.CheckinReasonNoEntries,
		},
		{
			name: "unlimited plan ignores entries",
			subs: []*model.Subscription{func() *model.Subscription {
				s := usableSubscription(now)
				s.Unlimited = true
				s.RemainingEntries = 0
				return s
			}()},
			wantResult: model.CheckinResultApproved,
			wantReason: "",
		},
		{
			name:       "healthy subscription",
			subs:       []*model.Subscription{usableSubscription(now)},
			wantResult: model.CheckinResultApproved,
			wantReason: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var recorded *model.Checkin
			repo := &mockCheckinRepository{
				createFunc: func(ctx context.Context, checkin *model.Checkin) error {
					recorded = checkin
					return nil
				},
			}
			subs := &mockSubscriptions{
				getFunc: func(ctx context.Context, memberID string) ([]*model.Subscription, error) {
					return tt.subs, nil
				},
			}

			service := newTestService(repo, &mockMemberDirectory{}, subs, now)

			checkin, err := service.CheckIn(context.Background(), testMemberID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if checkin.Result != tt.wantResult {
				t.Errorf("expected result %s, got %s", tt.wantResult, checkin.Result)
			}
			if checkin.Reason != tt.wantReason {
				t.Errorf("expected reason %q, got %q", tt.wantReason, checkin.Reason)
			}
			if recorded == nil {
				t.Error("check-in should be recorded regardless of outcome")
			}
		})
	}
}

func TestCheckIn_DebtChecksBeforeFailedPayments(t *testing.T) {
	now := time.Now().UTC()
	sub := usableSubscription(now)
	sub.Debt = 100
	sub.FailedPayments = 5

	subs := &mockSubscriptions{
		getFunc: func(ctx context.Context, memberID string) ([]*model.Subscription, error) {
			return []*model.Subscription{sub}, nil
		},
	}

	service := newTestService(&mockCheckinRepository{}, &mockMemberDirectory{}, subs, now)

	checkin, err := service.CheckIn(context.Background(), testMemberID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if checkin.Reason != model.CheckinReasonDebt {
		t.Errorf("expected OUTSTANDING_DEBT to win, got %s", checkin.Reason)
	}
}

func TestCheckIn_ApprovalConsumesEntry(t *testing.T) {
	now := time.Now().UTC()

	var consumedID string
	subs := &mockSubscriptions{
		getFunc: func(ctx context.Context, memberID string) ([]*model.Subscription, error) {
			return []*model.Subscription{usableSubscription(now)}, nil
		},
		consumeFunc: func(ctx context.Context, subscriptionID string) error {
			consumedID = subscriptionID
			return nil
		},
	}

	service := newTestService(&mockCheckinRepository{}, &mockMemberDirectory{}, subs, now)

	checkin, err := service.CheckIn(context.Background(), testMemberID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if checkin.Result != model.CheckinResultApproved {
		t.Fatalf("expected APPROVED, got %s", checkin.Result)
	}
	if consumedID != "sub-1" {
		t.Errorf("expected entry consumed from sub-1, got %q", consumedID)
	}
}

func TestCheckIn_DenialDoesNotConsumeEntry(t *testing.T) {
	now := time.Now().UTC()
	sub := usableSubscription(now)
	sub.RemainingEntries = 0

	subs := &mockSubscriptions{
		getFunc: func(ctx context.Context, memberID string) ([]*model.Subscription, error) {
			return []*model.Subscription{sub}, nil
		},
		consumeFunc: func(ctx context.Context, subscriptionID string) error {
			t.Error("denied check-in must not consume an entry")
			return nil
		},
	}

	service := newTestService(&mockCheckinRepository{}, &mockMemberDirectory{}, subs, now)

	if _, err := service.CheckIn(context.Background(), testMemberID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckIn_UnknownMember(t *testing.T) {
	now := time.Now().UTC()
	members := &mockMemberDirectory{
		existsFunc: func(ctx context.Context, memberID string) (bool, error) { return false, nil },
	}

	service := newTestService(&mockCheckinRepository{}, members, &mockSubscriptions{}, now)

	_, err := service.CheckIn(context.Background(), testMemberID)
	if err == nil {
		t.Fatal("expected error for unknown member")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", appErr.Code)
	}
}
