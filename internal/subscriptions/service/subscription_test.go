package service

import (
	"context"
	"errors"
	"testing"
	"time"

	subscriptionerrors "gymflow/internal/subscriptions/errors"
	"gymflow/pkg/config"
	apperrors "gymflow/pkg/errors"
	"gymflow/pkg/logger"
	"gymflow/pkg/model"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
)

// Mock repositories for testing
type mockSubscriptionRepository struct {
	createFunc      func(ctx context.Context, sub *model.Subscription) error
	findByIDFunc    func(ctx context.Context, id string) (*model.Subscription, error)
	findActiveFunc  func(ctx context.Context, memberID string, now time.Time) (*model.Subscription, error)
	countByPlanFunc func(ctx context.Context, planID string) (int64, error)
	updateFunc      func(ctx context.Context, id string, fields bson.M) error
	decrementFunc   func(ctx context.Context, id string) error
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, sub)
	}
	return nil
}

func (m *mockSubscriptionRepository) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.New("not configured")
}

func (m *mockSubscriptionRepository) FindByMember(ctx context.Context, memberID string) ([]*model.Subscription, error) {
	return []*model.Subscription{}, nil
}

func (m *mockSubscriptionRepository) FindActiveByMember(ctx context.Context, memberID string, now time.Time) (*model.Subscription, error) {
	if m.findActiveFunc != nil {
		return m.findActiveFunc(ctx, memberID, now)
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) CountActiveByPlan(ctx context.Context, planID string) (int64, error) {
	if m.countByPlanFunc != nil {
		return m.countByPlanFunc(ctx, planID)
	}
	return 0, nil
}

func (m *mockSubscriptionRepository) Update(ctx context.Context, id string, fields bson.M) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, fields)
	}
	return nil
}

func (m *mockSubscriptionRepository) DecrementEntries(ctx context.Context, id string) error {
	if m.decrementFunc != nil {
		return m.decrementFunc(ctx, id)
	}
	return nil
}

type mockPlanRepository struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Plan, error)
	deleteFunc   func(ctx context.Context, id string) error
}

func (m *mockPlanRepository) Create(ctx context.Context, plan *model.Plan) error {
	return nil
}

func (m *mockPlanRepository) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.New("not configured")
}

func (m *mockPlanRepository) FindAll(ctx context.Context) ([]*model.Plan, error) {
	return []*model.Plan{}, nil
}

func (m *mockPlanRepository) Update(ctx context.Context, id string, fields bson.M) error {
	return nil
}

func (m *mockPlanRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
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

const (
	testMemberID       = "7a6b5c4d-3e2f-4a1b-8c9d-0e1f2a3b4c5d"
	testPlanID         = "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee"
	testSubscriptionID = "11111111-2222-4333-8444-555555555555"
)

func newTestService(repo *mockSubscriptionRepository, planRepo *mockPlanRepository, members *mockMemberDirectory) *subscriptionService {
	return &subscriptionService{
		repo:     repo,
		planRepo: planRepo,
		members:  members,
		validate: validator.New(),
		cfg: &config.Config{
			Log: logger.New(logger.Config{
				Level:   logger.LevelError,
				Format:  logger.FormatJSON,
				Service: "test",
			}),
		},
	}
}

func monthlyPlan() *model.Plan {
	return &model.Plan{
		ID:           testPlanID,
		Name:         "Monthly Basic",
		Type:         model.PlanTypeMonthly,
		Price:        49.90,
		DurationDays: 30,
		Entries:      12,
	}
}

func TestCreate_DerivesFromPlan(t *testing.T) {
	planRepo := &mockPlanRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Plan, error) {
			return monthlyPlan(), nil
		},
	}

	var created *model.Subscription
	repo := &mockSubscriptionRepository{
		createFunc: func(ctx context.Context, sub *model.Subscription) error {
			created = sub
			return nil
		},
	}

	service := newTestService(repo, planRepo, &mockMemberDirectory{})

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sub, err := service.Create(context.Background(), &CreateSubscriptionInput{
		MemberID:  testMemberID,
		PlanID:    testPlanID,
		StartDate: start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sub.Status != model.SubscriptionStatusActive {
		t.Errorf("expected ACTIVE status, got %s", sub.Status)
	}
	if sub.PlanType != model.PlanTypeMonthly {
		t.Errorf("expected MONTHLY plan type, got %s", sub.PlanType)
	}
	wantEnd := start.AddDate(0, 0, 30)
	if !sub.EndDate.Equal(wantEnd) {
		t.Errorf("expected end date %v, got %v", wantEnd, sub.EndDate)
	}
	if sub.RemainingEntries != 12 {
		t.Errorf("expected 12 entries, got %d", sub.RemainingEntries)
	}
	if sub.Unlimited {
		t.Error("limited plan must not produce an unlimited subscription")
	}
	if created == nil {
		t.Error("subscription was not persisted")
	}
}

func TestCreate_ZeroEntriesMeansUnlimited(t *testing.T) {
	plan := monthlyPlan()
	plan.Entries = 0
	planRepo := &mockPlanRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Plan, error) {
			return plan, nil
		},
	}

	service := newTestService(&mockSubscriptionRepository{}, planRepo, &mockMemberDirectory{})

	sub, err := service.Create(context.Background(), &CreateSubscriptionInput{
		MemberID: testMemberID,
		PlanID:   testPlanID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sub.Unlimited {
		t.Error("zero-entry plan should produce an unlimited subscription")
	}
}

func TestCreate_ActiveSubscriptionConflicts(t *testing.T) {
	planRepo := &mockPlanRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Plan, error) {
			return monthlyPlan(), nil
		},
	}
	repo := &mockSubscriptionRepository{
		findActiveFunc: func(ctx context.Context, memberID string, now time.Time) (*model.Subscription, error) {
			return &model.Subscription{ID: "existing", Status: model.SubscriptionStatusActive}, nil
		},
	}

	service := newTestService(repo, planRepo, &mockMemberDirectory{})

	_, err := service.Create(context.Background(), &CreateSubscriptionInput{
		MemberID: testMemberID,
		PlanID:   testPlanID,
	})
	if err == nil {
		t.Fatal("expected conflict for member with active subscription")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected CONFLICT, got %s", appErr.Code)
	}
}

func TestFreeze_OnlyActiveSubscriptions(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		wantErr bool
	}{
		{"active freezes", model.SubscriptionStatusActive, false},
		{"frozen rejected", model.SubscriptionStatusFrozen, true},
		{"expired rejected", model.SubscriptionStatusExpired, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockSubscriptionRepository{
				findByIDFunc: func(ctx context.Context, id string) (*model.Subscription, error) {
					return &model.Subscription{ID: testSubscriptionID, Status: tt.status}, nil
				},
			}
			service := newTestService(repo, &mockPlanRepository{}, &mockMemberDirectory{})

			err := service.Freeze(context.Background(), testSubscriptionID)
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestUnfreeze_OnlyFrozenSubscriptions(t *testing.T) {
	repo := &mockSubscriptionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Subscription, error) {
			return &model.Subscription{ID: testSubscriptionID, Status: model.SubscriptionStatusActive}, nil
		},
	}
	service := newTestService(repo, &mockPlanRepository{}, &mockMemberDirectory{})

	err := service.Unfreeze(context.Background(), testSubscriptionID)
	if err == nil {
		t.Fatal("expected error unfreezing an active subscription")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidState {
		t.Errorf("expected INVALID_STATE, got %s", appErr.Code)
	}
}

func TestConsumeEntry_UnlimitedIsNoOp(t *testing.T) {
	repo := &mockSubscriptionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Subscription, error) {
			return &model.Subscription{ID: testSubscriptionID, Status: model.SubscriptionStatusActive, Unlimited: true}, nil
		},
		decrementFunc: func(ctx context.Context, id string) error {
			t.Error("unlimited subscription must not be decremented")
			return nil
		},
	}
	service := newTestService(repo, &mockPlanRepository{}, &mockMemberDirectory{})

	if err := service.ConsumeEntry(context.Background(), testSubscriptionID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConsumeEntry_ExhaustedReportsInvalidState(t *testing.T) {
	repo := &mockSubscriptionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Subscription, error) {
			return &model.Subscription{ID: testSubscriptionID, Status: model.SubscriptionStatusActive}, nil
		},
		decrementFunc: func(ctx context.Context, id string) error {
			return subscriptionerrors.ErrNotFound
		},
	}
	service := newTestService(repo, &mockPlanRepository{}, &mockMemberDirectory{})

	err := service.ConsumeEntry(context.Background(), testSubscriptionID)
	if err == nil {
		t.Fatal("expected error for exhausted subscription")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidState {
		t.Errorf("expected INVALID_STATE, got %s", appErr.Code)
	}
}

func TestDeletePlan_BlockedByActiveSubscriptions(t *testing.T) {
	repo := &mockSubscriptionRepository{
		countByPlanFunc: func(ctx context.Context, planID string) (int64, error) { return 4, nil },
	}
	service := newTestService(repo, &mockPlanRepository{}, &mockMemberDirectory{})

	err := service.DeletePlan(context.Background(), testPlanID)
	if err == nil {
		t.Fatal("expected conflict for plan in use")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected CONFLICT, got %s", appErr.Code)
	}
}
