package service

import (
	"context"
	"errors"
	"time"

	subscriptionerrors "gymflow/internal/subscriptions/errors"
	"gymflow/internal/subscriptions/repository"
	"gymflow/pkg/config"
	apperrors "gymflow/pkg/errors"
	"gymflow/pkg/model"
	"gymflow/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// MemberDirectory answers member existence checks.
type MemberDirectory interface {
	MemberExists(ctx context.Context, memberID string) (bool, error)
}

// CreateSubscriptionInput names the fields a new subscription is derived
// from. Everything else comes from the plan.
type CreateSubscriptionInput struct {
	MemberID  string    `json:"member_id" validate:"required,uuid4"`
	PlanID    string    `json:"plan_id" validate:"required,uuid4"`
	StartDate time.Time `json:"start_date"`
}

type SubscriptionService interface {
	CreatePlan(ctx context.Context, plan *model.Plan) error
	GetPlan(ctx context.Context, id string) (*model.Plan, error)
	ListPlans(ctx context.Context) ([]*model.Plan, error)
	UpdatePlan(ctx context.Context, id string, updates *model.PlanUpdate) (*model.Plan, error)
	DeletePlan(ctx context.Context, id string) error

	Create(ctx context.Context, input *CreateSubscriptionInput) (*model.Subscription, error)
	GetByID(ctx context.Context, id string) (*model.Subscription, error)
	GetMemberSubscriptions(ctx context.Context, memberID string) ([]*model.Subscription, error)
	Freeze(ctx context.Context, id string) error
	Unfreeze(ctx context.Context, id string) error
	ConsumeEntry(ctx context.Context, id string) error

	ActiveSubscription(ctx context.Context, memberID string) (*model.Subscription, error)
}

type subscriptionService struct {
	repo     repository.SubscriptionRepository
	planRepo repository.PlanRepository
	members  MemberDirectory
	validate *validator.Validate
	cfg      *config.Config
}

func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	planRepo repository.PlanRepository,
	members MemberDirectory,
	cfg *config.Config,
) SubscriptionService {
	return &subscriptionService{
		repo:     repo,
		planRepo: planRepo,
		members:  members,
		validate: validator.New(),
		cfg:      cfg,
	}
}

// --- Plans ---

func (s *subscriptionService) CreatePlan(ctx context.Context, plan *model.Plan) error {
	plan.Name = sanitizer.SanitizeName(plan.Name)
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}

	if err := s.validate.Struct(plan); err != nil {
		return apperrors.Validation("Plan validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		s.cfg.Log.Error("Failed to create plan", "name", plan.Name, "error", err)
		return apperrors.Internal("Failed to create plan", err)
	}

	s.cfg.Log.Info("Plan created", "id", plan.ID, "type", plan.Type)
	return nil
}

func (s *subscriptionService) GetPlan(ctx context.Context, id string) (*model.Plan, error) {
	if err := validateID(id, "Plan"); err != nil {
		return nil, err
	}

	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, subscriptionerrors.ErrPlanNotFound) {
			return nil, apperrors.NotFoundWithID("Plan", id)
		}
		return nil, apperrors.Internal("Failed to retrieve plan", err)
	}

	return plan, nil
}

func (s *subscriptionService) ListPlans(ctx context.Context) ([]*model.Plan, error) {
	plans, err := s.planRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list plans", err)
	}
	return plans, nil
}

func (s *subscriptionService) UpdatePlan(ctx context.Context, id string, updates *model.PlanUpdate) (*model.Plan, error) {
	if err := validateID(id, "Plan"); err != nil {
		return nil, err
	}

	if err := s.validate.Struct(updates); err != nil {
		return nil, apperrors.Validation("Plan validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	fields := bson.M{}
	if updates.Name != "" {
		fields["name"] = sanitizer.SanitizeName(updates.Name)
	}
	if updates.Type != "" {
		fields["type"] = updates.Type
	}
	if updates.Price != nil {
		fields["price"] = *updates.Price
	}
	if updates.DurationDays != nil {
		fields["duration_days"] = *updates.DurationDays
	}
	if updates.Entries != nil {
		fields["entries"] = *updates.Entries
	}

	if len(fields) > 0 {
		if err := s.planRepo.Update(ctx, id, fields); err != nil {
			if errors.Is(err, subscriptionerrors.ErrPlanNotFound) {
				return nil, apperrors.NotFoundWithID("Plan", id)
			}
			return nil, apperrors.Internal("Failed to update plan", err)
		}
	}

	return s.GetPlan(ctx, id)
}

func (s *subscriptionService) DeletePlan(ctx context.Context, id string) error {
	if err := validateID(id, "Plan"); err != nil {
		return err
	}

	active, err := s.repo.CountActiveByPlan(ctx, id)
	if err != nil {
		return apperrors.Internal("Failed to count plan subscriptions", err)
	}
	if active > 0 {
		return apperrors.Conflict(subscriptionerrors.ErrPlanInUse.Error())
	}

	if err := s.planRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, subscriptionerrors.ErrPlanNotFound) {
			return apperrors.NotFoundWithID("Plan", id)
		}
		return apperrors.Internal("Failed to delete plan", err)
	}

	s.cfg.Log.Info("Plan deleted", "id", id)
	return nil
}

// --- Subscriptions ---

// Create derives a subscription from its plan: duration, entry allowance and
// the denormalized plan type all come from the plan snapshot at purchase.
func (s *subscriptionService) Create(ctx context.Context, input *CreateSubscriptionInput) (*model.Subscription, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Validation("Subscription validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	exists, err := s.members.MemberExists(ctx, input.MemberID)
	if err != nil {
		return nil, apperrors.Internal("Failed to verify member", err)
	}
	if !exists {
		return nil, apperrors.NotFoundWithID("Member", input.MemberID)
	}

	plan, err := s.GetPlan(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	start := input.StartDate
	if start.IsZero() {
		start = now
	}

	existing, err := s.repo.FindActiveByMember(ctx, input.MemberID, now)
	if err != nil {
		return nil, apperrors.Internal("Failed to check active subscription", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict(subscriptionerrors.ErrAlreadyActive.Error())
	}

	sub := &model.Subscription{
		ID:               uuid.New().String(),
		MemberID:         input.MemberID,
		PlanID:           plan.ID,
		PlanType:         plan.Type,
		Status:           model.SubscriptionStatusActive,
		StartDate:        start,
		EndDate:          start.AddDate(0, 0, plan.DurationDays),
		RemainingEntries: plan.Entries,
		Unlimited:        plan.Entries == 0,
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		s.cfg.Log.Error("Failed to create subscription",
			"member_id", input.MemberID,
			"plan_id", input.PlanID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create subscription", err)
	}

	s.cfg.Log.Info("Subscription created",
		"id", sub.ID,
		"member_id", sub.MemberID,
		"plan_type", sub.PlanType,
		"end_date", sub.EndDate,
	)
	return sub, nil
}

func (s *subscriptionService) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	if err := validateID(id, "Subscription"); err != nil {
		return nil, err
	}

	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, subscriptionerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Subscription", id)
		}
		return nil, apperrors.Internal("Failed to retrieve subscription", err)
	}

	return sub, nil
}

func (s *subscriptionService) GetMemberSubscriptions(ctx context.Context, memberID string) ([]*model.Subscription, error) {
	if err := validateID(memberID, "Member"); err != nil {
		return nil, err
	}

	subs, err := s.repo.FindByMember(ctx, memberID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list member subscriptions", err)
	}

	return subs, nil
}

func (s *subscriptionService) Freeze(ctx context.Context, id string) error {
	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status != model.SubscriptionStatusActive {
		return apperrors.InvalidState(subscriptionerrors.ErrNotFreezable.Error())
	}

	if err := s.repo.Update(ctx, id, bson.M{"status": model.SubscriptionStatusFrozen}); err != nil {
		return apperrors.Internal("Failed to freeze subscription", err)
	}

	s.cfg.Log.Info("Subscription frozen", "id", id)
	return nil
}

func (s *subscriptionService) Unfreeze(ctx context.Context, id string) error {
	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status != model.SubscriptionStatusFrozen {
		return apperrors.InvalidState(subscriptionerrors.ErrNotFrozen.Error())
	}

	if err := s.repo.Update(ctx, id, bson.M{"status": model.SubscriptionStatusActive}); err != nil {
		return apperrors.Internal("Failed to unfreeze subscription", err)
	}

	s.cfg.Log.Info("Subscription unfrozen", "id", id)
	return nil
}

// ConsumeEntry burns one entry from a limited subscription after an approved
// check-in. Unlimited subscriptions are left untouched.
func (s *subscriptionService) ConsumeEntry(ctx context.Context, id string) error {
	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub.Unlimited {
		return nil
	}

	if err := s.repo.DecrementEntries(ctx, id); err != nil {
		if errors.Is(err, subscriptionerrors.ErrNotFound) {
			return apperrors.InvalidState("Subscription has no remaining entries")
		}
		return apperrors.Internal("Failed to consume subscription entry", err)
	}

	return nil
}

// ActiveSubscription backs priority scoring and check-in decisions. Returns
// (nil, nil) when the member has no usable subscription right now.
func (s *subscriptionService) ActiveSubscription(ctx context.Context, memberID string) (*model.Subscription, error) {
	return s.repo.FindActiveByMember(ctx, memberID, time.Now().UTC())
}

func validateID(id, resource string) error {
	if id == "" {
		return apperrors.InvalidInput(resource + " ID cannot be empty")
	}
	if err := uuid.Validate(id); err != nil {
		return apperrors.InvalidInput("Invalid " + resource + " ID format")
	}
	return nil
}
