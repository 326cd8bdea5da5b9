package service

import (
	"context"
	"time"

	"gymflow/internal/checkins/repository"
	"gymflow/pkg/config"
	apperrors "gymflow/pkg/errors"
	"gymflow/pkg/model"

	"github.com/google/uuid"
)

// MemberDirectory answers member existence checks.
type MemberDirectory interface {
	MemberExists(ctx context.Context, memberID string) (bool, error)
}

// Subscriptions is the subscription-side collaboration the gate needs.
type Subscriptions interface {
	GetMemberSubscriptions(ctx context.Context, memberID string) ([]*model.Subscription, error)
	ConsumeEntry(ctx context.Context, subscriptionID string) error
}

// Payment state beyond this many failures blocks the member at the gate.
const maxFailedPayments = 3

type CheckinService interface {
	CheckIn(ctx context.Context, memberID string) (*model.Checkin, error)
	History(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Checkin, int64, error)
}

type checkinService struct {
	repo    repository.CheckinRepository
	members MemberDirectory
	subs    Subscriptions
	cfg     *config.Config
	now     func() time.Time
}

func NewCheckinService(
	repo repository.CheckinRepository,
	members MemberDirectory,
	subs Subscriptions,
	cfg *config.Config,
) CheckinService {
	return &checkinService{
		repo:    repo,
		members: members,
		subs:    subs,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CheckIn runs the gate decision for a member. A denial is a successful
// operation: the outcome and reason are recorded and returned, not an error.
func (s *checkinService) CheckIn(ctx context.Context, memberID string) (*model.Checkin, error) {
	if err := validateID(memberID); err != nil {
		return nil, err
	}

	exists, err := s.members.MemberExists(ctx, memberID)
	if err != nil {
		return nil, apperrors.Internal("Failed to verify member", err)
	}
	if !exists {
		return nil, apperrors.NotFoundWithID("Member", memberID)
	}

	result, reason, sub := s.decide(ctx, memberID)

	checkin := &model.Checkin{
		ID:       uuid.New().String(),
		MemberID: memberID,
		Result:   result,
		Reason:   reason,
	}
	if err := s.repo.Create(ctx, checkin); err != nil {
		return nil, apperrors.Internal("Failed to record check-in", err)
	}

	if result == model.CheckinResultApproved && sub != nil {
		if err := s.subs.ConsumeEntry(ctx, sub.ID); err != nil {
			s.cfg.Log.Warn("Failed to consume subscription entry",
				"subscription_id", sub.ID,
				"member_id", memberID,
				"error", err,
			)
		}
	}

	s.cfg.Log.Info("Check-in processed",
		"member_id", memberID,
		"result", result,
		"reason", reason,
	)
	return checkin, nil
}

// decide walks the gate rules in order and returns the first failure, or
// APPROVED with the subscription to charge.
func (s *checkinService) decide(ctx context.Context, memberID string) (string, string, *model.Subscription) {
	subs, err := s.subs.GetMemberSubscriptions(ctx, memberID)
	if err != nil || len(subs) == 0 {
		return model.CheckinResultDenied, model.CheckinReasonNoSubscription, nil
	}

	now := s.now()

	// Most recent subscription decides; older ones are history.
	sub := subs[0]

	if sub.Status == model.SubscriptionStatusFrozen {
		return model.CheckinResultDenied, model.CheckinReasonFrozen, nil
	}
	if sub.Status != model.SubscriptionStatusActive {
		return model.CheckinResultDenied, model.CheckinReasonNoSubscription, nil
	}
	if now.Before(sub.StartDate) || now.After(sub.EndDate) {
		return model.CheckinResultDenied, model.CheckinReasonOutOfRange, nil
	}
	if sub.Debt > 0 {
		return model.CheckinResultDenied, model.CheckinReasonDebt, nil
	}
	if sub.FailedPayments >= maxFailedPayments {
		return model.CheckinResultDenied, model.CheckinReasonFailedPayments, nil
	}
	if !sub.Unlimited && sub.RemainingEntries <= 0 {
		return model.CheckinResultDenied, model.CheckinReasonNoEntries, nil
	}

	return model.CheckinResultApproved, "", sub
}

func (s *checkinService) History(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Checkin, int64, error) {
	if err := validateID(memberID); err != nil {
		return nil, 0, err
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	checkins, total, err := s.repo.FindByMember(ctx, memberID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to load check-in history", err)
	}

	return checkins, total, nil
}

func validateID(id string) error {
	if id == "" {
		return apperrors.InvalidInput("Member ID cannot be empty")
	}
	if err := uuid.Validate(id); err != nil {
		return apperrors.InvalidInput("Invalid Member ID format")
	}
	return nil
}
