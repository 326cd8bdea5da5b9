package service

import (
	"context"
	"errors"

	membererrors "gymflow/internal/members/errors"
	"gymflow/internal/members/repository"
	"gymflow/internal/members/validator"
	"gymflow/pkg/config"
	apperrors "gymflow/pkg/errors"
	"gymflow/pkg/model"
	"gymflow/pkg/sanitizer"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

type MemberService interface {
	Create(ctx context.Context, member *model.Member) error
	GetByID(ctx context.Context, id string) (*model.Member, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Member, int64, error)
	Update(ctx context.Context, id string, updates *model.MemberUpdate) (*model.Member, error)
	Delete(ctx context.Context, id string) error

	MemberExists(ctx context.Context, memberID string) (bool, error)
}

type memberService struct {
	repo      repository.MemberRepository
	validator *validator.MemberValidator
	cfg       *config.Config
}

func NewMemberService(repo repository.MemberRepository, validator *validator.MemberValidator, cfg *config.Config) MemberService {
	return &memberService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *memberService) Create(ctx context.Context, member *model.Member) error {
	member.FirstName = sanitizer.SanitizeName(member.FirstName)
	member.LastName = sanitizer.SanitizeName(member.LastName)
	member.Email = sanitizer.SanitizeEmail(member.Email)

	if member.Phone != "" {
		normalized := sanitizer.NormalizePhone(member.Phone)
		if normalized == "" {
			return apperrors.InvalidInput(membererrors.ErrInvalidPhone.Error())
		}
		member.Phone = normalized
	}

	if member.ID == "" {
		member.ID = uuid.New().String()
	}

	if err := s.validator.Validate(member); err != nil {
		return validationError(err)
	}

	existing, err := s.repo.FindByEmail(ctx, member.Email)
	if err != nil {
		return apperrors.Internal("Failed to check member email", err)
	}
	if existing != nil {
		return apperrors.Conflict(membererrors.ErrDuplicateEmail.Error())
	}

	if err := s.repo.Create(ctx, member); err != nil {
		s.cfg.Log.Error("Failed to create member", "email", member.Email, "error", err)
		return apperrors.Internal("Failed to create member", err)
	}

	s.cfg.Log.Info("Member created", "id", member.ID)
	return nil
}

func (s *memberService) GetByID(ctx context.Context, id string) (*model.Member, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, membererrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Member", id)
		}
		return nil, apperrors.Internal("Failed to retrieve member", err)
	}

	return member, nil
}

func (s *memberService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Member, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	members, total, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list members", err)
	}

	return members, total, nil
}

func (s *memberService) Update(ctx context.Context, id string, updates *model.MemberUpdate) (*model.Member, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	if updates.Phone != "" {
		normalized := sanitizer.NormalizePhone(updates.Phone)
		if normalized == "" {
			return nil, apperrors.InvalidInput(membererrors.ErrInvalidPhone.Error())
		}
		updates.Phone = normalized
	}
	if updates.Email != "" {
		updates.Email = sanitizer.SanitizeEmail(updates.Email)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, validationError(err)
	}

	fields := bson.M{}
	if updates.FirstName != "" {
		fields["first_name"] = sanitizer.SanitizeName(updates.FirstName)
	}
	if updates.LastName != "" {
		fields["last_name"] = sanitizer.SanitizeName(updates.LastName)
	}
	if updates.Email != "" {
		existing, err := s.repo.FindByEmail(ctx, updates.Email)
		if err != nil {
			return nil, apperrors.Internal("Failed to check member email", err)
		}
		if existing != nil && existing.ID != id {
			return nil, apperrors.Conflict(membererrors.ErrDuplicateEmail.Error())
		}
		fields["email"] = updates.Email
	}
	if updates.Phone != "" {
		fields["phone"] = updates.Phone
	}
	if updates.BirthDate != nil {
		fields["birth_date"] = *updates.BirthDate
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			if errors.Is(err, membererrors.ErrNotFound) {
				return nil, apperrors.NotFoundWithID("Member", id)
			}
			return nil, apperrors.Internal("Failed to update member", err)
		}
	}

	member, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Member updated", "id", id)
	return member, nil
}

func (s *memberService) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, membererrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Member", id)
		}
		return apperrors.Internal("Failed to delete member", err)
	}

	s.cfg.Log.Info("Member deleted", "id", id)
	return nil
}

// MemberExists backs the directory checks other services run before
// touching member-owned resources.
func (s *memberService) MemberExists(ctx context.Context, memberID string) (bool, error) {
	return s.repo.Exists(ctx, memberID)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Member validation failed", map[string]any{
			"errors": verrs,
		})
	}
	return apperrors.Validation(err.Error(), nil)
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
