package service

import (
	"context"
	"errors"

	trainererrors "gymflow/internal/trainers/errors"
	"gymflow/internal/trainers/repository"
	"gymflow/pkg/config"
	apperrors "gymflow/pkg/errors"
	"gymflow/pkg/model"
	"gymflow/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

type TrainerService interface {
	Create(ctx context.Context, trainer *model.Trainer) error
	GetByID(ctx context.Context, id string) (*model.Trainer, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Trainer, int64, error)
	Update(ctx context.Context, id string, updates *model.TrainerUpdate) (*model.Trainer, error)
	Delete(ctx context.Context, id string) error

	TrainerExists(ctx context.Context, trainerID string) (bool, error)
}

type trainerService struct {
	repo     repository.TrainerRepository
	validate *validator.Validate
	cfg      *config.Config
}

func NewTrainerService(repo repository.TrainerRepository, cfg *config.Config) TrainerService {
	return &trainerService{
		repo:     repo,
		validate: validator.New(),
		cfg:      cfg,
	}
}

func (s *trainerService) Create(ctx context.Context, trainer *model.Trainer) error {
	trainer.FirstName = sanitizer.SanitizeName(trainer.FirstName)
	trainer.LastName = sanitizer.SanitizeName(trainer.LastName)
	trainer.Email = sanitizer.SanitizeEmail(trainer.Email)

	if trainer.Phone != "" {
		normalized := sanitizer.NormalizePhone(trainer.Phone)
		if normalized == "" {
			return apperrors.InvalidInput(trainererrors.ErrInvalidPhone.Error())
		}
		trainer.Phone = normalized
	}

	if trainer.ID == "" {
		trainer.ID = uuid.New().String()
	}

	if err := s.validate.Struct(trainer); err != nil {
		return apperrors.Validation("Trainer validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Create(ctx, trainer); err != nil {
		s.cfg.Log.Error("Failed to create trainer", "email", trainer.Email, "error", err)
		return apperrors.Internal("Failed to create trainer", err)
	}

	s.cfg.Log.Info("Trainer created", "id", trainer.ID)
	return nil
}

func (s *trainerService) GetByID(ctx context.Context, id string) (*model.Trainer, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	trainer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, trainererrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Trainer", id)
		}
		return nil, apperrors.Internal("Failed to retrieve trainer", err)
	}

	return trainer, nil
}

func (s *trainerService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Trainer, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	trainers, total, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list trainers", err)
	}

	return trainers, total, nil
}

func (s *trainerService) Update(ctx context.Context, id string, updates *model.TrainerUpdate) (*model.Trainer, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	if updates.Phone != "" {
		normalized := sanitizer.NormalizePhone(updates.Phone)
		if normalized == "" {
			return nil, apperrors.InvalidInput(trainererrors.ErrInvalidPhone.Error())
		}
		updates.Phone = normalized
	}

	if err := s.validate.Struct(updates); err != nil {
		return nil, apperrors.Validation("Trainer validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	fields := bson.M{}
	if updates.FirstName != "" {
		fields["first_name"] = sanitizer.SanitizeName(updates.FirstName)
	}
	if updates.LastName != "" {
		fields["last_name"] = sanitizer.SanitizeName(updates.LastName)
	}
	if updates.Email != "" {
		fields["email"] = sanitizer.SanitizeEmail(updates.Email)
	}
	if updates.Phone != "" {
		fields["phone"] = updates.Phone
	}
	if updates.Specialization != "" {
		fields["specialization"] = updates.Specialization
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			if errors.Is(err, trainererrors.ErrNotFound) {
				return nil, apperrors.NotFoundWithID("Trainer", id)
			}
			return nil, apperrors.Internal("Failed to update trainer", err)
		}
	}

	trainer, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Trainer updated", "id", id)
	return trainer, nil
}

func (s *trainerService) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, trainererrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Trainer", id)
		}
		return apperrors.Internal("Failed to delete trainer", err)
	}

	s.cfg.Log.Info("Trainer deleted", "id", id)
	return nil
}

func (s *trainerService) TrainerExists(ctx context.Context, trainerID string) (bool, error) {
	return s.repo.Exists(ctx, trainerID)
}

func validateID(id string) error {
	if id == "" {
		return apperrors.InvalidInput("Trainer ID cannot be empty")
	}
	if err := uuid.Validate(id); err != nil {
		return apperrors.InvalidInput("Invalid Trainer ID format")
	}
	return nil
}
