package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	trainererrors "gymflow/internal/trainers/errors"
	"gymflow/pkg/config"
	"gymflow/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Trainers"
)

type TrainerRepository interface {
	Create(ctx context.Context, trainer *model.Trainer) error
	FindByID(ctx context.Context, id string) (*model.Trainer, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Trainer, int64, error)
	Update(ctx context.Context, id string, fields bson.M) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

type mongoTrainerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTrainerRepository(cfg *config.Config) TrainerRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTrainerRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoTrainerRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoTrainerRepository) Create(ctx context.Context, trainer *model.Trainer) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	if trainer.CreatedAt.IsZero() {
		trainer.CreatedAt = now
	}
	trainer.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, trainer)
	if err != nil {
		return fmt.Errorf("failed to create trainer: %w", err)
	}

	return nil
}

func (r *mongoTrainerRepository) FindByID(ctx context.Context, id string) (*model.Trainer, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var trainer model.Trainer
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trainer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, trainererrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find trainer: %w", err)
	}

	return &trainer, nil
}

func (r *mongoTrainerRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Trainer, int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count trainers: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "last_name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find trainers: %w", err)
	}
	defer cursor.Close(ctx)

	var trainers []*model.Trainer
	if err = cursor.All(ctx, &trainers); err != nil {
		return nil, 0, fmt.Errorf("failed to decode trainers: %w", err)
	}

	return trainers, total, nil
}

func (r *mongoTrainerRepository) Update(ctx context.Context, id string, fields bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	fields["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update trainer: %w", err)
	}

	if result.MatchedCount == 0 {
		return trainererrors.ErrNotFound
	}

	return nil
}

func (r *mongoTrainerRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete trainer: %w", err)
	}

	if result.DeletedCount == 0 {
		return trainererrors.ErrNotFound
	}

	return nil
}

func (r *mongoTrainerRepository) Exists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check trainer existence: %w", err)
	}

	return count > 0, nil
}
