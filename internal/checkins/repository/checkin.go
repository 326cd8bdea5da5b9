package repository

import (
	"context"
	"fmt"
	"time"

	"gymflow/pkg/config"
	"gymflow/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Checkins"
)

type CheckinRepository interface {
	Create(ctx context.Context, checkin *model.Checkin) error
	FindByMember(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Checkin, int64, error)
}

type mongoCheckinRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCheckinRepository(cfg *config.Config) CheckinRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCheckinRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoCheckinRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoCheckinRepository) Create(ctx context.Context, checkin *model.Checkin) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if checkin.CreatedAt.IsZero() {
		checkin.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	_, err := r.collection.InsertOne(ctx, checkin)
	if err != nil {
		return fmt.Errorf("failed to create checkin: %w", err)
	}

	return nil
}

func (r *mongoCheckinRepository) FindByMember(ctx context.Context, memberID string, limit int, offset int64) ([]*model.Checkin, int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"member_id": memberID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count checkins: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find checkins: %w", err)
	}
	defer cursor.Close(ctx)

	var checkins []*model.Checkin
	if err = cursor.All(ctx, &checkins); err != nil {
		return nil, 0, fmt.Errorf("failed to decode checkins: %w", err)
	}

	return checkins, total, nil
}
