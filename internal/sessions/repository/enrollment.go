package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sessionerrors "gymflow/internal/sessions/errors"
	"gymflow/pkg/config"
	"gymflow/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EnrollmentCollectionName = "Enrollments"
)

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	FindByID(ctx context.Context, id string) (*model.Enrollment, error)
	FindRegisteredBySession(ctx context.Context, sessionID string) ([]*model.Enrollment, error)
	FindActiveBySessionAndMember(ctx context.Context, sessionID, memberID string) (*model.Enrollment, error)
	CountRegistered(ctx context.Context, sessionID string) (int64, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type mongoEnrollmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoEnrollmentRepository(cfg *config.Config) EnrollmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoEnrollmentRepository{
		cfg:        cfg,
		collection: db.Collection(EnrollmentCollectionName),
	}
}

func (r *mongoEnrollmentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoEnrollmentRepository) Create(ctx context.Context, enrollment *model.Enrollment) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, enrollment)
	if err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	return nil
}

func (r *mongoEnrollmentRepository) FindByID(ctx context.Context, id string) (*model.Enrollment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var enrollment model.Enrollment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&enrollment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessionerrors.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to find enrollment: %w", err)
	}

	return &enrollment, nil
}

func (r *mongoEnrollmentRepository) FindRegisteredBySession(ctx context.Context, sessionID string) ([]*model.Enrollment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"session_id": sessionID,
		"status":     model.EnrollmentStatusRegistered,
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find enrollments: %w", err)
	}
	defer cursor.Close(ctx)

	var enrollments []*model.Enrollment
	if err = cursor.All(ctx, &enrollments); err != nil {
		return nil, fmt.Errorf("failed to decode enrollments: %w", err)
	}

	return enrollments, nil
}

func (r *mongoEnrollmentRepository) FindActiveBySessionAndMember(ctx context.Context, sessionID, memberID string) (*model.Enrollment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"session_id": sessionID,
		"member_id":  memberID,
		"status":     model.EnrollmentStatusRegistered,
	}

	var enrollment model.Enrollment
	err := r.collection.FindOne(ctx, filter).Decode(&enrollment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active enrollment: %w", err)
	}

	return &enrollment, nil
}

func (r *mongoEnrollmentRepository) CountRegistered(ctx context.Context, sessionID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{
		"session_id": sessionID,
		"status":     model.EnrollmentStatusRegistered,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}

	return count, nil
}

func (r *mongoEnrollmentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update enrollment status: %w", err)
	}

	if result.MatchedCount == 0 {
		return sessionerrors.ErrEnrollmentNotFound
	}

	return nil
}
