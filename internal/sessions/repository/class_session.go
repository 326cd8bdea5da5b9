package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sessionerrors "gymflow/internal/sessions/errors"
	"gymflow/pkg/config"
	mongotx "gymflow/pkg/db/mongo"
	"gymflow/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SessionCollectionName = "Class_sessions"
)

type ClassSessionRepository interface {
	Create(ctx context.Context, session *model.ClassSession) error
	FindByID(ctx context.Context, id string) (*model.ClassSession, error)
	FindBetween(ctx context.Context, from, to time.Time, limit int, offset int64) ([]*model.ClassSession, int64, error)
	Update(ctx context.Context, id string, fields bson.M) error
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoClassSessionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoClassSessionRepository(cfg *config.Config) ClassSessionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoClassSessionRepository{
		cfg:        cfg,
		collection: db.Collection(SessionCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless already inside a
// transaction. SessionContext must pass through unchanged or transaction
// semantics break.
func (r *mongoClassSessionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoClassSessionRepository) Create(ctx context.Context, session *model.ClassSession) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to create class session: %w", err)
	}

	return nil
}

func (r *mongoClassSessionRepository) FindByID(ctx context.Context, id string) (*model.ClassSession, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var session model.ClassSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessionerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find class session: %w", err)
	}

	return &session, nil
}

// FindBetween returns sessions starting inside [from, to), ordered by start
// time. Backs the weekly schedule view.
func (r *mongoClassSessionRepository) FindBetween(ctx context.Context, from, to time.Time, limit int, offset int64) ([]*model.ClassSession, int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"start_time": bson.M{"$gte": from, "$lt": to},
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count class sessions: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find class sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.ClassSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, 0, fmt.Errorf("failed to decode class sessions: %w", err)
	}

	return sessions, total, nil
}

func (r *mongoClassSessionRepository) Update(ctx context.Context, id string, fields bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	fields["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update class session: %w", err)
	}

	if result.MatchedCount == 0 {
		return sessionerrors.ErrNotFound
	}

	return nil
}

func (r *mongoClassSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete class session: %w", err)
	}

	if result.DeletedCount == 0 {
		return sessionerrors.ErrNotFound
	}

	return nil
}

func (r *mongoClassSessionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
