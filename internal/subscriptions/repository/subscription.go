package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	subscriptionerrors "gymflow/internal/subscriptions/errors"
	"gymflow/pkg/config"
	"gymflow/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SubscriptionCollectionName = "Subscriptions"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	FindByID(ctx context.Context, id string) (*model.Subscription, error)
	FindByMember(ctx context.Context, memberID string) ([]*model.Subscription, error)
	FindActiveByMember(ctx context.Context, memberID string, now time.Time) (*model.Subscription, error)
	CountActiveByPlan(ctx context.Context, planID string) (int64, error)
	Update(ctx context.Context, id string, fields bson.M) error
	DecrementEntries(ctx context.Context, id string) error
}

type mongoSubscriptionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSubscriptionRepository(cfg *config.Config) SubscriptionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSubscriptionRepository{
		cfg:        cfg,
		collection: db.Collection(SubscriptionCollectionName),
	}
}

func (r *mongoSubscriptionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoSubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, sub)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

func (r *mongoSubscriptionRepository) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var sub model.Subscription
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, subscriptionerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}

	return &sub, nil
}

func (r *mongoSubscriptionRepository) FindByMember(ctx context.Context, memberID string) ([]*model.Subscription, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"member_id": memberID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find member subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var subs []*model.Subscription
	if err = cursor.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("failed to decode member subscriptions: %w", err)
	}

	return subs, nil
}

// FindActiveByMember returns the member's subscription that is ACTIVE and
// inside its date range right now, or nil when there is none.
func (r *mongoSubscriptionRepository) FindActiveByMember(ctx context.Context, memberID string, now time.Time) (*model.Subscription, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"member_id":  memberID,
		"status":     model.SubscriptionStatusActive,
		"start_date": bson.M{"$lte": now},
		"end_date":   bson.M{"$gte": now},
	}

	var sub model.Subscription
	err := r.collection.FindOne(ctx, filter).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}

	return &sub, nil
}

func (r *mongoSubscriptionRepository) CountActiveByPlan(ctx context.Context, planID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{
		"plan_id": planID,
		"status":  model.SubscriptionStatusActive,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count plan subscriptions: %w", err)
	}

	return count, nil
}

func (r *mongoSubscriptionRepository) Update(ctx context.Context, id string, fields bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	fields["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	if result.MatchedCount == 0 {
		return subscriptionerrors.ErrNotFound
	}

	return nil
}

// DecrementEntries atomically consumes one entry from a limited
// subscription. The filter guards against going below zero.
func (r *mongoSubscriptionRepository) DecrementEntries(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":               id,
		"unlimited":         false,
		"remaining_entries": bson.M{"$gt": 0},
	}
	update := bson.M{
		"$inc": bson.M{"remaining_entries": -1},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement entries: %w", err)
	}

	if result.MatchedCount == 0 {
		return subscriptionerrors.ErrNotFound
	}

	return nil
}
