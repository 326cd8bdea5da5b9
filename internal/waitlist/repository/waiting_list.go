package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	waitlisterrors "gymflow/internal/waitlist/errors"
	"gymflow/pkg/config"
	mongotx "gymflow/pkg/db/mongo"
	"gymflow/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Waiting_list"
)

// SessionDemand aggregates waiting pressure for one session.
type SessionDemand struct {
	SessionID       string    `bson:"_id"`
	WaitingCount    int64     `bson:"waiting_count"`
	OldestCreatedAt time.Time `bson:"oldest_created_at"`
}

type WaitingListRepository interface {
	Create(ctx context.Context, entry *model.WaitingListEntry) error
	FindByID(ctx context.Context, id string) (*model.WaitingListEntry, error)
	FindWaitingBySession(ctx context.Context, sessionID string) ([]*model.WaitingListEntry, error)
	FindAssignedBySession(ctx context.Context, sessionID string) (*model.WaitingListEntry, error)
	FindExpiredAssigned(ctx context.Context, sessionID string, now time.Time) ([]*model.WaitingListEntry, error)
	FindByMember(ctx context.Context, memberID string) ([]*model.WaitingListEntry, error)
	FindActiveBySessionAndMember(ctx context.Context, sessionID, memberID string) (*model.WaitingListEntry, error)
	Update(ctx context.Context, id string, fields bson.M) error
	ShiftPositions(ctx context.Context, sessionID string, fromPosition int, delta int) error
	CountWaiting(ctx context.Context, sessionID string) (int64, error)
	AggregateDemand(ctx context.Context) ([]*SessionDemand, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoWaitingListRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoWaitingListRepository(cfg *config.Config) WaitingListRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoWaitingListRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless already inside a
// transaction. SessionContext must pass through unchanged or transaction
// semantics break.
func (r *mongoWaitingListRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoWaitingListRepository) Create(ctx context.Context, entry *model.WaitingListEntry) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to create waiting list entry: %w", err)
	}

	return nil
}

func (r *mongoWaitingListRepository) FindByID(ctx context.Context, id string) (*model.WaitingListEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var entry model.WaitingListEntry
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, waitlisterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find waiting list entry: %w", err)
	}

	return &entry, nil
}

func (r *mongoWaitingListRepository) FindWaitingBySession(ctx context.Context, sessionID string) ([]*model.WaitingListEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"session_id": sessionID,
		"status":     model.WaitingStatusWaiting,
	}
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find waiting entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.WaitingListEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode waiting entries: %w", err)
	}

	return entries, nil
}

func (r *mongoWaitingListRepository) FindAssignedBySession(ctx context.Context, sessionID string) (*model.WaitingListEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"session_id": sessionID,
		"status":     model.WaitingStatusAssigned,
	}

	var entry model.WaitingListEntry
	err := r.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find assigned entry: %w", err)
	}

	return &entry, nil
}

func (r *mongoWaitingListRepository) FindExpiredAssigned(ctx context.Context, sessionID string, now time.Time) ([]*model.WaitingListEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":            model.WaitingStatusAssigned,
		"approval_deadline": bson.M{"$lt": now},
	}
	if sessionID != "" {
		filter["session_id"] = sessionID
	}
	opts := options.Find().SetSort(bson.D{{Key: "approval_deadline", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired assigned entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.WaitingListEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode expired assigned entries: %w", err)
	}

	return entries, nil
}

func (r *mongoWaitingListRepository) FindByMember(ctx context.Context, memberID string) ([]*model.WaitingListEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"member_id": memberID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find member entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.WaitingListEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode member entries: %w", err)
	}

	return entries, nil
}

func (r *mongoWaitingListRepository) FindActiveBySessionAndMember(ctx context.Context, sessionID, memberID string) (*model.WaitingListEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"session_id": sessionID,
		"member_id":  memberID,
		"status": bson.M{"$in": []string{
			model.WaitingStatusWaiting,
			model.WaitingStatusAssigned,
		}},
	}

	var entry model.WaitingListEntry
	err := r.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active entry: %w", err)
	}

	return &entry, nil
}

func (r *mongoWaitingListRepository) Update(ctx context.Context, id string, fields bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	fields["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update waiting list entry: %w", err)
	}

	if result.MatchedCount == 0 {
		return waitlisterrors.ErrNotFound
	}

	return nil
}

// ShiftPositions adds delta to the position of every WAITING entry of the
// session at or beyond fromPosition. Used to open a slot on insertion
// (delta=1) and close a gap on removal (delta=-1).
func (r *mongoWaitingListRepository) ShiftPositions(ctx context.Context, sessionID string, fromPosition int, delta int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"session_id": sessionID,
		"status":     model.WaitingStatusWaiting,
		"position":   bson.M{"$gte": fromPosition},
	}
	update := bson.M{
		"$inc": bson.M{"position": delta},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	_, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to shift positions: %w", err)
	}

	return nil
}

func (r *mongoWaitingListRepository) CountWaiting(ctx context.Context, sessionID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{
		"session_id": sessionID,
		"status":     model.WaitingStatusWaiting,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count waiting entries: %w", err)
	}

	return count, nil
}

// AggregateDemand groups WAITING entries per session with count and the
// oldest enqueue time.
func (r *mongoWaitingListRepository) AggregateDemand(ctx context.Context) ([]*SessionDemand, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": model.WaitingStatusWaiting}}},
		{{Key: "$group", Value: bson.M{
			"_id":               "$session_id",
			"waiting_count":     bson.M{"$sum": 1},
			"oldest_created_at": bson.M{"$min": "$created_at"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate demand: %w", err)
	}
	defer cursor.Close(ctx)

	var demands []*SessionDemand
	if err = cursor.All(ctx, &demands); err != nil {
		return nil, fmt.Errorf("failed to decode demand aggregation: %w", err)
	}

	return demands, nil
}

func (r *mongoWaitingListRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
