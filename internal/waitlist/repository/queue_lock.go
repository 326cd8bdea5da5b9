package repository

import (
	"context"
	"time"

	"gymflow/pkg/config"
	"gymflow/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// QueueLockRepository provides advisory locks keyed by session id. A
// duplicate key error on Create means another request holds the queue.
type QueueLockRepository interface {
	Create(ctx context.Context, lock *model.QueueLock) (*model.QueueLock, error)
	Delete(ctx context.Context, lockID string) error
}

type mongoQueueLockRepository struct {
	collection *mongo.Collection
}

func NewQueueLockRepository(cfg *config.Config) QueueLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoQueueLockRepository{
		collection: db.Collection("Queue_locks"),
	}
}

// Returns duplicate key error if lock already exists
func (r *mongoQueueLockRepository) Create(ctx context.Context, lock *model.QueueLock) (*model.QueueLock, error) {
	lock.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		return nil, err
	}

	return lock, nil
}

func (r *mongoQueueLockRepository) Delete(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
