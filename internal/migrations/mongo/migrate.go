package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gymflow/internal/migrations/mongo/validators"
)

const (
	DB_NAME = "gymflow"
)

var (
	MembersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "phone", Value: 1}}},
	}

	TrainersIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "last_name", Value: 1}}},
	}

	PlansIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "type", Value: 1}}},
	}

	SubscriptionsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "member_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "start_date", Value: 1},
			{Key: "end_date", Value: 1},
		}},
		{Keys: bson.D{{Key: "plan_id", Value: 1}, {Key: "status", Value: 1}}},
	}

	ClassSessionsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "start_time", Value: 1}}},
		{Keys: bson.D{{Key: "trainer_id", Value: 1}, {Key: "start_time", Value: 1}}},
	}

	EnrollmentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "session_id", Value: 1}}},
	}

	WaitingListIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "session_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "position", Value: 1},
		}},
		{Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "approval_deadline", Value: 1}}},
	}

	// Abandoned locks fall off once the TTL monitor catches up.
	QueueLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	CheckinsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client) error {
	db := client.Database(DB_NAME)
	fmt.Printf("🚀 Running GymFlow Mongo migrations on database: %s\n", DB_NAME)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Members": {
			Indexes: MembersIndexes,
		},
		"Trainers": {
			Indexes: TrainersIndexes,
		},
		"Plans": {
			Indexes: PlansIndexes,
		},
		"Subscriptions": {
			Indexes:   SubscriptionsIndexes,
			Validator: validators.SubscriptionValidator,
		},
		"Class_sessions": {
			Indexes:   ClassSessionsIndexes,
			Validator: validators.ClassSessionValidator,
		},
		"Enrollments": {
			Indexes: EnrollmentsIndexes,
		},
		"Waiting_list": {
			Indexes:   WaitingListIndexes,
			Validator: validators.WaitingListValidator,
		},
		"Queue_locks": {
			Indexes: QueueLocksIndexes,
		},
		"Checkins": {
			Indexes: CheckinsIndexes,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts = opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else if validator != nil {
		fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
