package repository

import (
	"context"
	"fmt"

	"archie-core-forms-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDispatchLog records every dispatch result; it is registered as a dispatch observer
type MongoDispatchLog struct {
	collection *mongo.Collection
}

// NewMongoDispatchLog creates a new MongoDB dispatch log
func NewMongoDispatchLog(db *mongo.Database) *MongoDispatchLog {
	return &MongoDispatchLog{
		collection: db.Collection(dispatchLogCollection),
	}
}

// OnDispatch logs a dispatch result
func (r *MongoDispatchLog) OnDispatch(ctx context.Context, result *domain.DispatchResult) error {
	_, err := r.collection.InsertOne(ctx, result)
	if err != nil {
		return fmt.Errorf("failed to log dispatch: %w", err)
	}
	return nil
}

// ListByForm returns the most recent dispatch results for a form, newest first
func (r *MongoDispatchLog) ListByForm(ctx context.Context, formID string, limit int64) ([]*domain.DispatchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"form_id": formID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatches: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*domain.DispatchResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode dispatches: %w", err)
	}
	return results, nil
}
