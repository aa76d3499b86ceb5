package repository

import (
	"context"
	"fmt"
	"time"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/infrastructure/repository/entity"
	"archie-core-forms-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSettingsRepository implements SettingsRepository using MongoDB
type MongoSettingsRepository struct {
	collection *mongo.Collection
}

// NewMongoSettingsRepository creates a new MongoDB settings repository
func NewMongoSettingsRepository(db *mongo.Database) ports.SettingsRepository {
	return &MongoSettingsRepository{
		collection: db.Collection(settingsCollection),
	}
}

// Get retrieves the settings of one integration for a form
func (r *MongoSettingsRepository) Get(ctx context.Context, formID, integrationID string) (*domain.IntegrationSettings, error) {
	var doc entity.MongoSettingsDoc
	err := r.collection.FindOne(ctx, bson.M{"formId": formID, "integrationId": integrationID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return doc.ToDomain(), nil
}

// Save saves or updates settings
func (r *MongoSettingsRepository) Save(ctx context.Context, settings *domain.IntegrationSettings) error {
	doc := entity.MongoSettingsDocFromDomain(settings)
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"formId": settings.FormID, "integrationId": settings.IntegrationID}
	update := bson.M{
		"$set": bson.M{
			"enabled":    doc.Enabled,
			"objectType": doc.ObjectType,
			"options":    doc.Options,
			"updatedAt":  doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": time.Now()},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}

// ListByForm retrieves every integration's settings for a form
func (r *MongoSettingsRepository) ListByForm(ctx context.Context, formID string) ([]*domain.IntegrationSettings, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"formId": formID}, options.Find().SetSort(bson.D{{Key: "integrationId", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer cursor.Close(ctx)

	var all []*domain.IntegrationSettings
	for cursor.Next(ctx) {
		var doc entity.MongoSettingsDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode settings: %w", err)
		}
		all = append(all, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return all, nil
}
