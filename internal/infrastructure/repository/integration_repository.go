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

// MongoCredentialsRepository implements CredentialsRepository using MongoDB.
// Secrets arrive already encrypted.
type MongoCredentialsRepository struct {
	collection *mongo.Collection
}

// NewMongoCredentialsRepository creates a new MongoDB credentials repository
func NewMongoCredentialsRepository(db *mongo.Database) ports.CredentialsRepository {
	return &MongoCredentialsRepository{
		collection: db.Collection(credentialsCollection),
	}
}

// Get retrieves the credentials of an integration
func (r *MongoCredentialsRepository) Get(ctx context.Context, integrationID string) (*domain.IntegrationCredentials, error) {
	var doc entity.MongoCredentialsDoc
	err := r.collection.FindOne(ctx, bson.M{"integrationId": integrationID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	return doc.ToDomain(), nil
}

// Save saves or replaces credentials
func (r *MongoCredentialsRepository) Save(ctx context.Context, creds *domain.IntegrationCredentials) error {
	doc := entity.MongoCredentialsDocFromDomain(creds)
	doc.UpdatedAt = time.Now()
	doc.CreatedAt = doc.UpdatedAt

	filter := bson.M{"integrationId": creds.IntegrationID}
	// keep the original createdAt across replacements
	var existing entity.MongoCredentialsDoc
	if err := r.collection.FindOne(ctx, filter).Decode(&existing); err == nil && !existing.CreatedAt.IsZero() {
		doc.CreatedAt = existing.CreatedAt
	}

	_, err := r.collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	return nil
}

// Delete deletes the credentials of an integration
func (r *MongoCredentialsRepository) Delete(ctx context.Context, integrationID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"integrationId": integrationID})
	if err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
