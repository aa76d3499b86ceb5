package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/infrastructure/repository/entity"
	"archie-core-forms-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	mappingsCollection    = "field_mappings"
	credentialsCollection = "integration_credentials"
	settingsCollection    = "form_integration_settings"
	dispatchLogCollection = "dispatch_log"
)

// EnsureIndexes creates the unique keys the upserts rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string]bson.D{
		mappingsCollection:    {{Key: "formId", Value: 1}, {Key: "integrationId", Value: 1}, {Key: "objectType", Value: 1}},
		credentialsCollection: {{Key: "integrationId", Value: 1}},
		settingsCollection:    {{Key: "formId", Value: 1}, {Key: "integrationId", Value: 1}},
	}
	for name, keys := range indexes {
		indexModel := mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true),
		}
		if _, err := db.Collection(name).Indexes().CreateOne(ctx, indexModel); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", name, err)
		}
	}

	logIndex := mongo.IndexModel{Keys: bson.D{{Key: "form_id", Value: 1}, {Key: "started_at", Value: -1}}}
	if _, err := db.Collection(dispatchLogCollection).Indexes().CreateOne(ctx, logIndex); err != nil {
		return fmt.Errorf("failed to create index on %s: %w", dispatchLogCollection, err)
	}
	return nil
}

// MongoMappingRepository implements MappingRepository using MongoDB
type MongoMappingRepository struct {
	collection *mongo.Collection
}

// NewMongoMappingRepository creates a new MongoDB mapping repository
func NewMongoMappingRepository(db *mongo.Database) ports.MappingRepository {
	return &MongoMappingRepository{
		collection: db.Collection(mappingsCollection),
	}
}

func mappingFilter(formID, integrationID, objectType string) bson.M {
	return bson.M{
		"formId":        formID,
		"integrationId": integrationID,
		"objectType":    objectType,
	}
}

// Get retrieves the mapping for a form, integration and object type
func (r *MongoMappingRepository) Get(ctx context.Context, formID, integrationID, objectType string) (*domain.FieldMapping, error) {
	var doc entity.MongoMappingDoc
	err := r.collection.FindOne(ctx, mappingFilter(formID, integrationID, objectType)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	return doc.ToDomain(), nil
}

// Save replaces the stored mapping as a whole
func (r *MongoMappingRepository) Save(ctx context.Context, mapping *domain.FieldMapping) error {
	doc := entity.MongoMappingDocFromDomain(mapping)
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}

	opts := options.Update().SetUpsert(true)
	filter := mappingFilter(mapping.FormID, mapping.IntegrationID, mapping.ObjectType)
	update := bson.M{
		"$set":         bson.M{"entries": doc.Entries, "updatedAt": doc.UpdatedAt},
		"$setOnInsert": bson.M{"createdAt": time.Now()},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	return nil
}

// Delete removes a mapping; deleting a missing mapping is not an error
func (r *MongoMappingRepository) Delete(ctx context.Context, formID, integrationID, objectType string) error {
	_, err := r.collection.DeleteOne(ctx, mappingFilter(formID, integrationID, objectType))
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	return nil
}

// ListObjectTypes returns the object types with a saved mapping for a form and integration
func (r *MongoMappingRepository) ListObjectTypes(ctx context.Context, formID, integrationID string) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "objectType", bson.M{"formId": formID, "integrationId": integrationID})
	if err != nil {
		return nil, fmt.Errorf("failed to list mapped object types: %w", err)
	}

	types := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			types = append(types, s)
		}
	}
	sort.Strings(types)
	return types, nil
}
