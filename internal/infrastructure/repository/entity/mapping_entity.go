package entity

import (
	"time"

	"archie-core-forms-layer/internal/domain"
)

// MongoMappingDoc represents a field mapping in MongoDB
type MongoMappingDoc struct {
	FormID        string                `bson:"formId"`
	IntegrationID string                `bson:"integrationId"`
	ObjectType    string                `bson:"objectType"`
	Entries       []domain.MappingEntry `bson:"entries"`
	CreatedAt     time.Time             `bson:"createdAt"`
	UpdatedAt     time.Time             `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoMappingDoc) ToDomain() *domain.FieldMapping {
	mapping := domain.NewFieldMapping(d.FormID, d.IntegrationID, d.ObjectType)
	mapping.Entries = append(mapping.Entries, d.Entries...)
	mapping.UpdatedAt = d.UpdatedAt
	return mapping
}

// MongoMappingDocFromDomain converts a domain entity to a MongoDB document
func MongoMappingDocFromDomain(mapping *domain.FieldMapping) *MongoMappingDoc {
	entries := make([]domain.MappingEntry, len(mapping.Entries))
	copy(entries, mapping.Entries)
	return &MongoMappingDoc{
		FormID:        mapping.FormID,
		IntegrationID: mapping.IntegrationID,
		ObjectType:    mapping.ObjectType,
		Entries:       entries,
		UpdatedAt:     mapping.UpdatedAt,
	}
}
