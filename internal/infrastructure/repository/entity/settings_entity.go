package entity

import (
	"time"

	"archie-core-forms-layer/internal/domain"
)

// MongoSettingsDoc represents per-form integration settings in MongoDB
type MongoSettingsDoc struct {
	FormID        string                 `bson:"formId"`
	IntegrationID string                 `bson:"integrationId"`
	Enabled       bool                   `bson:"enabled"`
	ObjectType    string                 `bson:"objectType,omitempty"`
	Options       domain.DispatchOptions `bson:"options"`
	CreatedAt     time.Time              `bson:"createdAt"`
	UpdatedAt     time.Time              `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoSettingsDoc) ToDomain() *domain.IntegrationSettings {
	return &domain.IntegrationSettings{
		FormID:        d.FormID,
		IntegrationID: d.IntegrationID,
		Enabled:       d.Enabled,
		ObjectType:    d.ObjectType,
		Options:       d.Options,
		UpdatedAt:     d.UpdatedAt,
	}
}

// MongoSettingsDocFromDomain converts a domain entity to a MongoDB document
func MongoSettingsDocFromDomain(settings *domain.IntegrationSettings) *MongoSettingsDoc {
	return &MongoSettingsDoc{
		FormID:        settings.FormID,
		IntegrationID: settings.IntegrationID,
		Enabled:       settings.Enabled,
		ObjectType:    settings.ObjectType,
		Options:       settings.Options,
		UpdatedAt:     settings.UpdatedAt,
	}
}
