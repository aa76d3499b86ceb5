package entity

import (
	"time"

	"archie-core-forms-layer/internal/domain"
)

// MongoCredentialsDoc represents encrypted integration credentials in MongoDB
type MongoCredentialsDoc struct {
	IntegrationID string    `bson:"integrationId"`
	APIKey        string    `bson:"apiKey,omitempty"`
	AccessToken   string    `bson:"accessToken,omitempty"`
	AccountID     string    `bson:"accountId,omitempty"`
	ServerPrefix  string    `bson:"serverPrefix,omitempty"`
	AudienceID    string    `bson:"audienceId,omitempty"`
	ShopDomain    string    `bson:"shopDomain,omitempty"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoCredentialsDoc) ToDomain() *domain.IntegrationCredentials {
	return &domain.IntegrationCredentials{
		IntegrationID: d.IntegrationID,
		APIKey:        d.APIKey,
		AccessToken:   d.AccessToken,
		AccountID:     d.AccountID,
		ServerPrefix:  d.ServerPrefix,
		AudienceID:    d.AudienceID,
		ShopDomain:    d.ShopDomain,
		UpdatedAt:     d.UpdatedAt,
	}
}

// MongoCredentialsDocFromDomain converts a domain entity to a MongoDB document
func MongoCredentialsDocFromDomain(creds *domain.IntegrationCredentials) *MongoCredentialsDoc {
	return &MongoCredentialsDoc{
		IntegrationID: creds.IntegrationID,
		APIKey:        creds.APIKey,
		AccessToken:   creds.AccessToken,
		AccountID:     creds.AccountID,
		ServerPrefix:  creds.ServerPrefix,
		AudienceID:    creds.AudienceID,
		ShopDomain:    creds.ShopDomain,
		UpdatedAt:     creds.UpdatedAt,
	}
}
