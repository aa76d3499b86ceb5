package domain

import "time"

// Known integration identifiers
const (
	IntegrationHubSpot   = "hubspot"
	IntegrationMailchimp = "mailchimp"
	IntegrationShopify   = "shopify"
)

// Integration describes one registered connector and whether it is globally connected
type Integration struct {
	ID          string     `json:"id" bson:"_id"`
	Name        string     `json:"name" bson:"name"`
	Connected   bool       `json:"connected" bson:"connected"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
	ObjectTypes []string   `json:"object_types,omitempty" bson:"object_types,omitempty"`
}

// ConnectionInfo is returned by a successful connection test for user-facing confirmation
type ConnectionInfo struct {
	IntegrationID string `json:"integration_id"`
	AccountID     string `json:"account_id,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
	Detail        string `json:"detail,omitempty"`
}
