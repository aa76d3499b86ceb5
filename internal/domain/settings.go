package domain

import "time"

// IntegrationSettings is the per-form configuration of one integration
type IntegrationSettings struct {
	FormID        string          `json:"form_id"`
	IntegrationID string          `json:"integration_id"`
	Enabled       bool            `json:"enabled"`
	ObjectType    string          `json:"object_type,omitempty"` // contact object type; adapter default when empty
	Options       DispatchOptions `json:"options"`
	UpdatedAt     time.Time       `json:"updated_at,omitempty"`
}
