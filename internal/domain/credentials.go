package domain

import (
	"strings"
	"time"
)

// IntegrationCredentials is the global (not per-form) secret bundle for one integration
type IntegrationCredentials struct {
	IntegrationID string    `json:"integration_id"`
	APIKey        string    `json:"api_key,omitempty"`
	AccessToken   string    `json:"access_token,omitempty"`
	AccountID     string    `json:"account_id,omitempty"`
	ServerPrefix  string    `json:"server_prefix,omitempty"` // Mailchimp data center, e.g. "us21"
	AudienceID    string    `json:"audience_id,omitempty"`   // Mailchimp list id
	ShopDomain    string    `json:"shop_domain,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// IsConnected reports whether any usable secret is present
func (c *IntegrationCredentials) IsConnected() bool {
	if c == nil {
		return false
	}
	return strings.TrimSpace(c.APIKey) != "" || strings.TrimSpace(c.AccessToken) != ""
}

// Token returns the bearer secret, preferring the access token over the API key
func (c *IntegrationCredentials) Token() string {
	if c == nil {
		return ""
	}
	if c.AccessToken != "" {
		return c.AccessToken
	}
	return c.APIKey
}

// Masked returns a copy safe for API responses and logs
func (c *IntegrationCredentials) Masked() *IntegrationCredentials {
	if c == nil {
		return nil
	}
	masked := *c
	masked.APIKey = maskSecret(c.APIKey)
	masked.AccessToken = maskSecret(c.AccessToken)
	return &masked
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
