package hubspot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"archie-core-forms-layer/internal/domain"
)

var standardTypes = []domain.ObjectTypeInfo{
	{Name: domain.ObjectContacts, Label: "Contacts"},
	{Name: domain.ObjectCompanies, Label: "Companies"},
	{Name: domain.ObjectDeals, Label: "Deals"},
	{Name: domain.ObjectTickets, Label: "Tickets"},
}

type schemaList struct {
	Results []struct {
		ID                 string `json:"id"`
		Name               string `json:"name"`
		ObjectTypeID       string `json:"objectTypeId"`
		FullyQualifiedName string `json:"fullyQualifiedName"`
		Labels             struct {
			Singular string `json:"singular"`
			Plural   string `json:"plural"`
		} `json:"labels"`
	} `json:"results"`
}

type propertyList struct {
	Results []struct {
		Name                 string `json:"name"`
		Label                string `json:"label"`
		Type                 string `json:"type"`
		FieldType            string `json:"fieldType"`
		Hidden               bool   `json:"hidden"`
		Calculated           bool   `json:"calculated"`
		ModificationMetadata struct {
			ReadOnlyValue bool `json:"readOnlyValue"`
		} `json:"modificationMetadata"`
	} `json:"results"`
}

type object struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type searchResponse struct {
	Total   int      `json:"total"`
	Results []object `json:"results"`
}

// ID returns the integration id
func (c *Client) ID() string { return domain.IntegrationHubSpot }

// ContactObjectType returns the contacts object type
func (c *Client) ContactObjectType() string { return domain.ObjectContacts }

// FetchObjectTypes lists the standard objects plus every custom schema of the account
func (c *Client) FetchObjectTypes(ctx context.Context, creds *domain.IntegrationCredentials) ([]domain.ObjectTypeInfo, error) {
	var schemas schemaList
	if err := c.do(ctx, "hubspot.fetchObjectTypes", creds, http.MethodGet, "/crm/v3/schemas", nil, &schemas); err != nil {
		return nil, err
	}

	types := make([]domain.ObjectTypeInfo, 0, len(standardTypes)+len(schemas.Results))
	types = append(types, standardTypes...)
	for _, s := range schemas.Results {
		label := s.Labels.Plural
		if label == "" {
			label = s.Labels.Singular
		}
		types = append(types, domain.ObjectTypeInfo{
			Name:   s.Name,
			Label:  label,
			ID:     s.ObjectTypeID,
			Custom: true,
		})
	}
	return types, nil
}

// FetchProperties returns the property schema of an object type.
// Hidden properties are left out; calculated ones are reported read-only.
func (c *Client) FetchProperties(ctx context.Context, creds *domain.IntegrationCredentials, objectType string) ([]domain.RemoteProperty, error) {
	const op = "hubspot.fetchProperties"
	path, err := c.objectTypePath(ctx, op, creds, objectType)
	if err != nil {
		return nil, err
	}

	var list propertyList
	if err := c.do(ctx, op, creds, http.MethodGet, "/crm/v3/properties/"+path, nil, &list); err != nil {
		return nil, err
	}

	props := make([]domain.RemoteProperty, 0, len(list.Results))
	for _, p := range list.Results {
		if p.Hidden {
			continue
		}
		props = append(props, domain.RemoteProperty{
			Name:     p.Name,
			Label:    p.Label,
			DataType: p.Type,
			ReadOnly: p.ModificationMetadata.ReadOnlyValue || p.Calculated,
			Required: path == domain.ObjectContacts && p.Name == "email",
		})
	}
	return props, nil
}

// SearchByKey finds the first record whose property equals value
func (c *Client) SearchByKey(ctx context.Context, creds *domain.IntegrationCredentials, objectType, key, value string) (*domain.RemoteRecord, error) {
	const op = "hubspot.search"
	path, err := c.objectTypePath(ctx, op, creds, objectType)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"filterGroups": []map[string]interface{}{{
			"filters": []map[string]string{{
				"propertyName": key,
				"operator":     "EQ",
				"value":        value,
			}},
		}},
		"properties": []string{key},
		"limit":      1,
	}
	var resp searchResponse
	if err := c.do(ctx, op, creds, http.MethodPost, "/crm/v3/objects/"+path+"/search", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return toRecord(resp.Results[0]), nil
}

// Create creates a record with the given properties
func (c *Client) Create(ctx context.Context, creds *domain.IntegrationCredentials, objectType string, properties map[string]domain.Value) (*domain.RemoteRecord, error) {
	const op = "hubspot.create"
	path, err := c.objectTypePath(ctx, op, creds, objectType)
	if err != nil {
		return nil, err
	}

	var created object
	body := map[string]interface{}{"properties": encodeProperties(properties)}
	if err := c.do(ctx, op, creds, http.MethodPost, "/crm/v3/objects/"+path, body, &created); err != nil {
		c.logger.Error().Err(err).Str("objectType", objectType).Msg("Failed to create HubSpot record")
		return nil, err
	}
	return toRecord(created), nil
}

// Update patches only the given properties of a record
func (c *Client) Update(ctx context.Context, creds *domain.IntegrationCredentials, objectType, id string, properties map[string]domain.Value) (*domain.RemoteRecord, error) {
	const op = "hubspot.update"
	path, err := c.objectTypePath(ctx, op, creds, objectType)
	if err != nil {
		return nil, err
	}

	var updated object
	body := map[string]interface{}{"properties": encodeProperties(properties)}
	if err := c.do(ctx, op, creds, http.MethodPatch, "/crm/v3/objects/"+path+"/"+url.PathEscape(id), body, &updated); err != nil {
		c.logger.Error().Err(err).Str("objectType", objectType).Str("id", id).Msg("Failed to update HubSpot record")
		return nil, err
	}
	if updated.ID == "" {
		updated.ID = id
	}
	return toRecord(updated), nil
}

// Associate creates the default association between two records
func (c *Client) Associate(ctx context.Context, creds *domain.IntegrationCredentials, fromType, fromID, toType, toID string) error {
	const op = "hubspot.associate"
	from, err := c.objectTypePath(ctx, op, creds, fromType)
	if err != nil {
		return err
	}
	to, err := c.objectTypePath(ctx, op, creds, toType)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/crm/v4/objects/%s/%s/associations/default/%s/%s",
		from, url.PathEscape(fromID), to, url.PathEscape(toID))
	return c.do(ctx, op, creds, http.MethodPut, path, nil, nil)
}

// Enroll adds a contact to a workflow by email
func (c *Client) Enroll(ctx context.Context, creds *domain.IntegrationCredentials, workflowID, email string) error {
	path := fmt.Sprintf("/automation/v2/workflows/%s/enrollments/contacts/%s", url.PathEscape(workflowID), url.PathEscape(email))
	return c.do(ctx, "hubspot.enroll", creds, http.MethodPost, path, nil, nil)
}

// TestConnection reads one contact and the account details
func (c *Client) TestConnection(ctx context.Context, creds *domain.IntegrationCredentials) (*domain.ConnectionInfo, error) {
	const op = "hubspot.testConnection"
	if err := c.do(ctx, op, creds, http.MethodGet, "/crm/v3/objects/contacts?limit=1", nil, nil); err != nil {
		return nil, err
	}

	var details struct {
		PortalID    int64  `json:"portalId"`
		AccountType string `json:"accountType"`
		UIDomain    string `json:"uiDomain"`
	}
	if err := c.do(ctx, op, creds, http.MethodGet, "/account-info/v3/details", nil, &details); err != nil {
		return nil, err
	}
	info := &domain.ConnectionInfo{
		IntegrationID: domain.IntegrationHubSpot,
		AccountName:   details.UIDomain,
		Detail:        details.AccountType,
	}
	if details.PortalID != 0 {
		info.AccountID = strconv.FormatInt(details.PortalID, 10)
	}
	return info, nil
}

// objectTypePath resolves an object type name, label or id to the identifier used in API paths
func (c *Client) objectTypePath(ctx context.Context, op string, creds *domain.IntegrationCredentials, objectType string) (string, error) {
	if domain.IsStandardObjectType(objectType) {
		return strings.ToLower(objectType), nil
	}

	key := accountFingerprint(creds) + ":" + strings.ToLower(objectType)
	c.mu.RLock()
	resolved, ok := c.resolvedTypes[key]
	c.mu.RUnlock()
	if ok {
		return resolved, nil
	}

	types, err := c.FetchObjectTypes(ctx, creds)
	if err != nil {
		return "", err
	}
	for _, t := range types {
		if !t.Custom || !t.Matches(objectType) {
			continue
		}
		resolved = t.ID
		if resolved == "" {
			resolved = t.Name
		}
		c.mu.Lock()
		c.resolvedTypes[key] = resolved
		c.mu.Unlock()
		return resolved, nil
	}
	return "", domain.NewError(domain.KindNotFound, op, "unknown object type "+objectType)
}

func accountFingerprint(creds *domain.IntegrationCredentials) string {
	sum := sha256.Sum256([]byte(creds.Token()))
	return hex.EncodeToString(sum[:8])
}

// encodeProperties renders values the way the CRM API expects them: strings, with ";" between multi-select options
func encodeProperties(properties map[string]domain.Value) map[string]string {
	out := make(map[string]string, len(properties))
	for name, value := range properties {
		out[name] = value.String()
	}
	return out
}

func toRecord(o object) *domain.RemoteRecord {
	return &domain.RemoteRecord{ID: o.ID, Properties: o.Properties}
}
