package mailchimp

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"archie-core-forms-layer/internal/domain"
)

// PropEmail is the synthetic property carrying the member's email_address
const PropEmail = "email"

const (
	statusSubscribed = "subscribed"
	tagActive        = "active"
)

type mergeFieldList struct {
	MergeFields []struct {
		Tag      string `json:"tag"`
		Name     string `json:"name"`
		Type     string `json:"type"`
		Required bool   `json:"required"`
		Public   bool   `json:"public"`
	} `json:"merge_fields"`
}

type member struct {
	ID           string                 `json:"id"`
	EmailAddress string                 `json:"email_address"`
	Status       string                 `json:"status,omitempty"`
	MergeFields  map[string]interface{} `json:"merge_fields,omitempty"`
}

// SubscriberHash is the member id Mailchimp derives from an email address
func SubscriberHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// ID returns the integration id
func (c *Client) ID() string { return domain.IntegrationMailchimp }

// ContactObjectType returns the audience members object type
func (c *Client) ContactObjectType() string { return domain.ObjectMembers }

// FetchObjectTypes returns the single members object type
func (c *Client) FetchObjectTypes(_ context.Context, _ *domain.IntegrationCredentials) ([]domain.ObjectTypeInfo, error) {
	return []domain.ObjectTypeInfo{{Name: domain.ObjectMembers, Label: "Audience members"}}, nil
}

// FetchProperties returns the audience merge fields plus the member email
func (c *Client) FetchProperties(ctx context.Context, creds *domain.IntegrationCredentials, objectType string) ([]domain.RemoteProperty, error) {
	const op = "mailchimp.fetchProperties"
	list, err := audience(op, creds, objectType)
	if err != nil {
		return nil, err
	}

	var fields mergeFieldList
	if err := c.do(ctx, op, creds, http.MethodGet, "/lists/"+list+"/merge-fields?count=1000", nil, &fields); err != nil {
		return nil, err
	}

	props := make([]domain.RemoteProperty, 0, len(fields.MergeFields)+1)
	props = append(props, domain.RemoteProperty{Name: PropEmail, Label: "Email Address", DataType: "email", Required: true})
	for _, f := range fields.MergeFields {
		props = append(props, domain.RemoteProperty{
			Name:     f.Tag,
			Label:    f.Name,
			DataType: f.Type,
			Required: f.Required,
		})
	}
	return props, nil
}

// SearchByKey looks a member up by subscriber hash; only the email key is searchable
func (c *Client) SearchByKey(ctx context.Context, creds *domain.IntegrationCredentials, objectType, key, value string) (*domain.RemoteRecord, error) {
	const op = "mailchimp.search"
	list, err := audience(op, creds, objectType)
	if err != nil {
		return nil, err
	}
	if key != PropEmail {
		return nil, domain.NewError(domain.KindUnsupported, op, "members can only be searched by email")
	}

	var found member
	err = c.do(ctx, op, creds, http.MethodGet, "/lists/"+list+"/members/"+SubscriberHash(value), nil, &found)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toRecord(found), nil
}

// Create subscribes a new member
func (c *Client) Create(ctx context.Context, creds *domain.IntegrationCredentials, objectType string, properties map[string]domain.Value) (*domain.RemoteRecord, error) {
	const op = "mailchimp.create"
	list, err := audience(op, creds, objectType)
	if err != nil {
		return nil, err
	}
	body := buildMember(properties)
	if body.EmailAddress == "" {
		return nil, domain.NewError(domain.KindValidationFailed, op, "email address is required")
	}
	body.Status = statusSubscribed

	var created member
	if err := c.do(ctx, op, creds, http.MethodPost, "/lists/"+list+"/members", body, &created); err != nil {
		c.logger.Error().Err(err).Str("audience", list).Msg("Failed to create Mailchimp member")
		return nil, err
	}
	return toRecord(created), nil
}

// Update patches the given merge fields of a member; id is the subscriber hash
func (c *Client) Update(ctx context.Context, creds *domain.IntegrationCredentials, objectType, id string, properties map[string]domain.Value) (*domain.RemoteRecord, error) {
	const op = "mailchimp.update"
	list, err := audience(op, creds, objectType)
	if err != nil {
		return nil, err
	}

	var updated member
	if err := c.do(ctx, op, creds, http.MethodPatch, "/lists/"+list+"/members/"+url.PathEscape(id), buildMember(properties), &updated); err != nil {
		c.logger.Error().Err(err).Str("audience", list).Str("member", id).Msg("Failed to update Mailchimp member")
		return nil, err
	}
	if updated.ID == "" {
		updated.ID = id
	}
	return toRecord(updated), nil
}

// Associate is not available for audience members
func (c *Client) Associate(context.Context, *domain.IntegrationCredentials, string, string, string, string) error {
	return domain.WrapError(domain.KindUnsupported, "mailchimp.associate", domain.ErrUnsupported)
}

// Enroll applies the workflow id as an active tag, which starts tag-triggered journeys
func (c *Client) Enroll(ctx context.Context, creds *domain.IntegrationCredentials, workflowID, email string) error {
	const op = "mailchimp.enroll"
	list, err := audience(op, creds, domain.ObjectMembers)
	if err != nil {
		return err
	}
	body := map[string]interface{}{
		"tags": []map[string]string{{"name": workflowID, "status": tagActive}},
	}
	return c.do(ctx, op, creds, http.MethodPost, "/lists/"+list+"/members/"+SubscriberHash(email)+"/tags", body, nil)
}

// TestConnection pings the API and reads the account root
func (c *Client) TestConnection(ctx context.Context, creds *domain.IntegrationCredentials) (*domain.ConnectionInfo, error) {
	const op = "mailchimp.testConnection"
	var ping struct {
		HealthStatus string `json:"health_status"`
	}
	if err := c.do(ctx, op, creds, http.MethodGet, "/ping", nil, &ping); err != nil {
		return nil, err
	}

	var account struct {
		AccountID   string `json:"account_id"`
		AccountName string `json:"account_name"`
	}
	if err := c.do(ctx, op, creds, http.MethodGet, "/", nil, &account); err != nil {
		return nil, err
	}
	return &domain.ConnectionInfo{
		IntegrationID: domain.IntegrationMailchimp,
		AccountID:     account.AccountID,
		AccountName:   account.AccountName,
		Detail:        ping.HealthStatus,
	}, nil
}

func audience(op string, creds *domain.IntegrationCredentials, objectType string) (string, error) {
	if objectType != domain.ObjectMembers {
		return "", domain.NewError(domain.KindNotFound, op, "unknown object type "+objectType)
	}
	if creds == nil || creds.AudienceID == "" {
		return "", domain.NewError(domain.KindNotConfigured, op, "no audience selected")
	}
	return url.PathEscape(creds.AudienceID), nil
}

func buildMember(properties map[string]domain.Value) member {
	var m member
	for name, value := range properties {
		if name == PropEmail {
			m.EmailAddress = value.String()
			continue
		}
		if m.MergeFields == nil {
			m.MergeFields = make(map[string]interface{})
		}
		if value.Kind() == domain.ValueList {
			m.MergeFields[name] = strings.Join(value.List(), ", ")
			continue
		}
		m.MergeFields[name] = value.Raw()
	}
	return m
}

func toRecord(m member) *domain.RemoteRecord {
	props := map[string]string{PropEmail: m.EmailAddress}
	for tag, v := range m.MergeFields {
		if s, ok := v.(string); ok {
			props[tag] = s
		}
	}
	return &domain.RemoteRecord{ID: m.ID, Properties: props}
}
