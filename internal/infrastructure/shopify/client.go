package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"archie-core-forms-layer/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// Customer properties writable through the Admin REST API
const (
	PropEmail     = "email"
	PropFirstName = "first_name"
	PropLastName  = "last_name"
	PropPhone     = "phone"
	PropNote      = "note"
	PropTags      = "tags"
)

var customerProperties = []domain.RemoteProperty{
	{Name: PropEmail, Label: "Email", DataType: "string", Required: true},
	{Name: PropFirstName, Label: "First name", DataType: "string"},
	{Name: PropLastName, Label: "Last name", DataType: "string"},
	{Name: PropPhone, Label: "Phone", DataType: "string"},
	{Name: PropNote, Label: "Note", DataType: "string"},
	{Name: PropTags, Label: "Tags", DataType: "string"},
	{Name: "id", Label: "Customer ID", DataType: "number", ReadOnly: true},
	{Name: "orders_count", Label: "Orders count", DataType: "number", ReadOnly: true},
	{Name: "total_spent", Label: "Total spent", DataType: "string", ReadOnly: true},
}

// Client is the Shopify customers adapter
type Client struct {
	app        goshopify.App
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Shopify adapter. apiKey and apiSecret may be empty for custom-app tokens.
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) *Client {
	return NewClientWithHTTPClient(apiKey, apiSecret, nil, logger)
}

// NewClientWithHTTPClient creates a Shopify adapter using the given HTTP client
func NewClientWithHTTPClient(apiKey, apiSecret string, httpClient *http.Client, logger zerolog.Logger) *Client {
	return &Client{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		httpClient: httpClient,
		logger:     logger,
	}
}

// ID returns the integration id
func (c *Client) ID() string { return domain.IntegrationShopify }

// ContactObjectType returns the customers object type
func (c *Client) ContactObjectType() string { return domain.ObjectCustomers }

// createClient is a helper to create a goshopify client
func (c *Client) createClient(op string, creds *domain.IntegrationCredentials) (*goshopify.Client, error) {
	if creds.ShopDomain == "" {
		return nil, domain.NewError(domain.KindNotConfigured, op, "shop domain is not set")
	}
	var opts []goshopify.Option
	if c.httpClient != nil {
		opts = append(opts, goshopify.WithHTTPClient(c.httpClient))
	}
	client, err := goshopify.NewClient(c.app, creds.ShopDomain, creds.Token(), opts...)
	if err != nil {
		return nil, domain.WrapError(domain.KindNotConfigured, op, fmt.Errorf("failed to create client: %w", err))
	}
	return client, nil
}

// FetchObjectTypes returns the single customers object type
func (c *Client) FetchObjectTypes(_ context.Context, _ *domain.IntegrationCredentials) ([]domain.ObjectTypeInfo, error) {
	return []domain.ObjectTypeInfo{{Name: domain.ObjectCustomers, Label: "Customers"}}, nil
}

// FetchProperties returns the fixed customer field set
func (c *Client) FetchProperties(_ context.Context, _ *domain.IntegrationCredentials, objectType string) ([]domain.RemoteProperty, error) {
	if objectType != domain.ObjectCustomers {
		return nil, domain.NewError(domain.KindNotFound, "shopify.fetchProperties", "unknown object type "+objectType)
	}
	props := make([]domain.RemoteProperty, len(customerProperties))
	copy(props, customerProperties)
	return props, nil
}

// SearchByKey finds a customer using the customer search query syntax (key:value)
func (c *Client) SearchByKey(ctx context.Context, creds *domain.IntegrationCredentials, objectType, key, value string) (*domain.RemoteRecord, error) {
	const op = "shopify.search"
	if objectType != domain.ObjectCustomers {
		return nil, domain.NewError(domain.KindNotFound, op, "unknown object type "+objectType)
	}
	client, err := c.createClient(op, creds)
	if err != nil {
		return nil, err
	}

	customers, err := client.Customer.Search(ctx, goshopify.CustomerSearchOptions{Query: key + ":" + value})
	if err != nil {
		return nil, classifyError(op, err)
	}
	for _, customer := range customers {
		if key != PropEmail || strings.EqualFold(customer.Email, value) {
			return customerRecord(&customer), nil
		}
	}
	return nil, nil
}

// Create creates a customer
func (c *Client) Create(ctx context.Context, creds *domain.IntegrationCredentials, objectType string, properties map[string]domain.Value) (*domain.RemoteRecord, error) {
	const op = "shopify.create"
	if objectType != domain.ObjectCustomers {
		return nil, domain.NewError(domain.KindUnsupported, op, "only customers can be created")
	}
	client, err := c.createClient(op, creds)
	if err != nil {
		return nil, err
	}

	created, err := client.Customer.Create(ctx, buildCustomer(properties))
	if err != nil {
		c.logger.Error().Err(err).Str("shop", creds.ShopDomain).Msg("Failed to create customer")
		return nil, classifyError(op, err)
	}
	return customerRecord(created), nil
}

// Update patches a customer with the given properties only
func (c *Client) Update(ctx context.Context, creds *domain.IntegrationCredentials, objectType, id string, properties map[string]domain.Value) (*domain.RemoteRecord, error) {
	const op = "shopify.update"
	if objectType != domain.ObjectCustomers {
		return nil, domain.NewError(domain.KindUnsupported, op, "only customers can be updated")
	}
	customerID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, domain.NewError(domain.KindValidationFailed, op, "invalid customer id "+id)
	}
	client, err := c.createClient(op, creds)
	if err != nil {
		return nil, err
	}

	customer := buildCustomer(properties)
	customer.Id = customerID
	updated, err := client.Customer.Update(ctx, customer)
	if err != nil {
		c.logger.Error().Err(err).Str("shop", creds.ShopDomain).Str("customerId", id).Msg("Failed to update customer")
		return nil, classifyError(op, err)
	}
	return customerRecord(updated), nil
}

// Associate is not available for Shopify customers
func (c *Client) Associate(context.Context, *domain.IntegrationCredentials, string, string, string, string) error {
	return domain.WrapError(domain.KindUnsupported, "shopify.associate", domain.ErrUnsupported)
}

// Enroll is not available for Shopify customers
func (c *Client) Enroll(context.Context, *domain.IntegrationCredentials, string, string) error {
	return domain.WrapError(domain.KindUnsupported, "shopify.enroll", domain.ErrUnsupported)
}

// TestConnection fetches the shop, the lightest authenticated call
func (c *Client) TestConnection(ctx context.Context, creds *domain.IntegrationCredentials) (*domain.ConnectionInfo, error) {
	const op = "shopify.testConnection"
	client, err := c.createClient(op, creds)
	if err != nil {
		return nil, err
	}
	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		c.logger.Warn().Err(err).Str("shop", creds.ShopDomain).Msg("Token validation failed")
		return nil, classifyError(op, err)
	}
	return &domain.ConnectionInfo{
		IntegrationID: domain.IntegrationShopify,
		AccountID:     fmt.Sprintf("%d", shop.Id),
		AccountName:   shop.Name,
		Detail:        shop.MyshopifyDomain,
	}, nil
}

func buildCustomer(properties map[string]domain.Value) goshopify.Customer {
	var customer goshopify.Customer
	for name, value := range properties {
		switch name {
		case PropEmail:
			customer.Email = value.String()
		case PropFirstName:
			customer.FirstName = value.String()
		case PropLastName:
			customer.LastName = value.String()
		case PropPhone:
			customer.Phone = value.String()
		case PropNote:
			customer.Note = value.String()
		case PropTags:
			customer.Tags = strings.Join(value.List(), ", ")
		}
	}
	return customer
}

func customerRecord(customer *goshopify.Customer) *domain.RemoteRecord {
	if customer == nil {
		return nil
	}
	return &domain.RemoteRecord{
		ID: strconv.FormatUint(customer.Id, 10),
		Properties: map[string]string{
			PropEmail:     customer.Email,
			PropFirstName: customer.FirstName,
			PropLastName:  customer.LastName,
			PropPhone:     customer.Phone,
		},
	}
}
