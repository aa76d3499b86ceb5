package shopify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"archie-core-forms-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport sends every request to the test server regardless of shop host
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	target, err := url.Parse(server.URL)
	require.NoError(t, err)
	return NewClientWithHTTPClient("", "", &http.Client{Transport: rewriteTransport{target: target}}, zerolog.Nop())
}

var testCreds = &domain.IntegrationCredentials{IntegrationID: "shopify", AccessToken: "shpat_1", ShopDomain: "acme"}

func TestClient_SearchByKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/customers/search.json"), r.URL.Path)
		assert.Equal(t, "email:a@example.com", r.URL.Query().Get("query"))
		assert.Equal(t, "shpat_1", r.Header.Get("X-Shopify-Access-Token"))
		_, _ = w.Write([]byte(`{"customers":[{"id":42,"email":"A@example.com","first_name":"Ada"}]}`))
	})

	record, err := client.SearchByKey(context.Background(), testCreds, domain.ObjectCustomers, PropEmail, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "42", record.ID)
	assert.Equal(t, "Ada", record.Properties[PropFirstName])
}

func TestClient_SearchByKey_NoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"customers":[]}`))
	})

	record, err := client.SearchByKey(context.Background(), testCreds, domain.ObjectCustomers, PropEmail, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestClient_CreateAndUpdate(t *testing.T) {
	var bodies []map[string]map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &body))
		bodies = append(bodies, body)
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/customers.json"):
			_, _ = w.Write([]byte(`{"customer":{"id":7,"email":"a@example.com"}}`))
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/customers/7.json"):
			_, _ = w.Write([]byte(`{"customer":{"id":7,"email":"a@example.com","last_name":"Lovelace"}}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	created, err := client.Create(context.Background(), testCreds, domain.ObjectCustomers, map[string]domain.Value{
		PropEmail: domain.StringValue("a@example.com"),
		PropTags:  domain.ListValue("newsletter", "vip"),
	})
	require.NoError(t, err)
	assert.Equal(t, "7", created.ID)

	updated, err := client.Update(context.Background(), testCreds, domain.ObjectCustomers, "7", map[string]domain.Value{
		PropLastName: domain.StringValue("Lovelace"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", updated.Properties[PropLastName])

	require.Len(t, bodies, 2)
	assert.Equal(t, "newsletter, vip", bodies[0]["customer"]["tags"])
	_, hasFirst := bodies[1]["customer"]["first_name"]
	assert.False(t, hasFirst, "update must only send mapped fields")
}

func TestClient_TestConnection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/shop.json"))
		_, _ = w.Write([]byte(`{"shop":{"id":99,"name":"Acme","myshopify_domain":"acme.myshopify.com"}}`))
	})

	info, err := client.TestConnection(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, "99", info.AccountID)
	assert.Equal(t, "Acme", info.AccountName)
}

func TestClient_ErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthenticated},
		{http.StatusForbidden, domain.ErrForbidden},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnprocessableEntity, domain.ErrValidationFailed},
		{http.StatusServiceUnavailable, domain.ErrRemoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"errors":"nope"}`))
			})

			_, err := client.TestConnection(context.Background(), testCreds)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_Unsupported(t *testing.T) {
	client := NewClient("", "", zerolog.Nop())

	assert.ErrorIs(t, client.Associate(context.Background(), testCreds, "customers", "1", "companies", "2"), domain.ErrUnsupported)
	assert.ErrorIs(t, client.Enroll(context.Background(), testCreds, "wf", "a@example.com"), domain.ErrUnsupported)

	_, err := client.FetchProperties(context.Background(), testCreds, "orders")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = client.TestConnection(context.Background(), &domain.IntegrationCredentials{AccessToken: "x"})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}
