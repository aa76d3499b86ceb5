package hubspot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"archie-core-forms-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creds = &domain.IntegrationCredentials{IntegrationID: domain.IntegrationHubSpot, AccessToken: "pat-1"}

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewClientWithBaseURL(server.URL, server.Client(), zerolog.Nop())
}

const schemasJSON = `{"results":[{"name":"pets","objectTypeId":"2-123","labels":{"singular":"Pet","plural":"Pets"}}]}`

func TestFetchProperties(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /crm/v3/properties/contacts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pat-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"results":[
			{"name":"email","label":"Email","type":"string"},
			{"name":"hs_object_id","label":"Record ID","type":"number","modificationMetadata":{"readOnlyValue":true}},
			{"name":"score","label":"Score","type":"number","calculated":true},
			{"name":"secret","label":"Secret","type":"string","hidden":true}
		]}`))
	})
	client := newTestClient(t, mux)

	props, err := client.FetchProperties(context.Background(), creds, "contacts")
	require.NoError(t, err)
	require.Len(t, props, 3)
	assert.Equal(t, domain.RemoteProperty{Name: "email", Label: "Email", DataType: "string", Required: true}, props[0])
	assert.True(t, props[1].ReadOnly)
	assert.True(t, props[2].ReadOnly)
}

func TestFetchProperties_CustomObjectResolvedOnce(t *testing.T) {
	var schemaCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /crm/v3/schemas", func(w http.ResponseWriter, r *http.Request) {
		schemaCalls.Add(1)
		_, _ = w.Write([]byte(schemasJSON))
	})
	mux.HandleFunc("GET /crm/v3/properties/2-123", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"name":"pet_name","label":"Pet name","type":"string"}]}`))
	})
	client := newTestClient(t, mux)

	for _, name := range []string{"pets", "Pets", "pets"} {
		props, err := client.FetchProperties(context.Background(), creds, name)
		require.NoError(t, err)
		assert.Equal(t, "pet_name", props[0].Name)
	}
	// "pets" and "Pets" share one lowercased key
	assert.Equal(t, int32(1), schemaCalls.Load())

	_, err := client.FetchProperties(context.Background(), creds, "vehicles")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchObjectTypes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /crm/v3/schemas", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(schemasJSON))
	})
	client := newTestClient(t, mux)

	types, err := client.FetchObjectTypes(context.Background(), creds)
	require.NoError(t, err)
	require.Len(t, types, 5)
	assert.Equal(t, domain.ObjectTypeInfo{Name: "pets", Label: "Pets", ID: "2-123", Custom: true}, types[4])
}

func TestSearchCreateUpdate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /crm/v3/objects/contacts/search", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FilterGroups []struct {
				Filters []map[string]string `json:"filters"`
			} `json:"filterGroups"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		filter := body.FilterGroups[0].Filters[0]
		assert.Equal(t, "email", filter["propertyName"])
		assert.Equal(t, "EQ", filter["operator"])
		if filter["value"] == "known@example.com" {
			_, _ = w.Write([]byte(`{"total":1,"results":[{"id":"101","properties":{"email":"known@example.com"}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"total":0,"results":[]}`))
	})
	mux.HandleFunc("POST /crm/v3/objects/contacts", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Properties map[string]string `json:"properties"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a;b", body.Properties["interests"])
		assert.Equal(t, "true", body.Properties["consent"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"202","properties":{}}`))
	})
	mux.HandleFunc("PATCH /crm/v3/objects/contacts/101", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"101","properties":{"firstname":"Ada"}}`))
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	found, err := client.SearchByKey(ctx, creds, "contacts", "email", "known@example.com")
	require.NoError(t, err)
	assert.Equal(t, "101", found.ID)

	missing, err := client.SearchByKey(ctx, creds, "contacts", "email", "new@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := client.Create(ctx, creds, "contacts", map[string]domain.Value{
		"interests": domain.ListValue("a", "b"),
		"consent":   domain.BoolValue(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "202", created.ID)

	updated, err := client.Update(ctx, creds, "contacts", "101", map[string]domain.Value{"firstname": domain.StringValue("Ada")})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.Properties["firstname"])
}

func TestAssociateAndEnroll(t *testing.T) {
	var paths []string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.EscapedPath())
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	require.NoError(t, client.Associate(ctx, creds, "deals", "9", "contacts", "101"))
	require.NoError(t, client.Enroll(ctx, creds, "55", "a@example.com"))

	assert.Equal(t, []string{
		"PUT /crm/v4/objects/deals/9/associations/default/contacts/101",
		"POST /automation/v2/workflows/55/enrollments/contacts/a@example.com",
	}, paths)
}

func TestTestConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /crm/v3/objects/contacts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	mux.HandleFunc("GET /account-info/v3/details", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"portalId":4242,"accountType":"STANDARD","uiDomain":"app.hubspot.com"}`))
	})
	client := newTestClient(t, mux)

	info, err := client.TestConnection(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, "4242", info.AccountID)
	assert.Equal(t, "app.hubspot.com", info.AccountName)
	assert.Equal(t, "STANDARD", info.Detail)
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthenticated},
		{"forbidden", http.StatusForbidden, domain.ErrForbidden},
		{"not found", http.StatusNotFound, domain.ErrNotFound},
		{"bad request", http.StatusBadRequest, domain.ErrValidationFailed},
		{"rate limited", http.StatusTooManyRequests, domain.ErrRemoteUnavailable},
		{"server error", http.StatusBadGateway, domain.ErrRemoteUnavailable},
		{"teapot", http.StatusTeapot, domain.ErrRemoteUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"status":"error","message":"boom","category":"X"}`))
			})
			client := newTestClient(t, mux)

			_, err := client.FetchProperties(context.Background(), creds, "contacts")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "boom")
		})
	}
}

func TestTimeoutAndMissingToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	client := newTestClient(t, mux)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.FetchProperties(ctx, creds, "contacts")
	assert.ErrorIs(t, err, domain.ErrTimeout)

	_, err = client.FetchProperties(context.Background(), &domain.IntegrationCredentials{}, "contacts")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}
