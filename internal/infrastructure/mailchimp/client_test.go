package mailchimp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"archie-core-forms-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creds = &domain.IntegrationCredentials{
	IntegrationID: domain.IntegrationMailchimp,
	APIKey:        "abc123-us21",
	AudienceID:    "list1",
}

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewClientWithBaseURL(server.URL, server.Client(), zerolog.Nop())
}

func TestDataCenter(t *testing.T) {
	assert.Equal(t, "us21", DataCenter(&domain.IntegrationCredentials{APIKey: "abc-us21"}))
	assert.Equal(t, "us5", DataCenter(&domain.IntegrationCredentials{APIKey: "abc-us21", ServerPrefix: "us5"}))
	assert.Equal(t, "", DataCenter(&domain.IntegrationCredentials{APIKey: "abc"}))
	assert.Equal(t, "", DataCenter(nil))

	client := NewClient(zerolog.Nop())
	_, err := client.TestConnection(context.Background(), &domain.IntegrationCredentials{APIKey: "nodc"})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestSubscriberHash(t *testing.T) {
	// md5("urist.mcvankab@freddiesjokes.com")
	assert.Equal(t, "62eeb292278cc15f5817cb78f7790b08", SubscriberHash(" Urist.McVankab@freddiesjokes.com "))
}

func TestFetchProperties(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /lists/list1/merge-fields", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.NotEmpty(t, user)
		assert.Equal(t, "abc123-us21", pass)
		_, _ = w.Write([]byte(`{"merge_fields":[{"tag":"FNAME","name":"First Name","type":"text"},{"tag":"PHONE","name":"Phone","type":"phone","required":true}]}`))
	})
	client := newTestClient(t, mux)

	props, err := client.FetchProperties(context.Background(), creds, domain.ObjectMembers)
	require.NoError(t, err)
	require.Len(t, props, 3)
	assert.Equal(t, PropEmail, props[0].Name)
	assert.Equal(t, domain.RemoteProperty{Name: "FNAME", Label: "First Name", DataType: "text"}, props[1])
	assert.True(t, props[2].Required)

	_, err = client.FetchProperties(context.Background(), creds, "contacts")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = client.FetchProperties(context.Background(), &domain.IntegrationCredentials{APIKey: "k-us1"}, domain.ObjectMembers)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestSearchCreateUpdate(t *testing.T) {
	knownHash := SubscriberHash("known@example.com")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /lists/list1/members/{hash}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("hash") != knownHash {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"title":"Resource Not Found","status":404}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"` + knownHash + `","email_address":"known@example.com","merge_fields":{"FNAME":"Ada"}}`))
	})
	mux.HandleFunc("POST /lists/list1/members", func(w http.ResponseWriter, r *http.Request) {
		var body member
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "new@example.com", body.EmailAddress)
		assert.Equal(t, statusSubscribed, body.Status)
		assert.Equal(t, "red, blue", body.MergeFields["COLORS"])
		_, _ = w.Write([]byte(`{"id":"h2","email_address":"new@example.com"}`))
	})
	mux.HandleFunc("PATCH /lists/list1/members/{hash}", func(w http.ResponseWriter, r *http.Request) {
		var body member
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Empty(t, body.Status)
		assert.Equal(t, "Lovelace", body.MergeFields["LNAME"])
		_, _ = w.Write([]byte(`{"id":"` + r.PathValue("hash") + `","email_address":"known@example.com"}`))
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	found, err := client.SearchByKey(ctx, creds, domain.ObjectMembers, PropEmail, "Known@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, knownHash, found.ID)
	assert.Equal(t, "Ada", found.Properties["FNAME"])

	missing, err := client.SearchByKey(ctx, creds, domain.ObjectMembers, PropEmail, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = client.SearchByKey(ctx, creds, domain.ObjectMembers, "FNAME", "Ada")
	assert.ErrorIs(t, err, domain.ErrUnsupported)

	created, err := client.Create(ctx, creds, domain.ObjectMembers, map[string]domain.Value{
		PropEmail: domain.StringValue("new@example.com"),
		"COLORS":  domain.ListValue("red", "blue"),
	})
	require.NoError(t, err)
	assert.Equal(t, "h2", created.ID)

	_, err = client.Create(ctx, creds, domain.ObjectMembers, map[string]domain.Value{"FNAME": domain.StringValue("x")})
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	updated, err := client.Update(ctx, creds, domain.ObjectMembers, knownHash, map[string]domain.Value{"LNAME": domain.StringValue("Lovelace")})
	require.NoError(t, err)
	assert.Equal(t, knownHash, updated.ID)
}

func TestEnrollAppliesTag(t *testing.T) {
	hash := SubscriberHash("a@example.com")
	var got map[string][]map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /lists/list1/members/"+hash+"/tags", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, mux)

	require.NoError(t, client.Enroll(context.Background(), creds, "welcome-journey", "a@example.com"))
	assert.Equal(t, []map[string]string{{"name": "welcome-journey", "status": tagActive}}, got["tags"])

	assert.ErrorIs(t, client.Associate(context.Background(), creds, "members", "1", "companies", "2"), domain.ErrUnsupported)
}

func TestTestConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"health_status":"Everything's Chimpy!"}`))
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"account_id":"acc1","account_name":"Acme"}`))
	})
	client := newTestClient(t, mux)

	info, err := client.TestConnection(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, "acc1", info.AccountID)
	assert.Equal(t, "Acme", info.AccountName)
	assert.Equal(t, "Everything's Chimpy!", info.Detail)
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthenticated},
		{http.StatusForbidden, domain.ErrForbidden},
		{http.StatusBadRequest, domain.ErrValidationFailed},
		{http.StatusTooManyRequests, domain.ErrRemoteUnavailable},
		{http.StatusInternalServerError, domain.ErrRemoteUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"title":"Nope","detail":"API Key Invalid"}`))
			})
			client := newTestClient(t, mux)

			_, err := client.TestConnection(context.Background(), creds)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "API Key Invalid")
		})
	}
}
