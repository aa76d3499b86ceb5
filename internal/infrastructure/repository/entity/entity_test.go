package entity

import (
	"testing"
	"time"

	"archie-core-forms-layer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoMappingDoc_BSONKeys(t *testing.T) {
	mapping := domain.NewFieldMapping("form1", "hubspot", "contacts")
	mapping.Entries = []domain.MappingEntry{{FieldID: "f1", Property: "email", FieldLabel: "Email"}}
	mapping.UpdatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	raw, err := bson.Marshal(MongoMappingDocFromDomain(mapping))
	require.NoError(t, err)

	var generic bson.M
	require.NoError(t, bson.Unmarshal(raw, &generic))
	assert.Equal(t, "form1", generic["formId"])
	assert.Equal(t, "contacts", generic["objectType"])

	var doc MongoMappingDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := doc.ToDomain()
	assert.Equal(t, mapping.Entries, got.Entries)
	assert.True(t, mapping.UpdatedAt.Equal(got.UpdatedAt))
}

func TestMongoMappingDoc_FromDomainCopiesEntries(t *testing.T) {
	mapping := domain.NewFieldMapping("form1", "hubspot", "contacts")
	mapping.Set("f1", "email")

	doc := MongoMappingDocFromDomain(mapping)
	mapping.Set("f1", "firstname")

	assert.Equal(t, "email", doc.Entries[0].Property)
}

func TestMongoSettingsDoc_KeepsOptions(t *testing.T) {
	settings := &domain.IntegrationSettings{
		FormID:        "form1",
		IntegrationID: "hubspot",
		Enabled:       true,
		Options: domain.DispatchOptions{
			CreateOrUpdateContact: true,
			EnableCustomObjects:   true,
			CustomObjectConfigs: []domain.CustomObjectConfig{{
				ObjectName: "pets",
				Action:     domain.ActionUpdate,
				Mapping:    []domain.MappingEntry{{FieldID: "f2", Property: "pet_name"}},
			}},
		},
	}

	raw, err := bson.Marshal(MongoSettingsDocFromDomain(settings))
	require.NoError(t, err)
	var doc MongoSettingsDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))

	assert.Equal(t, settings.Options, doc.ToDomain().Options)
	assert.True(t, doc.ToDomain().Enabled)
}

func TestMongoCredentialsDoc_RoundTrip(t *testing.T) {
	creds := &domain.IntegrationCredentials{IntegrationID: "mailchimp", APIKey: "enc:key", ServerPrefix: "us21", AudienceID: "l1"}
	assert.Equal(t, creds, MongoCredentialsDocFromDomain(creds).ToDomain())
}
