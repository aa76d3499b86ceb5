package repository

import (
	"context"
	"testing"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.MappingRepository     = (*MemoryMappingRepository)(nil)
	_ ports.CredentialsRepository = (*MemoryCredentialsRepository)(nil)
	_ ports.SettingsRepository    = (*MemorySettingsRepository)(nil)
	_ ports.DispatchLog           = (*MemoryDispatchLog)(nil)
	_ ports.DispatchLog           = (*MongoDispatchLog)(nil)
	_ ports.DispatchLog           = (*PostgresDispatchLog)(nil)
)

func TestMemoryMappingRepository_IsolatesCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMappingRepository()

	mapping := domain.NewFieldMapping("form1", "hubspot", "contacts")
	mapping.Set("f1", "email")
	require.NoError(t, repo.Save(ctx, mapping))
	mapping.Set("f1", "firstname")

	got, err := repo.Get(ctx, "form1", "hubspot", "contacts")
	require.NoError(t, err)
	prop, _ := got.Get("f1")
	assert.Equal(t, "email", prop)

	require.NoError(t, repo.Save(ctx, domain.NewFieldMapping("form1", "hubspot", "deals")))
	require.NoError(t, repo.Save(ctx, domain.NewFieldMapping("form2", "hubspot", "tickets")))
	types, err := repo.ListObjectTypes(ctx, "form1", "hubspot")
	require.NoError(t, err)
	assert.Equal(t, []string{"contacts", "deals"}, types)

	require.NoError(t, repo.Delete(ctx, "form1", "hubspot", "contacts"))
	got, err = repo.Get(ctx, "form1", "hubspot", "contacts")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySettingsRepository_ListByForm(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySettingsRepository()
	require.NoError(t, repo.Save(ctx, &domain.IntegrationSettings{FormID: "form1", IntegrationID: "shopify"}))
	require.NoError(t, repo.Save(ctx, &domain.IntegrationSettings{FormID: "form1", IntegrationID: "hubspot", Enabled: true}))
	require.NoError(t, repo.Save(ctx, &domain.IntegrationSettings{FormID: "form2", IntegrationID: "hubspot"}))

	all, err := repo.ListByForm(ctx, "form1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "hubspot", all[0].IntegrationID)
	assert.Equal(t, "shopify", all[1].IntegrationID)

	missing, err := repo.Get(ctx, "form3", "hubspot")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryCredentialsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCredentialsRepository()
	require.NoError(t, repo.Save(ctx, &domain.IntegrationCredentials{IntegrationID: "hubspot", AccessToken: "t"}))

	creds, err := repo.Get(ctx, "hubspot")
	require.NoError(t, err)
	creds.AccessToken = "changed"

	again, _ := repo.Get(ctx, "hubspot")
	assert.Equal(t, "t", again.AccessToken)

	require.NoError(t, repo.Delete(ctx, "hubspot"))
	gone, err := repo.Get(ctx, "hubspot")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMemoryDispatchLog_NewestFirstWithCapacity(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryDispatchLog(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, log.OnDispatch(ctx, &domain.DispatchResult{ID: id, FormID: "form1"}))
	}
	require.NoError(t, log.OnDispatch(ctx, &domain.DispatchResult{ID: "x", FormID: "form2"}))

	results, err := log.ListByForm(ctx, "form1", 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	// capacity 3 keeps c, d, x
	assert.Equal(t, []string{"d", "c"}, ids)
}
