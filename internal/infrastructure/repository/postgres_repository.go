package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/ports"

	"github.com/lib/pq"
)

// OpenPostgres connects to PostgreSQL and applies the schema
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables when missing
func Migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS field_mappings (
		form_id VARCHAR(255) NOT NULL,
		integration_id VARCHAR(50) NOT NULL,
		object_type VARCHAR(255) NOT NULL,
		entries JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW(),
		PRIMARY KEY (form_id, integration_id, object_type)
	);

	CREATE TABLE IF NOT EXISTS integration_credentials (
		integration_id VARCHAR(50) PRIMARY KEY,
		api_key TEXT,
		access_token TEXT,
		account_id VARCHAR(255),
		server_prefix VARCHAR(50),
		audience_id VARCHAR(255),
		shop_domain VARCHAR(255),
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS form_integration_settings (
		form_id VARCHAR(255) NOT NULL,
		integration_id VARCHAR(50) NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT false,
		object_type VARCHAR(255),
		options JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW(),
		PRIMARY KEY (form_id, integration_id)
	);

	CREATE TABLE IF NOT EXISTS dispatch_log (
		id UUID PRIMARY KEY,
		submission_id VARCHAR(255),
		form_id VARCHAR(255) NOT NULL,
		integration_id VARCHAR(50) NOT NULL,
		success BOOLEAN NOT NULL,
		message TEXT,
		operations JSONB NOT NULL DEFAULT '[]',
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS dispatch_log_form_idx ON dispatch_log (form_id, started_at DESC);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// PostgresMappingRepository implements MappingRepository using PostgreSQL
type PostgresMappingRepository struct {
	db *sql.DB
}

// NewPostgresMappingRepository creates a new PostgreSQL mapping repository
func NewPostgresMappingRepository(db *sql.DB) ports.MappingRepository {
	return &PostgresMappingRepository{db: db}
}

// Get retrieves the mapping for a form, integration and object type
func (r *PostgresMappingRepository) Get(ctx context.Context, formID, integrationID, objectType string) (*domain.FieldMapping, error) {
	query := `
		SELECT entries, updated_at
		FROM field_mappings
		WHERE form_id = $1 AND integration_id = $2 AND object_type = $3
	`

	var raw []byte
	mapping := domain.NewFieldMapping(formID, integrationID, objectType)
	err := r.db.QueryRowContext(ctx, query, formID, integrationID, objectType).Scan(&raw, &mapping.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	if err := json.Unmarshal(raw, &mapping.Entries); err != nil {
		return nil, fmt.Errorf("failed to decode mapping entries: %w", err)
	}
	if mapping.Entries == nil {
		mapping.Entries = []domain.MappingEntry{}
	}
	return mapping, nil
}

// Save replaces the stored mapping as a whole
func (r *PostgresMappingRepository) Save(ctx context.Context, mapping *domain.FieldMapping) error {
	entries := mapping.Entries
	if entries == nil {
		entries = []domain.MappingEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode mapping entries: %w", err)
	}
	updatedAt := mapping.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
		INSERT INTO field_mappings (form_id, integration_id, object_type, entries, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (form_id, integration_id, object_type)
		DO UPDATE SET entries = EXCLUDED.entries, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, mapping.FormID, mapping.IntegrationID, mapping.ObjectType, raw, updatedAt); err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	return nil
}

// Delete removes a mapping; deleting a missing mapping is not an error
func (r *PostgresMappingRepository) Delete(ctx context.Context, formID, integrationID, objectType string) error {
	query := `DELETE FROM field_mappings WHERE form_id = $1 AND integration_id = $2 AND object_type = $3`
	if _, err := r.db.ExecContext(ctx, query, formID, integrationID, objectType); err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	return nil
}

// ListObjectTypes returns the object types with a saved mapping for a form and integration
func (r *PostgresMappingRepository) ListObjectTypes(ctx context.Context, formID, integrationID string) ([]string, error) {
	query := `
		SELECT COALESCE(array_agg(object_type ORDER BY object_type), '{}')
		FROM field_mappings
		WHERE form_id = $1 AND integration_id = $2
	`

	var types pq.StringArray
	if err := r.db.QueryRowContext(ctx, query, formID, integrationID).Scan(&types); err != nil {
		return nil, fmt.Errorf("failed to list mapped object types: %w", err)
	}
	return []string(types), nil
}

// PostgresCredentialsRepository implements CredentialsRepository using PostgreSQL
type PostgresCredentialsRepository struct {
	db *sql.DB
}

// NewPostgresCredentialsRepository creates a new PostgreSQL credentials repository
func NewPostgresCredentialsRepository(db *sql.DB) ports.CredentialsRepository {
	return &PostgresCredentialsRepository{db: db}
}

// Get retrieves the credentials of an integration
func (r *PostgresCredentialsRepository) Get(ctx context.Context, integrationID string) (*domain.IntegrationCredentials, error) {
	query := `
		SELECT api_key, access_token, account_id, server_prefix, audience_id, shop_domain, updated_at
		FROM integration_credentials
		WHERE integration_id = $1
	`

	creds := &domain.IntegrationCredentials{IntegrationID: integrationID}
	var apiKey, accessToken, accountID, serverPrefix, audienceID, shopDomain sql.NullString
	err := r.db.QueryRowContext(ctx, query, integrationID).Scan(
		&apiKey,
		&accessToken,
		&accountID,
		&serverPrefix,
		&audienceID,
		&shopDomain,
		&creds.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	creds.APIKey = apiKey.String
	creds.AccessToken = accessToken.String
	creds.AccountID = accountID.String
	creds.ServerPrefix = serverPrefix.String
	creds.AudienceID = audienceID.String
	creds.ShopDomain = shopDomain.String
	return creds, nil
}

// Save saves or replaces credentials
func (r *PostgresCredentialsRepository) Save(ctx context.Context, creds *domain.IntegrationCredentials) error {
	query := `
		INSERT INTO integration_credentials
			(integration_id, api_key, access_token, account_id, server_prefix, audience_id, shop_domain, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (integration_id) DO UPDATE SET
			api_key = EXCLUDED.api_key,
			access_token = EXCLUDED.access_token,
			account_id = EXCLUDED.account_id,
			server_prefix = EXCLUDED.server_prefix,
			audience_id = EXCLUDED.audience_id,
			shop_domain = EXCLUDED.shop_domain,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		creds.IntegrationID,
		creds.APIKey,
		creds.AccessToken,
		creds.AccountID,
		creds.ServerPrefix,
		creds.AudienceID,
		creds.ShopDomain,
	)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Delete deletes the credentials of an integration
func (r *PostgresCredentialsRepository) Delete(ctx context.Context, integrationID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM integration_credentials WHERE integration_id = $1`, integrationID); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// PostgresSettingsRepository implements SettingsRepository using PostgreSQL
type PostgresSettingsRepository struct {
	db *sql.DB
}

// NewPostgresSettingsRepository creates a new PostgreSQL settings repository
func NewPostgresSettingsRepository(db *sql.DB) ports.SettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

const settingsColumns = `form_id, integration_id, enabled, object_type, options, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSettings(row rowScanner) (*domain.IntegrationSettings, error) {
	settings := &domain.IntegrationSettings{}
	var objectType sql.NullString
	var options []byte
	if err := row.Scan(&settings.FormID, &settings.IntegrationID, &settings.Enabled, &objectType, &options, &settings.UpdatedAt); err != nil {
		return nil, err
	}
	settings.ObjectType = objectType.String
	if len(options) > 0 {
		if err := json.Unmarshal(options, &settings.Options); err != nil {
			return nil, fmt.Errorf("failed to decode options: %w", err)
		}
	}
	return settings, nil
}

// Get retrieves the settings of one integration for a form
func (r *PostgresSettingsRepository) Get(ctx context.Context, formID, integrationID string) (*domain.IntegrationSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM form_integration_settings WHERE form_id = $1 AND integration_id = $2`

	settings, err := scanSettings(r.db.QueryRowContext(ctx, query, formID, integrationID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// Save saves or updates settings
func (r *PostgresSettingsRepository) Save(ctx context.Context, settings *domain.IntegrationSettings) error {
	options, err := json.Marshal(settings.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	updatedAt := settings.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
		INSERT INTO form_integration_settings (form_id, integration_id, enabled, object_type, options, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (form_id, integration_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			object_type = EXCLUDED.object_type,
			options = EXCLUDED.options,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.ExecContext(ctx, query, settings.FormID, settings.IntegrationID, settings.Enabled, settings.ObjectType, options, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// ListByForm retrieves every integration's settings for a form
func (r *PostgresSettingsRepository) ListByForm(ctx context.Context, formID string) ([]*domain.IntegrationSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM form_integration_settings WHERE form_id = $1 ORDER BY integration_id`

	rows, err := r.db.QueryContext(ctx, query, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var all []*domain.IntegrationSettings
	for rows.Next() {
		settings, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settings: %w", err)
		}
		all = append(all, settings)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return all, nil
}

// PostgresDispatchLog records dispatch results in PostgreSQL
type PostgresDispatchLog struct {
	db *sql.DB
}

// NewPostgresDispatchLog creates a new PostgreSQL dispatch log
func NewPostgresDispatchLog(db *sql.DB) *PostgresDispatchLog {
	return &PostgresDispatchLog{db: db}
}

// OnDispatch logs a dispatch result
func (r *PostgresDispatchLog) OnDispatch(ctx context.Context, result *domain.DispatchResult) error {
	operations, err := json.Marshal(result.Operations)
	if err != nil {
		return fmt.Errorf("failed to encode operations: %w", err)
	}

	query := `
		INSERT INTO dispatch_log (id, submission_id, form_id, integration_id, success, message, operations, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		result.ID,
		result.SubmissionID,
		result.FormID,
		result.IntegrationID,
		result.Success,
		result.Message,
		operations,
		result.StartedAt,
		result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log dispatch: %w", err)
	}
	return nil
}

// ListByForm returns the most recent dispatch results for a form, newest first
func (r *PostgresDispatchLog) ListByForm(ctx context.Context, formID string, limit int64) ([]*domain.DispatchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, submission_id, form_id, integration_id, success, message, operations, started_at, finished_at
		FROM dispatch_log
		WHERE form_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, formID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatches: %w", err)
	}
	defer rows.Close()

	var results []*domain.DispatchResult
	for rows.Next() {
		result := &domain.DispatchResult{}
		var submissionID, message sql.NullString
		var operations []byte
		if err := rows.Scan(
			&result.ID,
			&submissionID,
			&result.FormID,
			&result.IntegrationID,
			&result.Success,
			&message,
			&operations,
			&result.StartedAt,
			&result.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch: %w", err)
		}
		result.SubmissionID = submissionID.String
		result.Message = message.String
		if err := json.Unmarshal(operations, &result.Operations); err != nil {
			return nil, fmt.Errorf("failed to decode operations: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}
