package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/ports"

	"github.com/rs/zerolog"
)

// CredentialsService manages the global per-integration credentials.
// Secrets are encrypted before they reach the repository.
type CredentialsService struct {
	repo          ports.CredentialsRepository
	encryptionSvc ports.EncryptionService
	schemaCache   ports.SchemaCache
	logger        zerolog.Logger
}

// NewCredentialsService creates a new credentials service. schemaCache may be nil.
func NewCredentialsService(
	repo ports.CredentialsRepository,
	encryptionService ports.EncryptionService,
	schemaCache ports.SchemaCache,
	logger zerolog.Logger,
) *CredentialsService {
	return &CredentialsService{
		repo:          repo,
		encryptionSvc: encryptionService,
		schemaCache:   schemaCache,
		logger:        logger,
	}
}

// SaveCredentialsInput represents the input for storing credentials
type SaveCredentialsInput struct {
	APIKey       string `json:"api_key"`
	AccessToken  string `json:"access_token"`
	AccountID    string `json:"account_id"`
	ServerPrefix string `json:"server_prefix"`
	AudienceID   string `json:"audience_id"`
	ShopDomain   string `json:"shop_domain"`
}

// ToCredentials builds an unsaved plaintext bundle, used to test credentials before storing them
func (in *SaveCredentialsInput) ToCredentials(integrationID string) *domain.IntegrationCredentials {
	return &domain.IntegrationCredentials{
		IntegrationID: integrationID,
		APIKey:        strings.TrimSpace(in.APIKey),
		AccessToken:   strings.TrimSpace(in.AccessToken),
		AccountID:     strings.TrimSpace(in.AccountID),
		ServerPrefix:  strings.TrimSpace(in.ServerPrefix),
		AudienceID:    strings.TrimSpace(in.AudienceID),
		ShopDomain:    strings.TrimSpace(in.ShopDomain),
	}
}

// GetCredentials returns decrypted credentials. Missing credentials yield an empty, unconnected bundle.
func (s *CredentialsService) GetCredentials(ctx context.Context, integrationID string) (*domain.IntegrationCredentials, error) {
	stored, err := s.repo.Get(ctx, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	if stored == nil {
		return &domain.IntegrationCredentials{IntegrationID: integrationID}, nil
	}

	creds := *stored
	if creds.APIKey, err = s.decrypt(stored.APIKey); err != nil {
		return nil, fmt.Errorf("failed to decrypt API key: %w", err)
	}
	if creds.AccessToken, err = s.decrypt(stored.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	return &creds, nil
}

// SaveCredentials encrypts and stores credentials, then drops cached schemas fetched with the old ones
func (s *CredentialsService) SaveCredentials(ctx context.Context, integrationID string, input *SaveCredentialsInput) (*domain.IntegrationCredentials, error) {
	if strings.TrimSpace(input.APIKey) == "" && strings.TrimSpace(input.AccessToken) == "" {
		return nil, domain.NewError(domain.KindValidationFailed, "credentials.save", "an API key or access token is required")
	}

	encryptedKey, err := s.encrypt(input.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt API key: %w", err)
	}
	encryptedToken, err := s.encrypt(input.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	stored := &domain.IntegrationCredentials{
		IntegrationID: integrationID,
		APIKey:        encryptedKey,
		AccessToken:   encryptedToken,
		AccountID:     strings.TrimSpace(input.AccountID),
		ServerPrefix:  strings.TrimSpace(input.ServerPrefix),
		AudienceID:    strings.TrimSpace(input.AudienceID),
		ShopDomain:    strings.TrimSpace(input.ShopDomain),
		UpdatedAt:     time.Now(),
	}
	if err := s.repo.Save(ctx, stored); err != nil {
		s.logger.Error().Err(err).Str("integration", integrationID).Msg("Failed to save credentials")
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	s.invalidateSchemas(ctx, integrationID)
	s.logger.Info().Str("integration", integrationID).Msg("Integration credentials saved successfully")

	return &domain.IntegrationCredentials{
		IntegrationID: integrationID,
		APIKey:        input.APIKey,
		AccessToken:   input.AccessToken,
		AccountID:     stored.AccountID,
		ServerPrefix:  stored.ServerPrefix,
		AudienceID:    stored.AudienceID,
		ShopDomain:    stored.ShopDomain,
		UpdatedAt:     stored.UpdatedAt,
	}, nil
}

// DeleteCredentials disconnects an integration globally
func (s *CredentialsService) DeleteCredentials(ctx context.Context, integrationID string) error {
	existing, err := s.repo.Get(ctx, integrationID)
	if err != nil {
		return fmt.Errorf("failed to get credentials: %w", err)
	}
	if existing == nil {
		return domain.NewError(domain.KindNotConfigured, "credentials.delete", integrationID+" is not connected")
	}

	if err := s.repo.Delete(ctx, integrationID); err != nil {
		s.logger.Error().Err(err).Str("integration", integrationID).Msg("Failed to delete credentials")
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	s.invalidateSchemas(ctx, integrationID)
	s.logger.Info().Str("integration", integrationID).Msg("Integration credentials deleted successfully")
	return nil
}

func (s *CredentialsService) invalidateSchemas(ctx context.Context, integrationID string) {
	if s.schemaCache == nil {
		return
	}
	if err := s.schemaCache.Invalidate(ctx, integrationID); err != nil {
		s.logger.Warn().Err(err).Str("integration", integrationID).Msg("Failed to invalidate schema cache")
	}
}

func (s *CredentialsService) encrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	return s.encryptionSvc.Encrypt(value)
}

func (s *CredentialsService) decrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	return s.encryptionSvc.Decrypt(value)
}
