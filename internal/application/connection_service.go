package application

import (
	"context"
	"fmt"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ConnectionService validates credentials with one side-effect-free remote call
type ConnectionService struct {
	adapters    *AdapterRegistry
	credentials ports.CredentialsProvider
	logger      zerolog.Logger
}

// NewConnectionService creates a new connection tester
func NewConnectionService(adapters *AdapterRegistry, credentials ports.CredentialsProvider, logger zerolog.Logger) *ConnectionService {
	return &ConnectionService{
		adapters:    adapters,
		credentials: credentials,
		logger:      logger,
	}
}

// Test checks the stored credentials of an integration
func (s *ConnectionService) Test(ctx context.Context, integrationID string) (*domain.ConnectionInfo, error) {
	creds, err := s.credentials.GetCredentials(ctx, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return s.TestCredentials(ctx, integrationID, creds)
}

// TestCredentials checks the given credentials without storing them
func (s *ConnectionService) TestCredentials(ctx context.Context, integrationID string, creds *domain.IntegrationCredentials) (*domain.ConnectionInfo, error) {
	adapter, err := s.adapters.Get(integrationID)
	if err != nil {
		return nil, err
	}
	if !creds.IsConnected() {
		return nil, domain.NewError(domain.KindNotConfigured, "connection.test", integrationID+" has no credentials")
	}

	info, err := adapter.TestConnection(ctx, creds)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("integration", integrationID).
			Str("kind", string(domain.KindOf(err))).
			Msg("Connection test failed")
		return nil, err
	}

	s.logger.Debug().Str("integration", integrationID).Str("account", info.AccountID).Msg("Connection test successful")
	return info, nil
}
