package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"archie-core-forms-layer/internal/domain"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the HubSpot API host
const DefaultBaseURL = "https://api.hubapi.com"

// Client is the HubSpot CRM adapter
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	// resolved custom object type ids, keyed by account fingerprint and requested name
	mu            sync.RWMutex
	resolvedTypes map[string]string
}

// NewClient creates a new HubSpot adapter
func NewClient(logger zerolog.Logger) *Client {
	return NewClientWithBaseURL(DefaultBaseURL, &http.Client{Timeout: 30 * time.Second}, logger)
}

// NewClientWithBaseURL creates a HubSpot adapter against a custom host
func NewClientWithBaseURL(baseURL string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    httpClient,
		logger:        logger,
		resolvedTypes: make(map[string]string),
	}
}

// apiError is the HubSpot error envelope
type apiError struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// do sends a JSON request and decodes the response into out when out is non-nil
func (c *Client) do(ctx context.Context, op string, creds *domain.IntegrationCredentials, method, path string, body, out interface{}) error {
	token := creds.Token()
	if token == "" {
		return domain.NewError(domain.KindNotConfigured, op, "no access token")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return domain.WrapError(domain.KindValidationFailed, op, fmt.Errorf("failed to encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return domain.WrapError(domain.KindUnknown, op, fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("HubSpot request")

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(op, err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(op, resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.WrapError(domain.KindRemoteUnavailable, op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func statusError(op string, status int, raw []byte) error {
	var envelope apiError
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
		message = envelope.Message
	}
	kind := domain.KindFromStatus(status)
	if kind == domain.KindUnknown {
		kind = domain.KindRemoteUnavailable
	}
	return domain.NewError(kind, op, fmt.Sprintf("status %d: %s", status, message))
}

func transportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.KindTimeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.WrapError(domain.KindTimeout, op, err)
	}
	return domain.WrapError(domain.KindRemoteUnavailable, op, err)
}
