package mailchimp

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
	"time"

	"archie-core-forms-layer/internal/domain"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the Marketing API root; {dc} is replaced by the account's data center
const DefaultBaseURL = "https://{dc}.api.mailchimp.com/3.0"

// Client is the Mailchimp audience adapter
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Mailchimp adapter
func NewClient(logger zerolog.Logger) *Client {
	return NewClientWithBaseURL(DefaultBaseURL, &http.Client{Timeout: 30 * time.Second}, logger)
}

// NewClientWithBaseURL creates a Mailchimp adapter against a custom root
func NewClientWithBaseURL(baseURL string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// apiError is the problem document Mailchimp returns on failure
type apiError struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// DataCenter returns the server prefix, taken from the API key suffix when not stored
func DataCenter(creds *domain.IntegrationCredentials) string {
	if creds == nil {
		return ""
	}
	if creds.ServerPrefix != "" {
		return creds.ServerPrefix
	}
	if i := strings.LastIndex(creds.APIKey, "-"); i >= 0 && i < len(creds.APIKey)-1 {
		return creds.APIKey[i+1:]
	}
	return ""
}

func (c *Client) root(op string, creds *domain.IntegrationCredentials) (string, error) {
	if !strings.Contains(c.baseURL, "{dc}") {
		return c.baseURL, nil
	}
	dc := DataCenter(creds)
	if dc == "" {
		return "", domain.NewError(domain.KindNotConfigured, op, "cannot determine data center from API key")
	}
	return strings.ReplaceAll(c.baseURL, "{dc}", dc), nil
}

// do sends a JSON request and decodes the response into out when out is non-nil
func (c *Client) do(ctx context.Context, op string, creds *domain.IntegrationCredentials, method, path string, body, out interface{}) error {
	if !creds.IsConnected() {
		return domain.NewError(domain.KindNotConfigured, op, "no API key")
	}
	root, err := c.root(op, creds)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return domain.WrapError(domain.KindValidationFailed, op, fmt.Errorf("failed to encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, root+path, reader)
	if err != nil {
		return domain.WrapError(domain.KindUnknown, op, fmt.Errorf("failed to build request: %w", err))
	}
	if creds.APIKey != "" {
		req.SetBasicAuth("archie", creds.APIKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}
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
		Msg("Mailchimp request")

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
	message := strings.TrimSpace(string(raw))
	var problem apiError
	if err := json.Unmarshal(raw, &problem); err == nil && (problem.Title != "" || problem.Detail != "") {
		message = strings.TrimSpace(problem.Title + ": " + problem.Detail)
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
