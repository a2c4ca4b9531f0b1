// Package vapi is a thin client for the voice provider's REST API. The
// provider owns the conversation; this service only reads call resources
// back out of it, authenticated with a per-organization API key.
package vapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.vapi.ai"

// CredentialResolver resolves the provider API key for an organization.
// Key storage lives with the organization configuration service; this
// package only consumes it.
type CredentialResolver interface {
	APIKey(ctx context.Context, orgID string) (string, error)
}

// StaticCredentials resolves every organization to one shared API key,
// for single-tenant deployments and tests.
type StaticCredentials string

func (s StaticCredentials) APIKey(ctx context.Context, orgID string) (string, error) {
	if s == "" {
		return "", errors.New("vapi: no api key configured")
	}
	return string(s), nil
}

// Config controls how the client behaves.
type Config struct {
	BaseURL     string
	Credentials CredentialResolver
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client wraps the provider REST endpoints the reconciliation pipeline uses.
type Client struct {
	baseURL    string
	creds      CredentialResolver
	httpClient *http.Client
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if cfg.Credentials == nil {
		return nil, errors.New("vapi: credential resolver is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		creds:      cfg.Credentials,
		httpClient: httpClient,
	}, nil
}

// GetCall fetches one call by provider call id.
func (c *Client) GetCall(ctx context.Context, orgID, callID string) (*Call, error) {
	if strings.TrimSpace(callID) == "" {
		return nil, errors.New("vapi: call id required")
	}
	data, err := c.invoke(ctx, orgID, "/call/"+url.PathEscape(callID), nil)
	if err != nil {
		return nil, err
	}
	var call Call
	if err := json.Unmarshal(data, &call); err != nil {
		return nil, fmt.Errorf("vapi: decode call: %w", err)
	}
	return &call, nil
}

// ListCalls fetches up to limit recent calls, newest first.
func (c *Client) ListCalls(ctx context.Context, orgID string, limit int) ([]Call, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	data, err := c.invoke(ctx, orgID, "/call", q)
	if err != nil {
		return nil, err
	}
	var result []Call
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("vapi: decode call list: %w", err)
	}
	return result, nil
}

// GetPhoneNumbers lists the organization's provider phone numbers.
func (c *Client) GetPhoneNumbers(ctx context.Context, orgID string) ([]PhoneNumber, error) {
	data, err := c.invoke(ctx, orgID, "/phone-number", nil)
	if err != nil {
		return nil, err
	}
	var result []PhoneNumber
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("vapi: decode phone numbers: %w", err)
	}
	return result, nil
}

// GetAssistants lists the organization's voice assistants.
func (c *Client) GetAssistants(ctx context.Context, orgID string) ([]Assistant, error) {
	data, err := c.invoke(ctx, orgID, "/assistant", nil)
	if err != nil {
		return nil, err
	}
	var result []Assistant
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("vapi: decode assistants: %w", err)
	}
	return result, nil
}

func (c *Client) invoke(ctx context.Context, orgID, path string, query url.Values) ([]byte, error) {
	apiKey, err := c.creds.APIKey(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("vapi: resolve credentials: %w", err)
	}
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("vapi: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vapi: http error: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vapi: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("vapi: %s returned status %d: %s", path, resp.StatusCode, truncate(data, 200))
	}
	return data, nil
}

func truncate(data []byte, max int) string {
	if len(data) <= max {
		return string(data)
	}
	return string(data[:max]) + "..."
}
