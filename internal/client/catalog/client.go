// Package catalog is the HTTP client for the game catalog REST API.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
)

const maxResponseBodySize = 1 << 20 // 1MB

// Credentials supplies the bearer token sent with every request
type Credentials interface {
	Token(ctx context.Context) (string, error)

	// Clear drops the stored token after the API rejected it
	Clear(ctx context.Context) error
}

// APIError is a non-2xx response other than 401 and 404
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("catalog api returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the catalog API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	creds   Credentials
	logger  *logger.Logger
}

// NewClient creates a client for baseURL with a client-wide timeout
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  log.Component("catalog-client"),
	}
}

// WithCredentials returns a copy of c that authenticates with creds
func (c *Client) WithCredentials(creds Credentials) *Client {
	clone := *c
	clone.creds = creds
	return &clone
}

// envelope is the {"success":true,"data":...} wrapper used by the catalog API
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// do sends a JSON request and returns the unwrapped response payload
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.creds != nil {
		token, err := c.creds.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Catalog API call")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.creds != nil {
			if err := c.creds.Clear(ctx); err != nil {
				c.logger.Warnf("Failed to clear rejected credentials: %v", err)
			}
		}
		return nil, domain.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(payload)}
	}

	return unwrap(payload), nil
}

// unwrap strips the response envelope when present
func unwrap(payload []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return trimmed
	}
	if data, ok := probe["data"]; ok {
		if _, hasSuccess := probe["success"]; hasSuccess || len(probe) == 1 {
			return bytes.TrimSpace(data)
		}
	}
	return trimmed
}

func errorMessage(payload []byte) string {
	var env envelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Error != "" {
		return env.Error
	}
	return strings.TrimSpace(string(payload))
}

// isEmpty reports whether a payload carries no record: empty, null, [] or {}
func isEmpty(payload json.RawMessage) bool {
	s := string(bytes.TrimSpace(payload))
	return s == "" || s == "null" || s == "[]" || s == "{}"
}

// StaticToken is an in-memory Credentials holding a single token
type StaticToken struct {
	mu    sync.RWMutex
	token string
}

// NewStaticToken creates credentials holding token
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

func (s *StaticToken) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", domain.ErrUnauthorized
	}
	return s.token, nil
}

func (s *StaticToken) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// IsUnauthorized reports whether err means the credential was rejected or missing
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}
