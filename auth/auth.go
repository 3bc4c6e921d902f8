// Package auth verifies bearer tokens against the hosted auth provider.
// Token issuance and refresh stay with the provider; this package only maps
// a token to a user ID.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier maps a bearer token to the owning user's ID.
type Verifier interface {
	UserID(ctx context.Context, token string) (string, error)
}

// Client talks to a GoTrue-compatible auth endpoint.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  *log.Logger
}

func NewClient(baseURL, anonKey string, logger *log.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (c *Client) UserID(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrInvalidToken
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("auth http %d: %s", resp.StatusCode, body)
	}

	var user struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if user.ID == "" {
		return "", ErrInvalidToken
	}

	return user.ID, nil
}
