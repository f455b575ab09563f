package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fabienpiette/partfox/internal/models"
)

// DefaultTokenLifetime applies when the token response has no expires_in and
// the token carries no exp claim
const DefaultTokenLifetime = 300 * time.Second

// TokenSource supplies bearer tokens for the catalog API
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// ClientCredentialsConfig configures the OAuth client credentials flow
type ClientCredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	MinTTL       time.Duration
	Timeout      time.Duration
}

// ClientCredentials fetches and caches access tokens using the client
// credentials grant. Safe for concurrent use.
type ClientCredentials struct {
	config     ClientCredentialsConfig
	httpClient *http.Client
	logger     *logrus.Logger
	now        func() time.Time

	mu     sync.Mutex
	cached *models.TokenInfo
}

// NewClientCredentials creates a new client credentials token source
func NewClientCredentials(config ClientCredentialsConfig, logger *logrus.Logger) *ClientCredentials {
	if config.MinTTL < 0 {
		config.MinTTL = 0
	}
	return &ClientCredentials{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
		now:        time.Now,
	}
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

// Token returns the cached token while it outlives the minimum TTL window,
// otherwise it requests a new one
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.cached.Valid(now, c.config.MinTTL) {
		return c.cached.AccessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("Token request failed")
		return "", fmt.Errorf("%w: %v", models.ErrTokenUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Error("Token endpoint rejected client credentials (HTTP 401)")
		return "", fmt.Errorf("%w: invalid client credentials", models.ErrTokenUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithField("status", resp.StatusCode).Error("Token endpoint returned an error")
		return "", fmt.Errorf("%w: HTTP %d", models.ErrTokenUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response body: %v", models.ErrTokenUnavailable, err)
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.WithError(err).Error("Token endpoint returned invalid JSON")
		return "", fmt.Errorf("%w: malformed token response", models.ErrTokenUnavailable)
	}
	if payload.AccessToken == "" {
		c.logger.Error("Token response has no access_token")
		return "", fmt.Errorf("%w: missing access_token", models.ErrTokenUnavailable)
	}

	expiresAt := c.expiry(now, payload)
	c.cached = &models.TokenInfo{AccessToken: payload.AccessToken, ExpiresAt: expiresAt}

	c.logger.WithField("expires_in", expiresAt.Sub(now).Round(time.Second)).Info("Obtained new catalog access token")
	return payload.AccessToken, nil
}

func (c *ClientCredentials) expiry(now time.Time, payload tokenResponse) time.Time {
	if payload.ExpiresIn != "" {
		if secs, err := payload.ExpiresIn.Int64(); err == nil {
			return now.Add(time.Duration(secs) * time.Second)
		}
	}
	if exp, err := ExpiryFromJWT(payload.AccessToken); err == nil {
		return exp
	}
	return now.Add(DefaultTokenLifetime)
}

// Invalidate drops the cached token so the next call fetches a fresh one
func (c *ClientCredentials) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

// StaticToken always returns the same configured token
type StaticToken string

// Token returns the static token, or ErrTokenUnavailable when empty
func (s StaticToken) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", models.ErrTokenUnavailable
	}
	return string(s), nil
}

// Invalidate is a no-op for static tokens
func (s StaticToken) Invalidate() {}
