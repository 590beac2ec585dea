package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"alert-agent/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// tokenExpirySlack is how long before the token's exp claim the cache
// stops handing it out, so a call never starts on a nearly dead credential.
const tokenExpirySlack = 30 * time.Second

// TokenClient obtains a transport credential from the voice backend
// (POST /voice/token) and caches it until shortly before expiry.
type TokenClient struct {
	baseURL string
	client  *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenClient creates a token client for the given voice backend root
func NewTokenClient(baseURL string, timeout time.Duration) *TokenClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TokenClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type tokenRequest struct {
	Identity string `json:"identity"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Token returns a valid transport credential for the given identity,
// fetching a fresh one only when the cached token is missing or stale.
func (c *TokenClient) Token(ctx context.Context, identity string) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("identity is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt.Add(-tokenExpirySlack)) {
		return c.token, nil
	}

	body, err := json.Marshal(tokenRequest{Identity: identity})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voice/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("voice token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.Token == "" {
		return "", fmt.Errorf("voice token endpoint returned an empty token")
	}

	c.token = tr.Token
	c.expiresAt = tokenExpiry(tr.Token)

	logger.Debug("Fetched voice token", zap.Time("expires_at", c.expiresAt))
	return c.token, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client is not the token's audience, it only needs to know when to stop
// reusing it. Tokens without a readable exp get a short conservative TTL.
func tokenExpiry(token string) time.Time {
	fallback := time.Now().Add(time.Minute)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return fallback
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}

	return exp.Time
}
