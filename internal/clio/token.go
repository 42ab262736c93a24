package clio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CaseReview/internal/constants"

	"go.uber.org/zap"
)

// defaultTokenLifetime applies when the token response has no usable expires_in.
const defaultTokenLifetime = 3000 * time.Second

type TokenConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
	ExpiresAt    time.Time
}

// AuthConfigError lists the credential settings that are missing.
type AuthConfigError struct {
	Missing []string
}

func (e *AuthConfigError) Error() string {
	return "missing " + strings.Join(e.Missing, "/")
}

func (e *AuthConfigError) Unwrap() error {
	return constants.ErrAuthConfig
}

// TokenManager caches the access token and refreshes it on expiry or demand.
// It is not safe for concurrent use.
type TokenManager struct {
	cfg  TokenConfig
	cred Credential
	http *http.Client
	now  func() time.Time
	log  *zap.Logger

	// OnRefresh, when set, receives the credential after every successful refresh.
	OnRefresh func(Credential)
}

func NewTokenManager(cfg TokenConfig, httpClient *http.Client) *TokenManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &TokenManager{
		cfg: cfg,
		cred: Credential{
			AccessToken:  cfg.AccessToken,
			RefreshToken: cfg.RefreshToken,
			ExpiresAt:    cfg.ExpiresAt,
		},
		http: httpClient,
		now:  time.Now,
		log:  zap.NewNop(),
	}
}

func (m *TokenManager) SetLogger(l *zap.Logger) {
	if l != nil {
		m.log = l
	}
}

// Credential returns a copy of the current credential.
func (m *TokenManager) Credential() Credential {
	return m.cred
}

// Validate reports missing client id, secret or refresh token.
func (m *TokenManager) Validate() error {
	var missing []string
	if m.cfg.ClientID == "" {
		missing = append(missing, "CLIO_CLIENT_ID")
	}
	if m.cfg.ClientSecret == "" {
		missing = append(missing, "CLIO_CLIENT_SECRET")
	}
	if m.cred.RefreshToken == "" {
		missing = append(missing, "CLIO_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return &AuthConfigError{Missing: missing}
	}
	return nil
}

// Token returns the cached access token while it is unexpired.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if m.cred.AccessToken != "" && m.now().Before(m.cred.ExpiresAt) {
		return m.cred.AccessToken, nil
	}
	return m.Refresh(ctx)
}

// Refresh exchanges the refresh token for a new access token.
func (m *TokenManager) Refresh(ctx context.Context) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", m.cred.RefreshToken)
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", m.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token refresh: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf(constants.ErrTokenRefreshFailed, resp.StatusCode, snippet(body))
	}

	var tokens map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&tokens); err != nil {
		return "", fmt.Errorf("%s: %w", constants.ErrTokenDecodeFailed, err)
	}

	if at := str(tokens["access_token"]); at != "" {
		m.cred.AccessToken = at
	}
	if rt := str(tokens["refresh_token"]); rt != "" {
		m.cred.RefreshToken = rt
	}
	lifetime := defaultTokenLifetime
	if secs, err := strconv.ParseFloat(str(tokens["expires_in"]), 64); err == nil {
		lifetime = time.Duration(secs * float64(time.Second))
	}
	m.cred.ExpiresAt = m.now().Add(lifetime)

	m.log.Info("clio token refreshed", zap.Time("expires_at", m.cred.ExpiresAt))
	if m.OnRefresh != nil {
		m.OnRefresh(m.cred)
	}
	return m.cred.AccessToken, nil
}

// snippet trims a response body for error messages.
func snippet(body []byte) string {
	const limit = 200
	if len(body) > limit {
		body = body[:limit]
	}
	return string(body)
}
