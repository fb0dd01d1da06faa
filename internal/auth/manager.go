// Package auth owns the OAuth2 client-credentials token lifecycle for one
// credential set. All other components obtain tokens through Manager and
// never cache or inspect them on their own.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/mkellner/shopctl/internal/apierr"
	"github.com/mkellner/shopctl/internal/config"
)

// HTTPClient is the interface the manager needs for the token exchange.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Manager holds the cached token and serializes refreshes. Concurrent
// callers hitting an expired token share a single in-flight exchange.
type Manager struct {
	creds      config.Credentials
	httpClient HTTPClient
	logger     zerolog.Logger
	now        func() time.Time

	mu    sync.RWMutex
	token Token

	refresh singleflight.Group
}

func (m *Manager) cached() Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) store(tok Token) {
	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()
}

// NewManager creates a token manager for the given credentials.
func NewManager(creds config.Credentials, httpClient HTTPClient, logger zerolog.Logger) *Manager {
	return &Manager{
		creds:      creds,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Bearer returns a usable access token, performing a client-credentials
// exchange when no token is held or the held one is within the refresh
// margin of expiry.
func (m *Manager) Bearer(ctx context.Context) (string, error) {
	if tok := m.cached(); tok.Usable(m.now()) {
		return tok.AccessToken, nil
	}
	return m.refreshShared(ctx, false)
}

// ForceRefresh discards any cached token and performs one exchange. Used by
// the dispatcher after a 401 to rule out a token revoked before its expiry.
func (m *Manager) ForceRefresh(ctx context.Context) (string, error) {
	return m.refreshShared(ctx, true)
}

// refreshShared funnels all refresh attempts through one singleflight slot.
// A refresh already in progress is joined by every waiter; its outcome is
// shared. On failure the previously cached token is left in place but is
// never served while expired.
func (m *Manager) refreshShared(ctx context.Context, force bool) (string, error) {
	v, err, _ := m.refresh.Do("token", func() (interface{}, error) {
		// A waiter that queued behind a finished refresh can use its result.
		if !force {
			if tok := m.cached(); tok.Usable(m.now()) {
				return tok.AccessToken, nil
			}
		}

		tok, err := m.exchange(ctx)
		if err != nil {
			m.logger.Error().Err(err).Msg("token exchange failed")
			return nil, err
		}

		m.store(tok)
		m.logger.Debug().
			Time("expires_at", tok.ExpiresAt).
			Msg("obtained new access token")
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// exchange performs the synchronous client-credentials exchange.
func (m *Manager) exchange(ctx context.Context) (Token, error) {
	payload, err := json.Marshal(tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     m.creds.ClientID,
		ClientSecret: m.creds.ClientSecret,
	})
	if err != nil {
		return Token{}, &apierr.AuthError{Err: fmt.Errorf("failed to marshal token request: %w", err)}
	}

	url := m.creds.BaseURL + "/api/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Token{}, &apierr.AuthError{Err: fmt.Errorf("failed to create token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Token{}, &apierr.AuthError{Err: fmt.Errorf("token request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Token{}, &apierr.AuthError{StatusCode: resp.StatusCode, Detail: string(detail)}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Token{}, &apierr.AuthError{Err: fmt.Errorf("failed to decode token response: %w", err)}
	}
	if tr.AccessToken == "" {
		return Token{}, &apierr.AuthError{Detail: "token response missing access_token"}
	}

	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}

	return Token{
		AccessToken: tr.AccessToken,
		ExpiresAt:   m.now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}
