package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkellner/shopctl/internal/apierr"
	"github.com/mkellner/shopctl/internal/config"
)

type authServer struct {
	*httptest.Server
	exchanges atomic.Int64
	fail      atomic.Bool
	token     atomic.Int64
}

func newAuthServer(t *testing.T, expiresIn int) *authServer {
	t.Helper()
	as := &authServer{}
	as.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/oauth/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "client_credentials", req["grant_type"])
		assert.Equal(t, "key", req["client_id"])
		assert.Equal(t, "secret", req["client_secret"])

		as.exchanges.Add(1)
		if as.fail.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errors":[{"title":"invalid client"}]}`))
			return
		}
		n := as.token.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"token_type":   "Bearer",
			"access_token": "tok-" + string(rune('a'+n-1)),
			"expires_in":   expiresIn,
		})
	}))
	t.Cleanup(as.Close)
	return as
}

func newTestManager(t *testing.T, srv *authServer) *Manager {
	t.Helper()
	creds, err := config.FromValues(srv.URL, "key", "secret")
	require.NoError(t, err)
	return NewManager(creds, srv.Client(), zerolog.Nop())
}

func TestBearerObtainsAndReusesToken(t *testing.T) {
	srv := newAuthServer(t, 600)
	m := newTestManager(t, srv)

	tok, err := m.Bearer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-a", tok)

	// While the token is outside the refresh margin no exchange happens.
	for i := 0; i < 5; i++ {
		again, err := m.Bearer(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tok, again)
	}
	assert.EqualValues(t, 1, srv.exchanges.Load())
}

func TestBearerRefreshesWithinMargin(t *testing.T) {
	srv := newAuthServer(t, 600)
	m := newTestManager(t, srv)

	_, err := m.Bearer(context.Background())
	require.NoError(t, err)

	// Advance the clock to 30s before expiry: inside the 60s margin.
	base := time.Now()
	m.now = func() time.Time { return base.Add(570 * time.Second) }

	tok, err := m.Bearer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-b", tok)
	assert.EqualValues(t, 2, srv.exchanges.Load())
}

func TestConcurrentCallersShareOneRefresh(t *testing.T) {
	srv := newAuthServer(t, 600)
	m := newTestManager(t, srv)

	var wg sync.WaitGroup
	tokens := make([]string, 16)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := m.Bearer(context.Background())
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, srv.exchanges.Load())
	for _, tok := range tokens {
		assert.Equal(t, "tok-a", tok)
	}
}

func TestExchangeFailureSurfacesAuthError(t *testing.T) {
	srv := newAuthServer(t, 600)
	srv.fail.Store(true)
	m := newTestManager(t, srv)

	_, err := m.Bearer(context.Background())
	require.Error(t, err)
	var ae *apierr.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusUnauthorized, ae.StatusCode)
	assert.Contains(t, ae.Detail, "invalid client")
}

func TestExpiredTokenNeverServedAfterFailedRefresh(t *testing.T) {
	srv := newAuthServer(t, 600)
	m := newTestManager(t, srv)

	_, err := m.Bearer(context.Background())
	require.NoError(t, err)

	base := time.Now()
	m.now = func() time.Time { return base.Add(time.Hour) }
	srv.fail.Store(true)

	// The stale token stays cached but is not returned.
	_, err = m.Bearer(context.Background())
	require.Error(t, err)
	assert.True(t, apierr.IsAuth(err))

	// Once the endpoint recovers a fresh token is issued.
	srv.fail.Store(false)
	tok, err := m.Bearer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-b", tok)
}

func TestForceRefreshDiscardsValidToken(t *testing.T) {
	srv := newAuthServer(t, 600)
	m := newTestManager(t, srv)

	first, err := m.Bearer(context.Background())
	require.NoError(t, err)

	second, err := m.ForceRefresh(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.EqualValues(t, 2, srv.exchanges.Load())
}

func TestTokenUsable(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		token  Token
		usable bool
	}{
		{"empty", Token{}, false},
		{"well before expiry", Token{AccessToken: "t", ExpiresAt: now.Add(10 * time.Minute)}, true},
		{"inside margin", Token{AccessToken: "t", ExpiresAt: now.Add(30 * time.Second)}, false},
		{"expired", Token{AccessToken: "t", ExpiresAt: now.Add(-time.Minute)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.Usable(now); got != tt.usable {
				t.Fatalf("Usable() = %v, want %v", got, tt.usable)
			}
		})
	}
}
