package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogem/oauth-login/config"
)

func testConfig(t *testing.T, tokenEndpoint string) *config.Config {
	t.Helper()
	return &config.Config{
		ClientID:              "client-123.apps.googleusercontent.com",
		ClientSecret:          "sup3r-s3cr3t-value",
		RedirectURI:           "http://127.0.0.1:5000/oauth2/callback",
		SessionSecret:         "test-session-secret",
		AuthorizationEndpoint: "https://accounts.google.com/o/oauth2/v2/auth",
		TokenEndpoint:         tokenEndpoint,
		Scopes:                []string{"openid", "email", "profile"},
		StateTTL:              10 * time.Minute,
		TokenExchangeTimeout:  5 * time.Second,
		StateStore:            config.StateStoreSQLite,
		DatabaseFile:          filepath.Join(t.TempDir(), "oauth_login.db"),
		HousekeepingInterval:  time.Hour,
		AuditRetention:        24 * time.Hour,
		Port:                  "0",
		Env:                   "test",
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := newApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	server := httptest.NewServer(a.router)
	t.Cleanup(server.Close)
	return server
}

func noRedirectClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestHealth(t *testing.T) {
	server := newTestApp(t, testConfig(t, "https://oauth2.googleapis.com/token"))

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, serviceName, body["service"])
}

func TestNotFound(t *testing.T) {
	server := newTestApp(t, testConfig(t, "https://oauth2.googleapis.com/token"))

	resp, err := http.Get(server.URL + "/does-not-exist")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProtectedRoutesRedirectHome(t *testing.T) {
	server := newTestApp(t, testConfig(t, "https://oauth2.googleapis.com/token"))
	client := noRedirectClient(t)

	for _, path := range []string{"/welcome", "/dashboard"} {
		resp, err := client.Get(server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/", resp.Header.Get("Location"), path)
	}
}

func TestLoginWithSQLiteStateStore(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var exchanges atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		idToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":   "https://accounts.google.com",
			"aud":   "client-123.apps.googleusercontent.com",
			"sub":   "1234567890",
			"email": "grace@example.com",
			"name":  "Grace Hopper",
			"exp":   time.Now().Add(time.Hour).Unix(),
		}).SignedString(key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "abc",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	}))
	defer tokenServer.Close()

	cfg := testConfig(t, tokenServer.URL)
	server := newTestApp(t, cfg)
	client := noRedirectClient(t)

	resp, err := client.Get(server.URL + "/login")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, cfg.RedirectURI, location.Query().Get("redirect_uri"))
	state := location.Query().Get("state")

	resp, err = client.Get(server.URL + "/oauth2/callback?code=xyz&state=" + url.QueryEscape(state))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/welcome", resp.Header.Get("Location"))

	resp, err = client.Get(server.URL + "/dashboard")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "grace@example.com")
	// Audit rows come from SQLite
	assert.Contains(t, string(body), "login_completed")
	assert.Equal(t, int32(1), exchanges.Load())
}

func TestLoginIsRateLimited(t *testing.T) {
	server := newTestApp(t, testConfig(t, "https://oauth2.googleapis.com/token"))
	client := noRedirectClient(t)

	var limited bool
	for i := 0; i < 30; i++ {
		resp, err := client.Get(server.URL + "/login")
		require.NoError(t, err)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			assert.NotEmpty(t, resp.Header.Get("Retry-After"))
			break
		}
		require.Equal(t, http.StatusFound, resp.StatusCode)
	}
	assert.True(t, limited, "expected /login to be rate limited")
}

func TestCallbackPath(t *testing.T) {
	assert.Equal(t, "/callback", callbackPath("http://localhost:5000/callback"))
	assert.Equal(t, "/auth/google", callbackPath("https://example.com/auth/google"))
	assert.Equal(t, "/callback", callbackPath("https://example.com"))
}
