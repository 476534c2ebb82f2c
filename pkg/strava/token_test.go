package strava

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	tok := Token{AccessToken: "at", RefreshToken: "rt", ExpiresAt: 1900000000}

	require.NoError(t, SaveToken(path, tok))

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, tok, *got)
}

func TestLoadToken_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadToken(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestLoadToken_Tampered(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	tok := Token{AccessToken: "at", RefreshToken: "rt", ExpiresAt: 1900000000}
	require.NoError(t, SaveToken(path, tok))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"at"`, `"forged"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0o600))

	_, err = LoadToken(path)
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestLoadToken_Garbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := LoadToken(path)
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestTokenManager_RefreshesExpired(t *testing.T) {
	t.Parallel()

	var refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "rt-old", r.Form.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-new","refresh_token":"rt-new","expires_at":4102444800}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "credentials.json")
	stale := Token{
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
		ExpiresAt:    time.Now().Add(time.Minute).Unix(), // inside the refresh margin
	}
	require.NoError(t, SaveToken(path, stale))

	o := NewOAuth(12345, "secret", WithOAuthBaseURL(srv.URL))
	m, err := NewTokenManager(o, path)
	require.NoError(t, err)

	at, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-new", at)
	assert.Equal(t, int32(1), refreshes.Load())

	// The refreshed pair is persisted and reused without another refresh.
	at, err = m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-new", at)
	assert.Equal(t, int32(1), refreshes.Load())

	stored, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "rt-new", stored.RefreshToken)
}

func TestTokenManager_FreshTokenNotRefreshed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected refresh request")
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "credentials.json")
	tok := Token{AccessToken: "at", RefreshToken: "rt", ExpiresAt: 4102444800}

	o := NewOAuth(12345, "secret", WithOAuthBaseURL(srv.URL))
	m, err := NewTokenManagerWithToken(o, path, tok)
	require.NoError(t, err)

	at, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at", at)
}
