package strava

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrNoToken indicates no usable stored token; the athlete must authorize
// again.
var ErrNoToken = eris.New("strava: no stored token")

// tokenFile is the on-disk shape. The checksum detects hand-edited or
// truncated credential files, which would otherwise surface as confusing
// 401s much later.
type tokenFile struct {
	Token    Token  `json:"token"`
	Checksum string `json:"checksum"`
}

func tokenChecksum(tok Token) (string, error) {
	data, err := json.Marshal(tok)
	if err != nil {
		return "", eris.Wrap(err, "strava: marshal token for checksum")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// SaveToken writes the token pair to path with an integrity checksum.
func SaveToken(path string, tok Token) error {
	checksum, err := tokenChecksum(tok)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenFile{Token: tok, Checksum: checksum}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "strava: marshal token file")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return eris.Wrap(err, "strava: write token file")
	}
	return nil
}

// LoadToken reads a stored token pair, returning ErrNoToken when the file
// is missing, unreadable or fails its integrity check.
func LoadToken(path string) (*Token, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, eris.Wrap(err, "strava: read token file")
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		zap.L().Warn("discarding unparseable token file", zap.String("path", path))
		return nil, ErrNoToken
	}
	checksum, err := tokenChecksum(tf.Token)
	if err != nil {
		return nil, err
	}
	if checksum != tf.Checksum {
		zap.L().Warn("discarding token file with bad checksum", zap.String("path", path))
		return nil, ErrNoToken
	}
	return &tf.Token, nil
}

// TokenManager implements TokenSource on top of a stored token pair,
// refreshing it ahead of expiry and persisting each new pair.
type TokenManager struct {
	oauth *OAuth
	path  string

	mu  sync.Mutex
	tok *Token
}

// NewTokenManager loads the stored token at path. It returns ErrNoToken
// when the athlete has not authorized yet.
func NewTokenManager(oauth *OAuth, path string) (*TokenManager, error) {
	tok, err := LoadToken(path)
	if err != nil {
		return nil, err
	}
	return &TokenManager{oauth: oauth, path: path, tok: tok}, nil
}

// NewTokenManagerWithToken persists the given freshly issued token and
// wraps it in a manager.
func NewTokenManagerWithToken(oauth *OAuth, path string, tok Token) (*TokenManager, error) {
	if err := SaveToken(path, tok); err != nil {
		return nil, err
	}
	return &TokenManager{oauth: oauth, path: path, tok: &tok}, nil
}

// AccessToken returns a valid access token, refreshing the stored pair
// when it is within the refresh margin of expiry.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.tok.Expired() {
		return m.tok.AccessToken, nil
	}

	fresh, err := m.oauth.Refresh(ctx, m.tok.RefreshToken)
	if err != nil {
		return "", eris.Wrap(err, "strava: refresh token")
	}
	if err := SaveToken(m.path, *fresh); err != nil {
		return "", err
	}
	m.tok = fresh
	zap.L().Debug("refreshed access token", zap.Int64("expires_at", fresh.ExpiresAt))
	return fresh.AccessToken, nil
}
