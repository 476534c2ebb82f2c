package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Scopes requested during authorization. activity:read_all covers
// followers-only and private activities.
var Scopes = []string{"read", "activity:read_all", "activity:write"}

// refreshMargin is how long before expiry a token is refreshed.
const refreshMargin = 600 * time.Second

// Token holds an OAuth token pair as issued by Strava.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Expired reports whether the access token is expired or about to expire.
func (t Token) Expired() bool {
	return time.Now().Add(refreshMargin).Unix() >= t.ExpiresAt
}

// OAuth performs the Strava authorization-code flow.
type OAuth struct {
	clientID     int
	clientSecret string
	baseURL      string
	http         *http.Client
}

// OAuthOption configures the OAuth helper.
type OAuthOption func(*OAuth)

// WithOAuthBaseURL sets a custom OAuth base URL (for testing).
func WithOAuthBaseURL(url string) OAuthOption {
	return func(o *OAuth) {
		o.baseURL = url
	}
}

// WithOAuthHTTPClient sets a custom HTTP client.
func WithOAuthHTTPClient(hc *http.Client) OAuthOption {
	return func(o *OAuth) {
		o.http = hc
	}
}

// NewOAuth creates an OAuth helper for the given application credentials.
func NewOAuth(clientID int, clientSecret string, opts ...OAuthOption) *OAuth {
	o := &OAuth{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      "https://www.strava.com/oauth",
		http:         &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AuthorizationURL builds the URL the athlete must visit to grant access.
func (o *OAuth) AuthorizationURL(redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", strconv.Itoa(o.clientID))
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("approval_prompt", "auto")
	q.Set("scope", strings.Join(Scopes, ","))
	return o.baseURL + "/authorize?" + q.Encode()
}

// Exchange trades an authorization code for a token pair.
func (o *OAuth) Exchange(ctx context.Context, code string) (*Token, error) {
	return o.tokenRequest(ctx, url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	})
}

// Refresh obtains a fresh token pair from a refresh token.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	return o.tokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

func (o *OAuth) tokenRequest(ctx context.Context, form url.Values) (*Token, error) {
	form.Set("client_id", strconv.Itoa(o.clientID))
	form.Set("client_secret", o.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "strava: create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "strava: token request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "strava: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("strava: token endpoint status %d: %s", resp.StatusCode, string(body))
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, eris.Wrap(err, "strava: unmarshal token")
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, eris.New("strava: token response missing tokens")
	}
	return &tok, nil
}

// Authorize runs the interactive authorization flow: it starts a loopback
// callback server, prints the authorization URL and waits for the athlete
// to approve access in the browser.
func (o *OAuth) Authorize(ctx context.Context) (*Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, eris.Wrap(err, "strava: listen for callback")
	}
	redirectURI := fmt.Sprintf("http://%s/callback", ln.Addr().String())

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{AllowedOrigins: []string{"https://www.strava.com"}}))
	r.Get("/callback", func(w http.ResponseWriter, req *http.Request) {
		if errMsg := req.URL.Query().Get("error"); errMsg != "" {
			http.Error(w, "authorization denied", http.StatusForbidden)
			errCh <- eris.Errorf("strava: authorization denied: %s", errMsg)
			return
		}
		code := req.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- eris.New("strava: callback missing code")
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "Authorization complete. You can close this tab.")
		codeCh <- code
	})

	srv := &http.Server{Handler: r}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- eris.Wrap(err, "strava: callback server")
		}
	}()
	defer srv.Shutdown(context.Background())

	authURL := o.AuthorizationURL(redirectURI)
	fmt.Printf("Open this URL in your browser to authorize access:\n\n  %s\n\n", authURL)
	zap.L().Info("waiting for authorization callback", zap.String("redirect_uri", redirectURI))

	select {
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "strava: authorization")
	case err := <-errCh:
		return nil, err
	case code := <-codeCh:
		return o.Exchange(ctx, code)
	}
}
