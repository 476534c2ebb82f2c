// Package strava provides a client for the Strava v3 API and its OAuth flow.
package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/tracklab/stravatag/internal/resilience"
)

// ErrNotFound indicates the requested resource does not exist or is not
// visible with the granted scopes.
var ErrNotFound = eris.New("strava: not found")

// TokenSource supplies a valid access token, refreshing it when needed.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client defines the Strava API operations the tagger uses.
type Client interface {
	// ListRecentActivities returns the athlete's most recent activities,
	// newest first.
	ListRecentActivities(ctx context.Context, count int) ([]SummaryActivity, error)
	// GetActivity fetches the full representation of one activity.
	GetActivity(ctx context.Context, id int64) (*DetailedActivity, error)
	// GetLatLngStream fetches the GPS track of an activity. Returns an
	// empty slice for activities without GPS data.
	GetLatLngStream(ctx context.Context, id int64) ([]LatLng, error)
	// UpdateActivity sets the activity's name and/or description.
	UpdateActivity(ctx context.Context, id int64, update UpdateRequest) error
}

// Option configures the Strava client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	tokens  TokenSource
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Strava API client.
func NewClient(tokens TokenSource, opts ...Option) Client {
	c := &httpClient{
		tokens:  tokens,
		baseURL: "https://www.strava.com/api/v3",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		// Strava allows 100 requests per 15 minutes; stay comfortably under.
		limiter: rate.NewLimiter(rate.Every(10*time.Second), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// do executes an authenticated API request with rate limiting and retries
// on transient failures, returning the response body.
func (c *httpClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrap(err, "strava: marshal request")
		}
	}

	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger(method + " " + path)

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "strava: rate limit wait")
		}

		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "strava: access token")
		}

		var body io.Reader
		if reqBody != nil {
			body = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, eris.Wrap(err, "strava: create request")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "strava: read response body")
		}

		if retryableStatusCode(resp.StatusCode) {
			return nil, resilience.NewTransientError(
				eris.Errorf("strava: status %d: %s", resp.StatusCode, string(respBody)),
				resp.StatusCode,
			)
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, eris.Errorf("strava: unexpected status %d: %s", resp.StatusCode, string(respBody))
		}
		return respBody, nil
	})
}

func (c *httpClient) ListRecentActivities(ctx context.Context, count int) ([]SummaryActivity, error) {
	if count <= 0 {
		count = 5
	}
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/athlete/activities?per_page=%d", count), nil)
	if err != nil {
		return nil, err
	}

	var activities []SummaryActivity
	if err := json.Unmarshal(body, &activities); err != nil {
		return nil, eris.Wrap(err, "strava: unmarshal activities")
	}
	return activities, nil
}

func (c *httpClient) GetActivity(ctx context.Context, id int64) (*DetailedActivity, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/activities/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var activity DetailedActivity
	if err := json.Unmarshal(body, &activity); err != nil {
		return nil, eris.Wrap(err, "strava: unmarshal activity")
	}
	return &activity, nil
}

func (c *httpClient) GetLatLngStream(ctx context.Context, id int64) ([]LatLng, error) {
	body, err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/activities/%d/streams?keys=latlng&key_by_type=true", id), nil)
	if err != nil {
		// Activities recorded without GPS have no streams at all.
		if errors.Is(err, ErrNotFound) {
			return []LatLng{}, nil
		}
		return nil, err
	}

	var streams streamSet
	if err := json.Unmarshal(body, &streams); err != nil {
		return nil, eris.Wrap(err, "strava: unmarshal streams")
	}

	track := make([]LatLng, 0, len(streams.LatLng.Data))
	for _, pair := range streams.LatLng.Data {
		if len(pair) != 2 {
			return nil, eris.Errorf("strava: malformed latlng sample of length %d", len(pair))
		}
		track = append(track, LatLng{Lat: pair[0], Lng: pair[1]})
	}
	return track, nil
}

func (c *httpClient) UpdateActivity(ctx context.Context, id int64, update UpdateRequest) error {
	if update.Name == nil && update.Description == nil {
		return nil
	}
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/activities/%d", id), update)
	return err
}
