// Package integration fetches destination context (weather, points of interest, city
// details) from the integration service.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/littlelifetrip/ai-recommender/internal/types"
)

// DefaultTimeout bounds a single integration call.
const DefaultTimeout = 30 * time.Second

// UpstreamError reports a failed call to the integration service.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("integration %s failed (status %d): %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("integration %s failed: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Fetcher provides destination context.
type Fetcher interface {
	GetWeather(ctx context.Context, city string, startDate, endDate *string) (*types.Weather, error)
	SearchPOIs(ctx context.Context, city string, interests []string) ([]types.POI, error)
	GetCityInfo(ctx context.Context, city string) (json.RawMessage, error)
}

// Client calls the integration service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// NewClient creates a Client for baseURL. A non-positive timeout means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetWeather returns the forecast for a city, optionally bounded by dates.
func (c *Client) GetWeather(ctx context.Context, city string, startDate, endDate *string) (*types.Weather, error) {
	params := url.Values{"city": {city}}
	if startDate != nil {
		params.Set("start_date", *startDate)
	}
	if endDate != nil {
		params.Set("end_date", *endDate)
	}

	var weather types.Weather
	if err := c.do(ctx, http.MethodGet, "/weather/city", params, nil, &weather); err != nil {
		return nil, err
	}
	if weather.City == "" {
		weather.City = city
	}
	return &weather, nil
}

// SearchPOIs returns points of interest in a city that match the interests.
func (c *Client) SearchPOIs(ctx context.Context, city string, interests []string) ([]types.POI, error) {
	if interests == nil {
		interests = []string{}
	}
	body := map[string]any{"city": city, "interests": interests}

	var pois []types.POI
	if err := c.do(ctx, http.MethodPost, "/maps/pois", nil, body, &pois); err != nil {
		return nil, err
	}
	return pois, nil
}

// GetCityInfo returns general information about a city.
func (c *Client) GetCityInfo(ctx context.Context, city string) (json.RawMessage, error) {
	var info json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/maps/city", url.Values{"city": {city}}, nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// envelope is the integration service response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", strings.TrimSpace(excerpt(raw)))}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &UpstreamError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(env.Data) == 0 {
		return &UpstreamError{Endpoint: path, StatusCode: resp.StatusCode, Err: errors.New("response has no data field")}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &UpstreamError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode data: %w", err)}
	}
	return nil
}

func excerpt(b []byte) string {
	if r := []rune(string(b)); len(r) > 200 {
		return string(r[:200]) + "..."
	}
	return string(b)
}
