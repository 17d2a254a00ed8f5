// Package geoip verifies the apparent egress location of this host against
// an expected country using the free ip-api.com lookup service.
package geoip

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/qaforge/checkout-agent/internal/models"
)

const (
	defaultBaseURL = "http://ip-api.com/json"
	// Total budget for one verification, sized to tolerate tunnel latency
	// right after a connect.
	defaultTimeout  = 12 * time.Second
	defaultMaxTries = 3
)

// Client looks up the egress IP of this host via ip-api.com. The free tier
// requires no API key and allows 45 requests per minute, far above what a
// QA run produces.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	timeout       time.Duration
	maxTries      uint
	retryInterval time.Duration
}

// ipAPIResponse is the JSON document returned by ip-api.com. Status is
// "success" or "fail"; Query is the IP address that was looked up.
type ipAPIResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	RegionName  string `json:"regionName"`
	City        string `json:"city"`
	Query       string `json:"query"`
}

type Option func(*Client)

// WithBaseURL overrides the lookup endpoint. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithTimeout bounds the total time of one Verify call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetryInterval sets the pause between lookup attempts. Used by tests.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) { c.retryInterval = d }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		baseURL:       defaultBaseURL,
		timeout:       defaultTimeout,
		maxTries:      defaultMaxTries,
		retryInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify answers whether the current egress point appears to be in the
// expected country. It never returns an error: the three outcomes (match,
// mismatch, lookup failure) are all carried in the snapshot so the caller
// can tell "we checked and it's wrong" from "we couldn't check".
func (c *Client) Verify(ctx context.Context, expectedCountry string) *models.LocationVerification {
	log := zap.S().Named("geoip")
	expected := strings.ToLower(expectedCountry)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := backoff.Retry(ctx, func() (*ipAPIResponse, error) {
		return c.lookup(ctx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryInterval)),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		log.Warnw("egress lookup failed", "expected", expected, "error", err)
		return &models.LocationVerification{
			Success:         false,
			ExpectedCountry: expected,
			Message:         fmt.Sprintf("location lookup failed: %v", err),
		}
	}

	detected := strings.ToLower(resp.CountryCode)
	v := &models.LocationVerification{
		Success:         detected == expected,
		DetectedCountry: detected,
		ExpectedCountry: expected,
		IP:              resp.Query,
		City:            resp.City,
		Region:          resp.RegionName,
		Country:         resp.Country,
	}
	if v.Success {
		v.Message = fmt.Sprintf("external IP %s egresses from %s", resp.Query, resp.Country)
	} else {
		v.Message = fmt.Sprintf("location mismatch: expected %s, detected %s (%s)", strings.ToUpper(expected), strings.ToUpper(detected), resp.Query)
	}
	return v
}

// lookup issues a single self-lookup (no IP in the path means "whoever is
// asking").
func (c *Client) lookup(ctx context.Context) (*ipAPIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip-api returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode ip-api response: %w", err))
	}
	if result.Status != "success" {
		// "fail" covers reserved ranges and throttling; retrying won't help
		// for the former and the poll budget is too small for the latter.
		return nil, backoff.Permanent(fmt.Errorf("ip-api lookup failed: %s", result.Message))
	}
	return &result, nil
}
