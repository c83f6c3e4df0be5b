package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/aquatrade/aquatrade-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://router.project-osrm.org"
	requestBodyReadLimit  int64 = 1024
	defaultRequestTimeout       = 10 * time.Second
)

// RoutingClient resolves driving distance through an OSRM-compatible routing API.
type RoutingClient struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*RoutingClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *RoutingClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured routing base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *RoutingClient) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewRoutingClient builds a routing client against the configured OSRM endpoint.
func NewRoutingClient(opts ...Option) *RoutingClient {
	client := &RoutingClient{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client
}

// DistanceKm queries the routing API for driving distance between two points.
func (c *RoutingClient) DistanceKm(ctx context.Context, origin, destination Point) (float64, error) {
	if c == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "routing client not configured")
	}

	// OSRM takes lng,lat pairs.
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		strings.TrimRight(c.baseURL, "/"),
		origin.Longitude, origin.Latitude,
		destination.Longitude, destination.Latitude,
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build route request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute route request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "route request failed")
	}

	var apiResp struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode route response")
	}

	if apiResp.Code != "Ok" || len(apiResp.Routes) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "no route found").WithDetails(map[string]any{"code": apiResp.Code})
	}

	return apiResp.Routes[0].Distance / 1000, nil
}

// FallbackResolver tries a primary resolver and falls back to haversine on error.
type FallbackResolver struct {
	Primary Resolver
}

// DistanceKm resolves through the primary resolver, degrading to haversine.
func (r FallbackResolver) DistanceKm(ctx context.Context, origin, destination Point) (float64, error) {
	if r.Primary != nil {
		if km, err := r.Primary.DistanceKm(ctx, origin, destination); err == nil {
			return km, nil
		}
	}
	return HaversineKm(origin, destination), nil
}
