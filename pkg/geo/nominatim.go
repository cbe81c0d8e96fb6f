package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// ErrNotFound signals that no address could be resolved for the coordinates.
var ErrNotFound = errors.New("geo: no address for coordinates")

// Place holds the subset of the reverse-geocoding result the platform uses.
type Place struct {
	Country string
	City    string
}

// Geocoder resolves coordinates to a country and city.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (*Place, error)
}

// NominatimClient talks to a Nominatim-compatible reverse geocoding endpoint.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Option customises the NominatimClient.
type Option func(*NominatimClient)

// WithBaseURL points the client at a self-hosted Nominatim instance.
func WithBaseURL(base string) Option {
	return func(c *NominatimClient) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *NominatimClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewNominatimClient builds a reverse geocoding client. Nominatim's usage
// policy requires an identifying User-Agent.
func NewNominatimClient(userAgent string, opts ...Option) (*NominatimClient, error) {
	if strings.TrimSpace(userAgent) == "" {
		return nil, errors.New("geo: user agent is required")
	}

	client := &NominatimClient{
		baseURL:    defaultBaseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

type reverseResponse struct {
	Address struct {
		Country string `json:"country"`
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
	} `json:"address"`
	Error string `json:"error"`
}

// Reverse resolves the coordinates to a Place. Coordinates outside any known
// address yield ErrNotFound.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	query.Set("format", "jsonv2")

	endpoint := fmt.Sprintf("%s/reverse?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("geo: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo: reverse lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo: reverse lookup status %d", resp.StatusCode)
	}

	var payload reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("geo: decode response: %w", err)
	}

	if payload.Error != "" || payload.Address.Country == "" {
		return nil, ErrNotFound
	}

	city := payload.Address.City
	if city == "" {
		city = payload.Address.Town
	}
	if city == "" {
		city = payload.Address.Village
	}

	return &Place{Country: payload.Address.Country, City: city}, nil
}
