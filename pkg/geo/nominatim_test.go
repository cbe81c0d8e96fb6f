package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// The client must satisfy the interface venue creation consumes.
var _ Geocoder = (*NominatimClient)(nil)

func TestReverseResolvesCountryAndCity(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		require.Equal(t, "/reverse", r.URL.Path)
		require.Equal(t, "40.4093", r.URL.Query().Get("lat"))
		require.Equal(t, "49.8671", r.URL.Query().Get("lon"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"address":{"country":"Azerbaijan","city":"Baku"}}`))
	}))
	defer server.Close()

	client, err := NewNominatimClient("cultach-api", WithBaseURL(server.URL))
	require.NoError(t, err)

	place, err := client.Reverse(context.Background(), 40.4093, 49.8671)
	require.NoError(t, err)
	require.Equal(t, "Azerbaijan", place.Country)
	require.Equal(t, "Baku", place.City)
	require.Equal(t, "cultach-api", gotUserAgent)
}

func TestReverseFallsBackToTownAndVillage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"address":{"country":"Azerbaijan","town":"Sheki"}}`))
	}))
	defer server.Close()

	client, err := NewNominatimClient("cultach-api", WithBaseURL(server.URL))
	require.NoError(t, err)

	place, err := client.Reverse(context.Background(), 41.19, 47.17)
	require.NoError(t, err)
	require.Equal(t, "Sheki", place.City)
}

func TestReverseUnresolvableCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer server.Close()

	client, err := NewNominatimClient("cultach-api", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.Reverse(context.Background(), 0, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewNominatimClientRequiresUserAgent(t *testing.T) {
	_, err := NewNominatimClient("  ")
	require.Error(t, err)
}
