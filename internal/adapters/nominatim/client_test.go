package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelplan/itinerary-api/internal/platform/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.GeocoderConfig{URL: srv.URL + "/", UserAgent: "itinerary-test/1", Timeout: 2 * time.Second}, nil)
}

func TestSearch_MapsResults(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "lisbon", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		assert.Equal(t, "itinerary-test/1", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"Lisbon","display_name":"Lisbon, Portugal","lat":"38.7077","lon":"-9.1365","address":{"country":"Portugal","country_code":"pt"}},
			{"name":"","display_name":"Lisbon, Maine, United States","lat":"bad","lon":"-70.1","address":{}},
			{"name":"","display_name":"","lat":"1","lon":"2","address":{}}
		]`))
	})

	got, err := c.Search(context.Background(), "lisbon", 3)

	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Lisbon, Portugal", got[0].Name)
	require.Equal(t, "PT", *got[0].CountryCode)
	require.InDelta(t, 38.7077, *got[0].Latitude, 1e-9)
	require.InDelta(t, -9.1365, *got[0].Longitude, 1e-9)

	require.Equal(t, "Lisbon, Maine, United States", got[1].Name)
	require.Nil(t, got[1].CountryCode)
	require.Nil(t, got[1].Latitude)
	require.Nil(t, got[1].Longitude)
}

func TestSearch_UpstreamError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := c.Search(context.Background(), "paris", 5)

	require.ErrorContains(t, err, "status=429")
}

func TestSearch_MalformedBody(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	})

	_, err := c.Search(context.Background(), "paris", 5)

	require.ErrorContains(t, err, "nominatim decode")
}
