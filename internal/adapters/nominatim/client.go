// Package nominatim is a geocoder backed by a Nominatim search endpoint.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/travelplan/itinerary-api/internal/platform/config"
	"github.com/travelplan/itinerary-api/internal/ports/out/geocoder"
)

// Client implements geocoder.Geocoder over HTTP.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func New(cfg config.GeocoderConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		userAgent: cfg.UserAgent,
		client:    httpClient,
	}
}

type place struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     struct {
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]geocoder.Candidate, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	// Nominatim's usage policy requires an identifying agent.
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("nominatim search failed: status=%d", resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("nominatim decode: %w", err)
	}

	out := make([]geocoder.Candidate, 0, len(places))
	for _, p := range places {
		c := geocoder.Candidate{Name: label(p)}
		if c.Name == "" {
			continue
		}
		if cc := strings.ToUpper(p.Address.CountryCode); cc != "" {
			c.CountryCode = &cc
		}
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lng, errLng := strconv.ParseFloat(p.Lon, 64)
		if errLat == nil && errLng == nil {
			c.Latitude, c.Longitude = &lat, &lng
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// label renders "City, Country" when both parts are known, else the display name.
func label(p place) string {
	if p.Name != "" && p.Address.Country != "" && p.Name != p.Address.Country {
		return p.Name + ", " + p.Address.Country
	}
	if p.Name != "" {
		return p.Name
	}
	return p.DisplayName
}
