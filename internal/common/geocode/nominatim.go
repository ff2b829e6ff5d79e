// Package geocode resolves postal codes to a city name and coordinates
// using the Nominatim search API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	commonhttp "github.com/jackhunterking/renoassist-forms/internal/common/http"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// Result is a resolved location.
type Result struct {
	City     string
	GeoPoint models.GeoPoint
}

type Client struct {
	baseURL     string
	countryCode string
	httpClient  *commonhttp.Client
}

func NewClient(baseURL, countryCode string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		countryCode: countryCode,
		httpClient:  commonhttp.NewClient(timeout),
	}
}

type nominatimHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// LookupPostalCode resolves a postal code. A postal code that does not
// resolve returns (nil, nil); only transport-level failures error.
func (c *Client) LookupPostalCode(ctx context.Context, postalCode string) (*Result, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("countrycodes", c.countryCode)
	q.Set("postalcode", postalCode)
	q.Set("limit", "1")

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Nominatim usage policy requires an identifying UA.
	req.Header.Set("User-Agent", "renoassist-forms/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode error (status %d)", resp.StatusCode)
	}

	var hits []nominatimHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(hits) == 0 {
		return nil, nil
	}

	hit := hits[0]
	lat, err := strconv.ParseFloat(hit.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", hit.Lat, err)
	}
	lng, err := strconv.ParseFloat(hit.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", hit.Lon, err)
	}

	return &Result{
		City:     cityFromDisplayName(hit.DisplayName),
		GeoPoint: models.GeoPoint{Lat: lat, Lng: lng},
	}, nil
}

// cityFromDisplayName extracts the city component from a Nominatim
// display name, preferring the second comma-separated part.
func cityFromDisplayName(displayName string) string {
	parts := strings.Split(displayName, ",")
	if len(parts) > 1 {
		if city := strings.TrimSpace(parts[1]); city != "" {
			return city
		}
	}
	if len(parts) > 0 {
		return strings.TrimSpace(parts[0])
	}
	return ""
}
