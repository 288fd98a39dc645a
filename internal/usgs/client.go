// Package usgs queries the USGS FDSN event web service for earthquake
// catalogs. Responses use the GeoJSON feed format.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/seisview/gmv/internal/models"
)

// Client provides access to the USGS event API
type Client struct {
	apiBaseURL string
	httpClient *http.Client
	timeout    time.Duration
}

// Region bounds a catalog query to a geographic box.
type Region struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// geoJSONFeed mirrors the subset of the GeoJSON event feed we consume.
type geoJSONFeed struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			Mag   float64 `json:"mag"`
			Place string  `json:"place"`
			Time  int64   `json:"time"` // milliseconds since epoch
			URL   string  `json:"url"`
		} `json:"properties"`
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // lon, lat, depth km
		} `json:"geometry"`
	} `json:"features"`
}

// NewClient creates a new USGS catalog client
func NewClient(apiBaseURL string, timeout time.Duration) *Client {
	return &Client{
		apiBaseURL: apiBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// FetchQuakes retrieves events of at least minMagnitude inside region
// between start and end, sorted by origin time ascending.
func (c *Client) FetchQuakes(ctx context.Context, region Region, minMagnitude float64, start, end time.Time) ([]models.Quake, error) {
	params := url.Values{}
	params.Set("format", "geojson")
	params.Set("starttime", start.UTC().Format("2006-01-02T15:04:05"))
	params.Set("endtime", end.UTC().Format("2006-01-02T15:04:05"))
	params.Set("minmagnitude", fmt.Sprintf("%g", minMagnitude))
	params.Set("minlatitude", fmt.Sprintf("%g", region.MinLatitude))
	params.Set("maxlatitude", fmt.Sprintf("%g", region.MaxLatitude))
	params.Set("minlongitude", fmt.Sprintf("%g", region.MinLongitude))
	params.Set("maxlongitude", fmt.Sprintf("%g", region.MaxLongitude))

	queryURL := fmt.Sprintf("%s/query?%s", c.apiBaseURL, params.Encode())

	resp, err := c.doRequest(ctx, queryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	var feed geoJSONFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	quakes := make([]models.Quake, 0, len(feed.Features))
	for _, f := range feed.Features {
		if len(f.Geometry.Coordinates) < 3 {
			continue
		}
		quakes = append(quakes, models.Quake{
			ID:        f.ID,
			Time:      time.UnixMilli(f.Properties.Time).UTC(),
			Longitude: f.Geometry.Coordinates[0],
			Latitude:  f.Geometry.Coordinates[1],
			DepthKm:   f.Geometry.Coordinates[2],
			Magnitude: f.Properties.Mag,
			Place:     f.Properties.Place,
			URL:       f.Properties.URL,
		})
	}

	sort.Slice(quakes, func(i, j int) bool {
		return quakes[i].Time.Before(quakes[j].Time)
	})

	return quakes, nil
}

// doRequest performs HTTP request with retry logic
func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	maxRetries := 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if err := backoff(ctx, i); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			if err := backoff(ctx, i); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// backoff waits out the linear retry delay, bailing early if ctx is done.
func backoff(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(attempt+1) * time.Second):
		return nil
	}
}
