package trailfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/odtweather/trail/server/internal/lib/trail"
)

const (
	ProfileFile   = "elevation-profile.json"
	WaypointsFile = "waypoints.json"
)

// POIFile is the file holding one category's points of interest
func POIFile(category trail.Category) string {
	return string(category) + ".json"
}

// HTTPDoer executes HTTP requests
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches the offline-built trail data files over HTTP
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

var _ trail.Source = (*Client)(nil)

// NewClient creates a client for data files published under baseURL
func NewClient(baseURL string) *Client {
	return NewClientWithHTTPDoer(baseURL, &http.Client{
		Timeout: 30 * time.Second,
	})
}

// NewClientWithHTTPDoer creates a client with a custom HTTP transport
func NewClientWithHTTPDoer(baseURL string, doer HTTPDoer) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: doer,
	}
}

// FetchSamples retrieves the dense elevation profile
func (c *Client) FetchSamples(ctx context.Context) ([]trail.TrailSample, error) {
	var samples []trail.TrailSample
	if err := c.getJSON(ctx, ProfileFile, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// FetchWaypoints retrieves the mile marker waypoints
func (c *Client) FetchWaypoints(ctx context.Context) ([]trail.Waypoint, error) {
	var waypoints []trail.Waypoint
	if err := c.getJSON(ctx, WaypointsFile, &waypoints); err != nil {
		return nil, err
	}
	return waypoints, nil
}

// FetchPOIs retrieves one category of points of interest
func (c *Client) FetchPOIs(ctx context.Context, category trail.Category) ([]trail.PointOfInterest, error) {
	var pois []trail.PointOfInterest
	if err := c.getJSON(ctx, POIFile(category), &pois); err != nil {
		return nil, err
	}
	return tagCategory(pois, category), nil
}

func (c *Client) getJSON(ctx context.Context, name string, v interface{}) error {
	requestURL := c.baseURL + "/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// tagCategory stamps the category onto POIs; the data files omit it
func tagCategory(pois []trail.PointOfInterest, category trail.Category) []trail.PointOfInterest {
	for i := range pois {
		pois[i].Category = category
	}
	return pois
}
