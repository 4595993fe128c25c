package trailfeed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/odtweather/trail/server/internal/lib/trail"
)

// MockHTTPDoer is a mock implementation of HTTPDoer
type MockHTTPDoer struct {
	mock.Mock
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

const profileJSON = `[
  {"lon": -121.0, "lat": 43.9, "distance": 0, "elevation": 4200},
  {"lon": -121.01, "lat": 43.91, "distance": 0.85, "elevation": 4310}
]`

const waterJSON = `[
  {"mile": 12.4, "lat": 43.8, "lon": -120.9, "name": "reliable: Cabin spring", "landmark": "", "subcategory": "reliable"},
  {"mile": 31.0, "lat": 43.7, "lon": -120.8, "name": "Cow tank", "subcategory": "other"}
]`

func TestFetchSamples_Success(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.URL.String() == "https://data.example.org/odt/elevation-profile.json"
	})).Return(createMockResponse(200, profileJSON), nil)

	client := NewClientWithHTTPDoer("https://data.example.org/odt/", mockHTTP)

	samples, err := client.FetchSamples(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 0.85, samples[1].Distance)
	assert.Equal(t, 4310.0, samples[1].Elevation)
	mockHTTP.AssertExpectations(t)
}

func TestFetchPOIs_TagsCategory(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(createMockResponse(200, waterJSON), nil)

	client := NewClientWithHTTPDoer("https://data.example.org", mockHTTP)

	pois, err := client.FetchPOIs(context.Background(), trail.Water)
	require.NoError(t, err)
	require.Len(t, pois, 2)
	for _, p := range pois {
		assert.Equal(t, trail.Water, p.Category)
	}
	assert.Equal(t, "reliable", pois[0].Subcategory)

	req := mockHTTP.Calls[0].Arguments.Get(0).(*http.Request)
	assert.Equal(t, "/water.json", req.URL.Path)
}

func TestFetch_HTTPErrorStatus(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(createMockResponse(404, "not found"), nil)

	client := NewClientWithHTTPDoer("https://data.example.org", mockHTTP)

	_, err := client.FetchWaypoints(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetch_TransportError(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(nil, errors.New("connection refused"))

	client := NewClientWithHTTPDoer("https://data.example.org", mockHTTP)

	_, err := client.FetchSamples(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFetch_MalformedJSON(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(createMockResponse(200, `{"oops":`), nil)

	client := NewClientWithHTTPDoer("https://data.example.org", mockHTTP)

	_, err := client.FetchSamples(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestClient_AgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/waypoints.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"lon": -121, "lat": 43.9, "mile": 0, "name": "Badlands TH"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)

	waypoints, err := client.FetchWaypoints(context.Background())
	require.NoError(t, err)
	require.Len(t, waypoints, 1)
	assert.Equal(t, "Badlands TH", waypoints[0].Name)

	_, err = client.FetchPOIs(context.Background(), trail.Toilets)
	assert.Error(t, err)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProfileFile), []byte(profileJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "water.json"), []byte(waterJSON), 0o644))

	src := NewDirSource(dir)

	samples, err := src.FetchSamples(context.Background())
	require.NoError(t, err)
	assert.Len(t, samples, 2)

	pois, err := src.FetchPOIs(context.Background(), trail.Water)
	require.NoError(t, err)
	assert.Equal(t, trail.Water, pois[1].Category)

	_, err = src.FetchWaypoints(context.Background())
	assert.Error(t, err, "missing file")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.FetchSamples(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
