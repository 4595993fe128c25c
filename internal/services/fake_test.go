package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odtweather/trail/server/internal/cache"
	"github.com/odtweather/trail/server/internal/config"
	"github.com/odtweather/trail/server/internal/lib/geo"
	"github.com/odtweather/trail/server/internal/lib/trail"
	"github.com/odtweather/trail/server/internal/lib/viewport"
	"github.com/odtweather/trail/server/internal/stream"
)

const trailLon = -120.0

var errFeedDown = errors.New("feed down")

// mileLat is the latitude of a mile on the test trail, which runs due north
func mileLat(mile float64) float64 {
	return 43.0 + mile/geo.MilesPerDegree
}

// stubSource serves a 40 mile trail with a sample every half mile and a
// waypoint every five
type stubSource struct {
	mu           sync.Mutex
	samplesErr   error
	waypointsErr error
	poiErr       error
	poiCalls   map[trail.Category]int
	pois       map[trail.Category][]trail.PointOfInterest

	// When set, FetchWaypoints closes started and blocks until gate closes
	gate    chan struct{}
	started chan struct{}
	once    sync.Once

	// When set, FetchPOIs closes poiStarted and blocks until poiGate closes
	poiGate    chan struct{}
	poiStarted chan struct{}
	poiOnce    sync.Once
}

func newStubSource() *stubSource {
	return &stubSource{
		poiCalls: map[trail.Category]int{},
		pois: map[trail.Category][]trail.PointOfInterest{
			trail.Water: {{Mile: 12, Lon: trailLon, Lat: mileLat(12), Name: "Spring", Subcategory: "reliable"}},
			trail.Towns: {{Mile: 30, Lon: trailLon, Lat: mileLat(30), Name: "Paisley", Landmark: "Paisley"}},
		},
	}
}

func (s *stubSource) FetchSamples(ctx context.Context) ([]trail.TrailSample, error) {
	s.mu.Lock()
	err := s.samplesErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var samples []trail.TrailSample
	for i := 0; i <= 80; i++ {
		mile := float64(i) / 2
		samples = append(samples, trail.TrailSample{
			Lon:       trailLon,
			Lat:       mileLat(mile),
			Distance:  mile,
			Elevation: 4000 + 10*float64(i),
		})
	}
	return samples, nil
}

func (s *stubSource) FetchWaypoints(ctx context.Context) ([]trail.Waypoint, error) {
	if s.gate != nil {
		s.once.Do(func() { close(s.started) })
		<-s.gate
	}
	s.mu.Lock()
	err := s.waypointsErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var waypoints []trail.Waypoint
	for mile := 0.0; mile <= 40; mile += 5 {
		waypoints = append(waypoints, trail.Waypoint{
			Lon:  trailLon,
			Lat:  mileLat(mile),
			Mile: mile,
			Name: "WP" + string(rune('A'+int(mile/5))),
		})
	}
	return waypoints, nil
}

func (s *stubSource) FetchPOIs(ctx context.Context, category trail.Category) ([]trail.PointOfInterest, error) {
	if s.poiGate != nil {
		s.poiOnce.Do(func() { close(s.poiStarted) })
		<-s.poiGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poiCalls[category]++
	if s.poiErr != nil {
		return nil, s.poiErr
	}
	pois := s.pois[category]
	for i := range pois {
		pois[i].Category = category
	}
	return pois, nil
}

func (s *stubSource) setPOIErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poiErr = err
}

func (s *stubSource) setWaypointsErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waypointsErr = err
}

func (s *stubSource) calls(category trail.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poiCalls[category]
}

// testClock is a manually advanced clock shared by the cache and sessions
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

func noTimers(time.Duration, func()) viewport.Timer { return noopTimer{} }

type testEnv struct {
	source   *stubSource
	clock    *testClock
	config   *config.Config
	store    *trail.Store
	cache    *cache.Cache
	hub      *stream.Hub
	pois     *POIService
	sessions *SessionService
	api      *TrailService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		source: newStubSource(),
		clock:  &testClock{t: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)},
		config: config.DefaultConfig(),
	}
	env.store = trail.NewStore(env.source)
	env.cache = cache.NewCacheWithClock(env.clock.Now)
	env.hub = stream.NewHub(context.Background(), nil)
	env.pois = NewPOIService(env.source, env.cache, &env.config.Trail)
	env.sessions = NewSessionService(env.store, env.pois, env.hub, env.config)
	env.sessions.now = env.clock.Now
	env.sessions.afterFunc = noTimers
	env.api = NewTrailService(env.store, env.pois, env.sessions, env.hub)
	return env
}

// nextEvent reads session events until one of type typ arrives
func nextEvent(t *testing.T, c *stream.Client, typ string) Event {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case msg, ok := <-c.Send:
			require.True(t, ok, "stream closed")
			var ev Event
			require.NoError(t, json.Unmarshal(msg, &ev))
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s event", typ)
			return Event{}
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
