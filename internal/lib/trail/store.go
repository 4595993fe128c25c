package trail

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"
)

// Store holds the immutable trail geometry, loaded once per process.
// Returned slices are shared and must not be mutated.
type Store struct {
	source    Source
	samples   memo[[]TrailSample]
	waypoints memo[[]Waypoint]
}

// NewStore creates a store backed by source
func NewStore(source Source) *Store {
	return &Store{source: source}
}

// Samples returns the dense sample sequence, fetching it on first use.
// Failures are logged, wrap ErrUnavailable, and are not cached.
func (s *Store) Samples(ctx context.Context) ([]TrailSample, error) {
	ctx = logging.EnsureLogger(ctx)
	samples, err := s.samples.load(ctx, func(ctx context.Context) ([]TrailSample, error) {
		samples, err := s.source.FetchSamples(ctx)
		if err != nil {
			return nil, err
		}
		if err := ValidateSamples(samples); err != nil {
			return nil, err
		}
		return samples, nil
	})
	if err != nil {
		logging.Errorw(ctx, "Failed to load elevation profile", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return samples, nil
}

// Waypoints returns the named waypoint sequence, fetching it on first use.
// Mile order is not validated.
func (s *Store) Waypoints(ctx context.Context) ([]Waypoint, error) {
	ctx = logging.EnsureLogger(ctx)
	waypoints, err := s.waypoints.load(ctx, s.source.FetchWaypoints)
	if err != nil {
		logging.Errorw(ctx, "Failed to load waypoints", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return waypoints, nil
}

// CachedSamples returns loaded samples without blocking, nil if none yet
func (s *Store) CachedSamples() []TrailSample {
	v, _ := s.samples.cached()
	return v
}

// CachedWaypoints returns loaded waypoints without blocking, nil if none yet
func (s *Store) CachedWaypoints() []Waypoint {
	v, _ := s.waypoints.cached()
	return v
}

// Loaded reports whether the sample sequence is available
func (s *Store) Loaded() bool {
	_, ok := s.samples.cached()
	return ok
}

// MaxMile is the last sample's distance, or 0 when unavailable
func (s *Store) MaxMile() float64 {
	return MaxMile(s.CachedSamples())
}

// MaxMile is the last sample's distance, or 0 for an empty sequence
func MaxMile(samples []TrailSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	return samples[len(samples)-1].Distance
}

// ValidateSamples checks the sequence starts at mile 0 and never decreases
func ValidateSamples(samples []TrailSample) error {
	if len(samples) == 0 {
		return fmt.Errorf("elevation profile is empty")
	}
	if samples[0].Distance != 0 {
		return fmt.Errorf("elevation profile starts at mile %.3f, want 0", samples[0].Distance)
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].Distance < samples[i-1].Distance {
			return fmt.Errorf("elevation profile distance decreases at index %d (%.3f < %.3f)",
				i, samples[i].Distance, samples[i-1].Distance)
		}
	}
	return nil
}

// memo is a load-once value with a single in-flight fetch. The pending call
// is installed before fetching so concurrent callers join it, and is replaced
// by the value on success or cleared on failure.
type memo[T any] struct {
	mu      sync.Mutex
	value   T
	loaded  bool
	pending *call[T]
}

type call[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func (m *memo[T]) cached() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.loaded
}

func (m *memo[T]) load(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	m.mu.Lock()
	if m.loaded {
		v := m.value
		m.mu.Unlock()
		return v, nil
	}
	c := m.pending
	if c == nil {
		c = &call[T]{done: make(chan struct{})}
		m.pending = c
		// A caller giving up must not abort the fetch others are waiting on
		go m.run(context.WithoutCancel(ctx), c, fetch)
	}
	m.mu.Unlock()

	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (m *memo[T]) run(ctx context.Context, c *call[T], fetch func(context.Context) (T, error)) {
	defer func() {
		if r := recover(); r != nil {
			stack, _ := errors.ParseStack(debug.Stack())
			logging.Errorw(ctx, "Trail data fetch: recovered from panic",
				"error", r, "error.stack_trace", stack.MinimalStack(3, 5))
			m.finish(c, *new(T), fmt.Errorf("fetch panicked: %v", r))
		}
	}()

	v, err := fetch(ctx)
	m.finish(c, v, err)
}

func (m *memo[T]) finish(c *call[T], v T, err error) {
	m.mu.Lock()
	if err == nil {
		m.value = v
		m.loaded = true
	}
	m.pending = nil
	c.value, c.err = v, err
	m.mu.Unlock()
	close(c.done)
}
