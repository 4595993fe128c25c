package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dpup/prefab/logging"

	"github.com/odtweather/trail/server/internal/cache"
	"github.com/odtweather/trail/server/internal/config"
	"github.com/odtweather/trail/server/internal/lib/trail"
)

// POIService serves per-category POI collections through the cache
type POIService struct {
	source trail.Source
	cache  *cache.Cache
	config *config.TrailConfig

	mu     sync.RWMutex
	onSwap []func(trail.Category, []trail.PointOfInterest)

	fetchMu  sync.Mutex
	inflight map[trail.Category]*poiFetch
}

// poiFetch is one in-flight source fetch that concurrent refreshes join
type poiFetch struct {
	done    chan struct{}
	waiters int
	pois    []trail.PointOfInterest
	err     error
}

// NewPOIService creates a new POIService
func NewPOIService(source trail.Source, cache *cache.Cache, config *config.TrailConfig) *POIService {
	return &POIService{
		source:   source,
		cache:    cache,
		config:   config,
		inflight: map[trail.Category]*poiFetch{},
	}
}

// POIs returns the collection for category. A fresh cached copy is served
// as is; otherwise the source is consulted and, if that fails, any cached
// copy is served regardless of age.
func (s *POIService) POIs(ctx context.Context, category trail.Category) ([]trail.PointOfInterest, error) {
	pois, found, err := s.cache.GetPOIs(category)
	if err != nil {
		logging.Warnw(logging.EnsureLogger(ctx), "POI cache read failed", "category", category, "error", err)
	}
	if found {
		return pois, nil
	}
	return s.refresh(ctx, category)
}

// Cached returns whatever collection is cached for category without
// fetching, nil if none
func (s *POIService) Cached(category trail.Category) []trail.PointOfInterest {
	pois, _, found, err := s.cache.GetStalePOIs(category)
	if err != nil || !found {
		return nil
	}
	return pois
}

// RefreshAll refetches every category, returning the joined errors of the
// categories that had nothing to fall back on
func (s *POIService) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, category := range trail.Categories {
		if _, err := s.refresh(ctx, category); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnSwap registers fn to receive every freshly fetched collection
func (s *POIService) OnSwap(fn func(trail.Category, []trail.PointOfInterest)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSwap = append(s.onSwap, fn)
}

// refresh fetches category once no matter how many callers ask at the same
// time; callers arriving during a fetch wait for its result
func (s *POIService) refresh(ctx context.Context, category trail.Category) ([]trail.PointOfInterest, error) {
	ctx = logging.EnsureLogger(ctx)

	s.fetchMu.Lock()
	if f, ok := s.inflight[category]; ok {
		f.waiters++
		s.fetchMu.Unlock()
		select {
		case <-f.done:
			return f.pois, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := &poiFetch{done: make(chan struct{})}
	s.inflight[category] = f
	s.fetchMu.Unlock()

	f.pois, f.err = s.fetch(context.WithoutCancel(ctx), category)

	s.fetchMu.Lock()
	delete(s.inflight, category)
	s.fetchMu.Unlock()
	close(f.done)
	return f.pois, f.err
}

func (s *POIService) fetch(ctx context.Context, category trail.Category) ([]trail.PointOfInterest, error) {
	pois, err := s.source.FetchPOIs(ctx, category)
	if err != nil {
		stale, _, found, cacheErr := s.cache.GetStalePOIs(category)
		if cacheErr == nil && found {
			logging.Warnw(ctx, "POI refresh failed, serving stale data", "category", category, "error", err)
			return stale, nil
		}
		logging.Errorw(ctx, "Failed to load POIs", "category", category, "error", err)
		return nil, fmt.Errorf("failed to load %s POIs: %w", category, err)
	}

	if err := s.cache.SetPOIs(category, pois, s.config.POIRefreshInterval); err != nil {
		logging.Warnw(ctx, "Failed to cache POIs", "category", category, "error", err)
	}
	logging.Debugw(ctx, "POIs refreshed", "category", category, "count", len(pois))

	s.mu.RLock()
	listeners := append([]func(trail.Category, []trail.PointOfInterest){}, s.onSwap...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(category, pois)
	}
	return pois, nil
}
