package cache

import (
	"time"

	"github.com/odtweather/trail/server/internal/lib/trail"
)

const poiSource = "trail_data"

// POIKey is the cache key of a category's POI collection
func POIKey(category trail.Category) string {
	return "pois:" + string(category)
}

// SetPOIs caches a category's POI collection
func (c *Cache) SetPOIs(category trail.Category, pois []trail.PointOfInterest, ttl time.Duration) error {
	return c.Set(POIKey(category), pois, ttl, poiSource)
}

// GetPOIs returns a fresh POI collection
func (c *Cache) GetPOIs(category trail.Category) ([]trail.PointOfInterest, bool, error) {
	var pois []trail.PointOfInterest
	found, err := c.Get(POIKey(category), &pois)
	if err != nil || !found {
		return nil, false, err
	}
	return pois, true, nil
}

// GetStalePOIs returns a POI collection of any age along with whether it
// is past its refresh interval
func (c *Cache) GetStalePOIs(category trail.Category) (pois []trail.PointOfInterest, stale bool, found bool, err error) {
	entry, found, err := c.GetWithMetadata(POIKey(category), &pois)
	if err != nil || !found {
		return nil, false, found, err
	}
	return pois, c.now().After(entry.ExpiresAt), true, nil
}
