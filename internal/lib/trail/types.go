package trail

import (
	"context"
	"errors"
	"strings"

	"github.com/odtweather/trail/server/internal/lib/geo"
)

// ErrUnavailable marks trail data that could not be loaded
var ErrUnavailable = errors.New("trail data unavailable")

// MileEpsilon separates "at" a mile marker from "after" it
const MileEpsilon = 0.01

// TrailSample is one dense point of the surveyed track
type TrailSample struct {
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
	Distance  float64 `json:"distance"`  // cumulative miles from the start
	Elevation float64 `json:"elevation"` // feet
}

// Point returns the sample location
func (s TrailSample) Point() geo.Point {
	return geo.Point{Latitude: s.Lat, Longitude: s.Lon}
}

// Waypoint is a sparse named mile marker
type Waypoint struct {
	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
	Mile     float64 `json:"mile"`
	Name     string  `json:"name"`
	Landmark string  `json:"landmark,omitempty"`
}

// Point returns the waypoint location
func (w Waypoint) Point() geo.Point {
	return geo.Point{Latitude: w.Lat, Longitude: w.Lon}
}

// Category groups points of interest
type Category string

const (
	Water      Category = "water"
	Towns      Category = "towns"
	Navigation Category = "navigation"
	Toilets    Category = "toilets"
)

// Categories lists every POI category in display order
var Categories = []Category{Water, Towns, Navigation, Toilets}

// ParseCategory maps a category name to a Category
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// PointOfInterest is a water source, town, navigation aid or toilet
type PointOfInterest struct {
	Mile        float64  `json:"mile"`
	Lon         float64  `json:"lon"`
	Lat         float64  `json:"lat"`
	Category    Category `json:"category"`
	Subcategory string   `json:"subcategory"`
	Name        string   `json:"name"`
	Landmark    string   `json:"landmark,omitempty"`
}

// IconKey identifies the chart icon for a POI
type IconKey string

const (
	IconWaterReliable IconKey = "water-reliable"
	IconWaterOther    IconKey = "water-other"
	IconTowns         IconKey = "towns"
	IconNavigation    IconKey = "navigation"
	IconToilets       IconKey = "toilets"
)

// IconKeyFor resolves the icon for a category, splitting water by reliability
func IconKeyFor(category Category, subcategory string) IconKey {
	if category == Water {
		if subcategory == "reliable" {
			return IconWaterReliable
		}
		return IconWaterOther
	}
	return IconKey(category)
}

// Source fetches the offline-built trail data
type Source interface {
	FetchSamples(ctx context.Context) ([]TrailSample, error)
	FetchWaypoints(ctx context.Context) ([]Waypoint, error)
	FetchPOIs(ctx context.Context, category Category) ([]PointOfInterest, error)
}
