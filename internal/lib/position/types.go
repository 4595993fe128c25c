package position

import (
	"github.com/odtweather/trail/server/internal/lib/trail"
)

// OffTrailThreshold is the distance in miles beyond which a hiker is off trail
const OffTrailThreshold = 0.5

// WaterWarningMiles flags long dry stretches to the next water source
const WaterWarningMiles = 20.0

// nearestExactMiles is how close a waypoint must be to be reported as "at" it
const nearestExactMiles = 0.05

// Result is a resolved trail position
type Result struct {
	Mile                  float64 `json:"mile"`
	OffTrailDistanceMiles float64 `json:"off_trail_distance_miles"`
}

// OffTrail reports whether the position is beyond OffTrailThreshold
func (r Result) OffTrail() bool {
	return r.OffTrailDistanceMiles > OffTrailThreshold
}

// Geometry exposes the loaded trail geometry without blocking
type Geometry interface {
	CachedWaypoints() []trail.Waypoint
	CachedSamples() []trail.TrailSample
}

// Direction of a waypoint relative to the current mile
type Direction string

const (
	Ahead Direction = "ahead"
	Back  Direction = "back"
	At    Direction = "at"
)

// NearbyWaypoint is the waypoint closest to the current mile
type NearbyWaypoint struct {
	Name      string    `json:"name"`
	Mile      float64   `json:"mile"`
	Distance  float64   `json:"distance"`
	Direction Direction `json:"direction"`
}

// Upcoming is the next POI of a category ahead of the current mile
type Upcoming struct {
	Name     string  `json:"name"`
	Mile     float64 `json:"mile"`
	Distance float64 `json:"distance"`
	Warning  bool    `json:"warning,omitempty"`
}

// Summary is the info-panel view of a resolved position
type Summary struct {
	Result
	OffTrail        bool            `json:"off_trail"`
	NearestWaypoint *NearbyWaypoint `json:"nearest_waypoint,omitempty"`
	NextWater       *Upcoming       `json:"next_water,omitempty"`
	NextTown        *Upcoming       `json:"next_town,omitempty"`
	PercentComplete float64         `json:"percent_complete"`
	MilesToEnd      float64         `json:"miles_to_end"`
}
