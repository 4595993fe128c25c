package position

import (
	"math"

	"github.com/odtweather/trail/server/internal/lib/trail"
)

// Summarize builds the info-panel view around a resolved position.
// maxMile is the trail length; progress fields stay zero when it is unknown.
func Summarize(r Result, waypoints []trail.Waypoint, water, towns []trail.PointOfInterest, maxMile float64) Summary {
	s := Summary{
		Result:   r,
		OffTrail: r.OffTrail(),
	}

	if wp, dist, ok := trail.NearestWaypointByMile(waypoints, r.Mile); ok {
		direction := Ahead
		switch {
		case dist < nearestExactMiles:
			direction = At
		case wp.Mile < r.Mile:
			direction = Back
		}
		name := wp.Name
		if name == "" {
			name = "Unknown"
		}
		s.NearestWaypoint = &NearbyWaypoint{
			Name:      name,
			Mile:      wp.Mile,
			Distance:  dist,
			Direction: direction,
		}
	}

	if next, ok := trail.NextAfter(water, r.Mile); ok {
		dist := next.Mile - r.Mile
		s.NextWater = &Upcoming{
			Name:     trail.DisplayName(next),
			Mile:     next.Mile,
			Distance: dist,
			Warning:  dist >= WaterWarningMiles,
		}
	}

	if next, ok := trail.NextAfter(towns, r.Mile); ok {
		s.NextTown = &Upcoming{
			Name:     trail.DisplayName(next),
			Mile:     next.Mile,
			Distance: next.Mile - r.Mile,
		}
	}

	if maxMile > 0 {
		mile := math.Max(0, math.Min(r.Mile, maxMile))
		s.PercentComplete = mile / maxMile * 100
		s.MilesToEnd = maxMile - mile
	}

	return s
}
