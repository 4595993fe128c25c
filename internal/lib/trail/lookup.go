package trail

import (
	"math"
	"regexp"
	"strings"
)

var reliablePrefix = regexp.MustCompile(`(?i)^reliable:\s*`)

// NearestWaypointByMile finds the waypoint whose mile is closest to mile
func NearestWaypointByMile(waypoints []Waypoint, mile float64) (Waypoint, float64, bool) {
	if len(waypoints) == 0 {
		return Waypoint{}, 0, false
	}

	nearest := waypoints[0]
	minDist := math.Abs(nearest.Mile - mile)
	for _, wp := range waypoints[1:] {
		if d := math.Abs(wp.Mile - mile); d < minDist {
			minDist = d
			nearest = wp
		}
	}
	return nearest, minDist, true
}

// NextAfter returns the closest POI strictly ahead of mile
func NextAfter(pois []PointOfInterest, mile float64) (PointOfInterest, bool) {
	var next PointOfInterest
	found := false
	for _, poi := range pois {
		if poi.Mile <= mile+MileEpsilon {
			continue
		}
		if !found || poi.Mile < next.Mile {
			next = poi
			found = true
		}
	}
	return next, found
}

// DisplayName prefers the landmark, falling back to the name
func DisplayName(poi PointOfInterest) string {
	if strings.TrimSpace(poi.Landmark) != "" {
		return poi.Landmark
	}
	return strings.TrimSpace(reliablePrefix.ReplaceAllString(poi.Name, ""))
}

// ShortName is DisplayName trimmed for map labels
func ShortName(poi PointOfInterest) string {
	if strings.TrimSpace(poi.Landmark) != "" {
		s := strings.Split(poi.Landmark, "(")[0]
		s = strings.Split(s, "/")[0]
		return strings.TrimSpace(s)
	}
	name := strings.TrimSpace(reliablePrefix.ReplaceAllString(poi.Name, ""))
	return strings.TrimSpace(strings.Split(name, ",")[0])
}
