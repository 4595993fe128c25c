package position

import (
	"math"

	"github.com/odtweather/trail/server/internal/lib/geo"
	"github.com/odtweather/trail/server/internal/lib/trail"
)

// Resolver maps coordinates onto the trail using whatever geometry is loaded
type Resolver struct {
	geometry Geometry
	geoUtils geo.GeoUtils
}

// NewResolver creates a Resolver over geometry
func NewResolver(geometry Geometry) *Resolver {
	return &Resolver{
		geometry: geometry,
		geoUtils: geo.NewGeoUtils(),
	}
}

// Resolve returns the mile marker and off-trail distance for a coordinate.
// Missing data degrades to zero values.
func (r *Resolver) Resolve(lat, lon float64) Result {
	return resolve(r.geoUtils, geo.Point{Latitude: lat, Longitude: lon},
		r.geometry.CachedWaypoints(), r.geometry.CachedSamples())
}

// Resolve is the pure form of Resolver.Resolve
func Resolve(query geo.Point, waypoints []trail.Waypoint, samples []trail.TrailSample) Result {
	return resolve(geo.NewGeoUtils(), query, waypoints, samples)
}

func resolve(g geo.GeoUtils, query geo.Point, waypoints []trail.Waypoint, samples []trail.TrailSample) Result {
	return Result{
		Mile:                  nearestWaypointMile(g, query, waypoints),
		OffTrailDistanceMiles: g.PointToPolylineMiles(query, track(waypoints, samples)),
	}
}

// nearestWaypointMile snaps to the closest waypoint in degree space.
// The mile is never interpolated between waypoints.
func nearestWaypointMile(g geo.GeoUtils, query geo.Point, waypoints []trail.Waypoint) float64 {
	if len(waypoints) == 0 {
		return 0
	}

	mile := waypoints[0].Mile
	minDist := math.Inf(1)
	for _, wp := range waypoints {
		if d := g.DegreeDistance(query, wp.Point()); d < minDist {
			minDist = d
			mile = wp.Mile
		}
	}
	return mile
}

// track picks the densest geometry available for the off-trail projection
func track(waypoints []trail.Waypoint, samples []trail.TrailSample) geo.Polyline {
	if len(samples) >= 2 || len(waypoints) == 0 {
		points := make([]geo.Point, len(samples))
		for i, s := range samples {
			points[i] = s.Point()
		}
		return geo.Polyline{Points: points}
	}

	points := make([]geo.Point, len(waypoints))
	for i, wp := range waypoints {
		points[i] = wp.Point()
	}
	return geo.Polyline{Points: points}
}
