package geo

import (
	"errors"
	"math"

	"github.com/twpayne/go-polyline"
)

// MilesPerDegree is the flat-earth scale for one degree of latitude
const MilesPerDegree = 69.0

// ErrInvalidCoordinates rejects latitudes outside [-90, 90] or longitudes
// outside [-180, 180]
var ErrInvalidCoordinates = errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")

// MetersPerMile converts statute miles to meters
const MetersPerMile = 1609.344

// geoUtils implements the GeoUtils interface
type geoUtils struct{}

// NewGeoUtils creates a new GeoUtils implementation
func NewGeoUtils() GeoUtils {
	return &geoUtils{}
}

// PointToPoint calculates great-circle distance between two points using Haversine formula
func (g *geoUtils) PointToPoint(p1, p2 Point) (float64, error) {
	// Validate coordinates
	if !isValidCoordinate(p1) || !isValidCoordinate(p2) {
		return 0, ErrInvalidCoordinates
	}

	// If points are the same, distance is 0
	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0, nil
	}

	lat1 := p1.Latitude * math.Pi / 180
	lon1 := p1.Longitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	lon2 := p2.Longitude * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	// Earth's radius in meters
	const earthRadius = 6371000
	return earthRadius * c, nil
}

// ToLocal projects a point onto the tangent plane anchored at refLat.
// Valid over the short spans the resolver cares about, not geodesically exact.
func ToLocal(p Point, refLat float64) LocalPoint {
	return LocalPoint{
		X: p.Longitude * MilesPerDegree * math.Cos(refLat*math.Pi/180),
		Y: p.Latitude * MilesPerDegree,
	}
}

// PlanarDistanceMiles returns the tangent-plane distance between two points
func (g *geoUtils) PlanarDistanceMiles(p1, p2 Point, refLat float64) float64 {
	a := ToLocal(p1, refLat)
	b := ToLocal(p2, refLat)
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PointToPolylineMiles calculates minimum planar distance from point to polyline.
// The plane is anchored at the query point's latitude.
func (g *geoUtils) PointToPolylineMiles(point Point, polyline Polyline) float64 {
	switch len(polyline.Points) {
	case 0:
		return 0
	case 1:
		return g.PlanarDistanceMiles(point, polyline.Points[0], point.Latitude)
	}

	refLat := point.Latitude
	p := ToLocal(point, refLat)

	minDistance := math.Inf(1)
	prev := ToLocal(polyline.Points[0], refLat)
	for i := 1; i < len(polyline.Points); i++ {
		next := ToLocal(polyline.Points[i], refLat)
		if d := pointToSegment(p, prev, next); d < minDistance {
			minDistance = d
		}
		prev = next
	}

	return minDistance
}

// pointToSegment is the perpendicular distance from p to segment ab,
// clamped to the nearest endpoint outside the segment
func pointToSegment(p, a, b LocalPoint) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lengthSq := dx*dx + dy*dy

	// Zero-length segment: point distance
	if lengthSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lengthSq
	if t <= 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	if t >= 1 {
		return math.Hypot(p.X-b.X, p.Y-b.Y)
	}

	projX := a.X + t*dx
	projY := a.Y + t*dy
	return math.Hypot(p.X-projX, p.Y-projY)
}

// DegreeDistance is the raw degree-space distance used for nearest-vertex lookups
func (g *geoUtils) DegreeDistance(p1, p2 Point) float64 {
	return math.Hypot(p1.Longitude-p2.Longitude, p1.Latitude-p2.Latitude)
}

// EncodePolyline encodes points as a Google polyline string
func (g *geoUtils) EncodePolyline(points []Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline decodes Google polyline string to point sequence
func (g *geoUtils) DecodePolyline(encoded string) ([]Point, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, errors.New("failed to decode polyline: " + err.Error())
	}

	points := make([]Point, len(coords))
	for i, coord := range coords {
		points[i] = Point{
			Latitude:  coord[0],
			Longitude: coord[1],
		}

		if !isValidCoordinate(points[i]) {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}

	return points, nil
}

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !isValidCoordinate(point) {
		return Point{}, ErrInvalidCoordinates
	}
	return point, nil
}

// isValidCoordinate validates latitude and longitude values
func isValidCoordinate(point Point) bool {
	return point.Latitude >= -90 && point.Latitude <= 90 &&
		point.Longitude >= -180 && point.Longitude <= 180
}
