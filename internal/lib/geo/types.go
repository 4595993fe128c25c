package geo

// Point represents a geographic coordinate
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// LocalPoint is a position on a local tangent plane, in miles
type LocalPoint struct {
	X float64
	Y float64
}

// Polyline represents an ordered point sequence with optional encoded form
type Polyline struct {
	EncodedPolyline string  `json:"encoded_polyline,omitempty"`
	Points          []Point `json:"points"`
}

// GeoUtils interface defines geographic calculation utilities
type GeoUtils interface {
	// Calculate great-circle distance between two points in meters
	PointToPoint(p1, p2 Point) (float64, error)

	// Distance in miles on the tangent plane anchored at refLat
	PlanarDistanceMiles(p1, p2 Point, refLat float64) float64

	// Minimum planar distance in miles from point to polyline segments
	PointToPolylineMiles(point Point, polyline Polyline) float64

	// Raw degree-space distance, hypot(dLon, dLat)
	DegreeDistance(p1, p2 Point) float64

	// Encode point sequence as a Google polyline string
	EncodePolyline(points []Point) string

	// Decode Google polyline string to point sequence
	DecodePolyline(encoded string) ([]Point, error)
}

// NewGeoUtils is implemented in geo.go
