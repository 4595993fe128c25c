package trail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"
)

func TestIconKeyFor(t *testing.T) {
	assert.Equal(t, IconWaterReliable, IconKeyFor(Water, "reliable"))
	assert.Equal(t, IconWaterOther, IconKeyFor(Water, "seasonal"))
	assert.Equal(t, IconWaterOther, IconKeyFor(Water, "unreliable"))
	assert.Equal(t, IconTowns, IconKeyFor(Towns, "full"))
	assert.Equal(t, IconNavigation, IconKeyFor(Navigation, "junction"))
	assert.Equal(t, IconToilets, IconKeyFor(Toilets, ""))
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory(" Water ")
	assert.True(t, ok)
	assert.Equal(t, Water, c)

	_, ok = ParseCategory("weather")
	assert.False(t, ok)
}

func TestNearestWaypointByMile(t *testing.T) {
	_, _, ok := NearestWaypointByMile(nil, 3)
	assert.False(t, ok)

	waypoints := []Waypoint{{Mile: 0, Name: "A"}, {Mile: 4.5, Name: "B"}, {Mile: 9, Name: "C"}}
	wp, dist, ok := NearestWaypointByMile(waypoints, 5.1)
	require.True(t, ok)
	assert.Equal(t, "B", wp.Name)
	assert.InDelta(t, 0.6, dist, 1e-9)
}

func TestNextAfter(t *testing.T) {
	pois := []PointOfInterest{{Mile: 2, Name: "first"}, {Mile: 10, Name: "second"}, {Mile: 6, Name: "middle"}}

	next, ok := NextAfter(pois, 2.005)
	require.True(t, ok)
	assert.Equal(t, "middle", next.Name, "POI within epsilon of the current mile is not ahead")

	_, ok = NextAfter(pois, 10)
	assert.False(t, ok)
}

func TestDisplayAndShortName(t *testing.T) {
	withLandmark := PointOfInterest{Name: "reliable: spring", Landmark: "Sand Spring (piped) / trough"}
	assert.Equal(t, "Sand Spring (piped) / trough", DisplayName(withLandmark))
	assert.Equal(t, "Sand Spring", ShortName(withLandmark))

	noLandmark := PointOfInterest{Name: "Reliable: Fence Spring, north of road"}
	assert.Equal(t, "Fence Spring, north of road", DisplayName(noLandmark))
	assert.Equal(t, "Fence Spring", ShortName(noLandmark))
}

const testGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>Region 1</name>
    <trkseg>
      <trkpt lat="43.000" lon="-120.000"><ele>1000</ele></trkpt>
      <trkpt lat="43.010" lon="-120.000"><ele>1010</ele></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="43.0101" lon="-120.000"><ele>1011</ele></trkpt>
      <trkpt lat="43.020" lon="-120.000"></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestProfileFromGPX(t *testing.T) {
	g, err := gpx.ParseBytes([]byte(testGPX))
	require.NoError(t, err)

	samples := ProfileFromGPX(g)

	// The second segment's first point is within 50m of the first segment's end
	require.Len(t, samples, 3)
	assert.NoError(t, ValidateSamples(samples))

	assert.Equal(t, 0.0, samples[0].Distance)
	assert.Equal(t, 3281.0, samples[0].Elevation)
	assert.InDelta(t, 0.691, samples[1].Distance, 0.002)
	assert.InDelta(t, 1.382, samples[2].Distance, 0.003)
	assert.Equal(t, samples[1].Elevation, samples[2].Elevation, "missing elevation carries forward")
}
