package trail

import (
	"math"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/odtweather/trail/server/internal/lib/geo"
)

const (
	feetPerMeter = 3.28084

	// Track segments that start this close to the previous segment's end
	// repeat its last point
	stitchThresholdMeters = 50.0
)

// ProfileFromGPX stitches every track segment into one sample sequence with
// cumulative miles and elevation in feet. Points without elevation carry the
// previous elevation forward.
func ProfileFromGPX(g *gpx.GPX) []TrailSample {
	geoUtils := geo.NewGeoUtils()

	var samples []TrailSample
	var prev *geo.Point
	cumulativeMeters := 0.0
	lastElevation := 0.0

	for ti := range g.Tracks {
		for si := range g.Tracks[ti].Segments {
			points := g.Tracks[ti].Segments[si].Points
			for pi := range points {
				pt := &points[pi]
				here := geo.Point{Latitude: pt.Latitude, Longitude: pt.Longitude}

				if prev != nil {
					d, err := geoUtils.PointToPoint(*prev, here)
					if err != nil {
						continue
					}
					if pi == 0 && d < stitchThresholdMeters {
						continue
					}
					cumulativeMeters += d
				}

				if pt.Elevation.NotNull() {
					lastElevation = math.Round(pt.Elevation.Value() * feetPerMeter)
				}

				samples = append(samples, TrailSample{
					Lon:       here.Longitude,
					Lat:       here.Latitude,
					Distance:  math.Round(cumulativeMeters/geo.MetersPerMile*1000) / 1000,
					Elevation: lastElevation,
				})
				p := here
				prev = &p
			}
		}
	}

	return samples
}
