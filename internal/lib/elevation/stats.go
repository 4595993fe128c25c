package elevation

import (
	"math"
	"sort"

	"github.com/odtweather/trail/server/internal/lib/trail"
)

// WindowMiles is the fixed width of the viewport window
const WindowMiles = 20.0

// StatWindows are the nested forward windows reported in the stats strip
var StatWindows = []float64{5, 10, 20}

// Stats is cumulative climbing and descending in whole feet
type Stats struct {
	Gain int `json:"gain"`
	Loss int `json:"loss"`
}

// GainLoss sums positive and negative deltas between consecutive samples
func GainLoss(samples []trail.TrailSample) Stats {
	var gain, loss float64
	for i := 1; i < len(samples); i++ {
		delta := samples[i].Elevation - samples[i-1].Elevation
		if delta > 0 {
			gain += delta
		} else {
			loss += -delta
		}
	}
	return Stats{Gain: int(math.Round(gain)), Loss: int(math.Round(loss))}
}

// Forward returns the samples with start <= distance <= start+width.
// samples must be ordered by distance; the result shares its backing array.
func Forward(samples []trail.TrailSample, start, width float64) []trail.TrailSample {
	end := start + width
	lo := sort.Search(len(samples), func(i int) bool { return samples[i].Distance >= start })
	hi := sort.Search(len(samples), func(i int) bool { return samples[i].Distance > end })
	if lo >= hi {
		return nil
	}
	return samples[lo:hi]
}

// WindowStats is gain/loss over one forward window
type WindowStats struct {
	Miles float64 `json:"miles"`
	Stats
}

// Frame is a set of forward windows anchored at one mile
type Frame struct {
	FromMile float64       `json:"from_mile"`
	Windows  []WindowStats `json:"windows"`
}

// Strip holds the two reference frames shown above the chart. They diverge
// whenever the window has been panned away from the GPS position.
type Strip struct {
	GPS  Frame `json:"gps"`
	View Frame `json:"view"`
}

// FrameFrom computes every StatWindows entry forward of mile
func FrameFrom(samples []trail.TrailSample, mile float64) Frame {
	f := Frame{FromMile: mile, Windows: make([]WindowStats, len(StatWindows))}
	for i, w := range StatWindows {
		f.Windows[i] = WindowStats{Miles: w, Stats: GainLoss(Forward(samples, mile, w))}
	}
	return f
}

// StatsStrip computes the GPS-anchored and view-anchored frames
func StatsStrip(samples []trail.TrailSample, gpsMile, viewStart float64) Strip {
	return Strip{
		GPS:  FrameFrom(samples, gpsMile),
		View: FrameFrom(samples, viewStart),
	}
}

// ClampStart keeps a window of width inside [0, maxMile]
func ClampStart(start, maxMile, width float64) float64 {
	upper := math.Max(0, maxMile-width)
	return math.Max(0, math.Min(start, upper))
}

// NearestSample returns the sample closest to mile by distance
func NearestSample(samples []trail.TrailSample, mile float64) (trail.TrailSample, bool) {
	if len(samples) == 0 {
		return trail.TrailSample{}, false
	}
	i := sort.Search(len(samples), func(i int) bool { return samples[i].Distance >= mile })
	switch {
	case i == 0:
		return samples[0], true
	case i == len(samples):
		return samples[len(samples)-1], true
	}
	if mile-samples[i-1].Distance <= samples[i].Distance-mile {
		return samples[i-1], true
	}
	return samples[i], true
}

// ElevationAt interpolates the elevation at mile
func ElevationAt(samples []trail.TrailSample, mile float64) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	i := sort.Search(len(samples), func(i int) bool { return samples[i].Distance >= mile })
	switch {
	case i == 0:
		return samples[0].Elevation, true
	case i == len(samples):
		return samples[len(samples)-1].Elevation, true
	}
	a, b := samples[i-1], samples[i]
	span := b.Distance - a.Distance
	if span == 0 {
		return b.Elevation, true
	}
	t := (mile - a.Distance) / span
	return a.Elevation + t*(b.Elevation-a.Elevation), true
}

// ElevationRange returns the min and max elevation of samples
func ElevationRange(samples []trail.TrailSample) (min, max float64, ok bool) {
	if len(samples) == 0 {
		return 0, 0, false
	}
	min, max = samples[0].Elevation, samples[0].Elevation
	for _, s := range samples[1:] {
		min = math.Min(min, s.Elevation)
		max = math.Max(max, s.Elevation)
	}
	return min, max, true
}
