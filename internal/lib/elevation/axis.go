package elevation

import "math"

const (
	tickRound   = 100.0
	padFraction = 0.08
	minPadFeet  = 100.0
	narrowBands = 4
	wideBands   = 5
)

// Ticks is the vertical axis: the padded, rounded range and its tick marks
type Ticks struct {
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Interval float64   `json:"interval"`
	Values   []float64 `json:"values"`
}

// Axis pads the visible elevation range by 8% (at least 100 ft), rounds it
// outward to 100 ft, and snaps ticks to a 100 ft multiple interval
func Axis(minElev, maxElev float64, narrow bool) Ticks {
	pad := math.Max((maxElev-minElev)*padFraction, minPadFeet)
	lo := math.Floor((minElev-pad)/tickRound) * tickRound
	hi := math.Ceil((maxElev+pad)/tickRound) * tickRound
	return ticksBetween(lo, hi, narrow)
}

func ticksBetween(lo, hi float64, narrow bool) Ticks {
	bands := wideBands
	if narrow {
		bands = narrowBands
	}

	interval := math.Ceil((hi-lo)/float64(bands)/tickRound) * tickRound
	if interval <= 0 {
		interval = tickRound
	}

	t := Ticks{Min: lo, Max: hi, Interval: interval}
	for v := math.Ceil(lo/interval) * interval; v <= hi; v += interval {
		t.Values = append(t.Values, v)
	}
	return t
}
