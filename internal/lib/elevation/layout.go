package elevation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// NarrowWidth is the surface width below which the compact layout is used
	NarrowWidth = 500.0

	// StripHeight is the fixed height of the stats strip above the chart
	StripHeight = 34.0

	// GridMiles is the spacing of vertical gridlines
	GridMiles = 2.5

	labelMiles     = 0.5
	overviewOffset = 26.0
	overviewHeight = 6.0
)

// Insets are paddings around the plot area
type Insets struct {
	Top, Right, Bottom, Left float64
}

// IsNarrow reports whether a surface of width pixels uses the compact layout
func IsNarrow(width float64) bool {
	return width < NarrowWidth
}

// PaddingFor returns plot paddings, excluding the stats strip
func PaddingFor(narrow bool) Insets {
	if narrow {
		return Insets{Top: 30, Right: 40, Bottom: 50, Left: 70}
	}
	return Insets{Top: 35, Right: 50, Bottom: 55, Left: 80}
}

// Layout maps miles and feet onto surface pixels for one frame
type Layout struct {
	Width   float64
	Height  float64
	Narrow  bool
	Padding Insets
	Start   float64
	Miles   float64
	Ticks   Ticks
}

// NewLayout builds the layout of a window [start, start+miles] on a
// width x height surface with the given vertical axis
func NewLayout(width, height, start, miles float64, ticks Ticks) Layout {
	narrow := IsNarrow(width)
	pad := PaddingFor(narrow)
	pad.Top += StripHeight
	return Layout{
		Width:   width,
		Height:  height,
		Narrow:  narrow,
		Padding: pad,
		Start:   start,
		Miles:   miles,
		Ticks:   ticks,
	}
}

// Chart is the plot area
func (l Layout) Chart() Rect {
	return Rect{
		X: l.Padding.Left,
		Y: l.Padding.Top,
		W: math.Max(0, l.Width-l.Padding.Left-l.Padding.Right),
		H: math.Max(0, l.Height-l.Padding.Top-l.Padding.Bottom),
	}
}

// Strip is the stats strip area
func (l Layout) Strip() Rect {
	return Rect{X: 0, Y: 0, W: l.Width, H: StripHeight}
}

// PixelsPerMile is the horizontal scale, 0 for a degenerate layout
func (l Layout) PixelsPerMile() float64 {
	c := l.Chart()
	if l.Miles <= 0 || c.W <= 0 {
		return 0
	}
	return c.W / l.Miles
}

func (l Layout) XForMile(mile float64) float64 {
	return l.Chart().X + (mile-l.Start)*l.PixelsPerMile()
}

func (l Layout) YForElevation(feet float64) float64 {
	c := l.Chart()
	span := l.Ticks.Max - l.Ticks.Min
	if span <= 0 {
		return c.Y + c.H/2
	}
	return c.Bottom() - (feet-l.Ticks.Min)/span*c.H
}

// MileForDX converts a horizontal pixel delta into miles
func (l Layout) MileForDX(dx float64) float64 {
	ppm := l.PixelsPerMile()
	if ppm == 0 {
		return 0
	}
	return dx / ppm
}

// Gridline is a vertical gridline; Label is empty for unlabelled lines
type Gridline struct {
	Mile  float64
	Label string
}

// Gridlines returns lines at whole multiples of GridMiles inside
// [start, start+width], so they stay put on the trail while panning. Only
// lines landing on a half-mile boundary are labelled.
func Gridlines(start, width float64) []Gridline {
	first := math.Ceil(start/GridMiles-1e-9) * GridMiles
	end := start + width + 1e-9
	var lines []Gridline
	for i := 0; ; i++ {
		mile := first + float64(i)*GridMiles
		if mile > end {
			break
		}
		g := Gridline{Mile: mile}
		if onBoundary(mile, labelMiles) {
			g.Label = FormatMile(mile)
		}
		lines = append(lines, g)
	}
	return lines
}

func onBoundary(v, step float64) bool {
	r := v / step
	return math.Abs(r-math.Round(r)) < 1e-6
}

// FormatMile renders a mile value with at most one decimal
func FormatMile(mile float64) string {
	return strconv.FormatFloat(math.Round(mile*10)/10, 'f', -1, 64)
}

// Text renders a frame as a single stats strip line
func (f Frame) Text(label string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (mi %s):", label, FormatMile(f.FromMile))
	for _, w := range f.Windows {
		fmt.Fprintf(&b, "  %smi +%d/-%d", FormatMile(w.Miles), w.Gain, w.Loss)
	}
	return b.String()
}
