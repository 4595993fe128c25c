package elevation

import (
	"math"

	"github.com/odtweather/trail/server/internal/lib/trail"
)

const (
	wideIconSize   = 16.0
	narrowIconSize = 14.0
	iconLift       = 4.0
	edgeMargin     = 40.0
	labelGap       = 6.0
)

// Rect is an axis-aligned box in surface pixels
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.Right() && y >= r.Y && y <= r.Bottom()
}

// HitRegion is a tappable icon box from the last rendered frame
type HitRegion struct {
	Box Rect
	POI trail.PointOfInterest
}

// HitTest returns the topmost region containing (x, y). Later regions are
// drawn over earlier ones.
func HitTest(regions []HitRegion, x, y float64) (HitRegion, bool) {
	for i := len(regions) - 1; i >= 0; i-- {
		if regions[i].Box.Contains(x, y) {
			return regions[i], true
		}
	}
	return HitRegion{}, false
}

// Icon is a placed POI icon
type Icon struct {
	Key    trail.IconKey
	X, Y   float64
	Size   float64
	Region HitRegion
}

// IconSize is the icon edge length for the layout
func (l Layout) IconSize() float64 {
	if l.Narrow {
		return narrowIconSize
	}
	return wideIconSize
}

// PlaceIcons positions every POI inside the window above the curve at the
// height of its nearest sample
func PlaceIcons(l Layout, samples []trail.TrailSample, pois []trail.PointOfInterest) []Icon {
	size := l.IconSize()
	chart := l.Chart()
	end := l.Start + l.Miles

	var icons []Icon
	for _, poi := range pois {
		if poi.Mile < l.Start || poi.Mile > end {
			continue
		}
		s, ok := NearestSample(samples, poi.Mile)
		if !ok {
			continue
		}
		x := l.XForMile(poi.Mile)
		y := math.Max(l.YForElevation(s.Elevation)-size/2-iconLift, chart.Y+size/2)
		box := Rect{X: x - size/2, Y: y - size/2, W: size, H: size}
		icons = append(icons, Icon{
			Key:    trail.IconKeyFor(poi.Category, poi.Subcategory),
			X:      x,
			Y:      y,
			Size:   size,
			Region: HitRegion{Box: box, POI: poi},
		})
	}
	return icons
}

// Align is horizontal text alignment relative to an anchor x
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Locator is the live GPS marker
type Locator struct {
	X, Y      float64
	Elevation float64
	LabelX    float64
	Align     Align
}

// LocateGPS places the GPS marker when gpsMile is inside the window. The
// label flips to the left of the line near the right edge.
func LocateGPS(l Layout, samples []trail.TrailSample, gpsMile float64) (Locator, bool) {
	if gpsMile < l.Start || gpsMile > l.Start+l.Miles {
		return Locator{}, false
	}
	elev, ok := ElevationAt(samples, gpsMile)
	if !ok {
		return Locator{}, false
	}

	x := l.XForMile(gpsMile)
	loc := Locator{X: x, Y: l.YForElevation(elev), Elevation: elev, LabelX: x + labelGap, Align: AlignLeft}
	if l.Chart().Right()-x < edgeMargin {
		loc.LabelX = x - labelGap
		loc.Align = AlignRight
	}
	return loc, true
}

// Overview is the full-trail bar below the chart
type Overview struct {
	Bar    Rect
	Window Rect
	GPSX   float64
	HasGPS bool
}

// OverviewBar places the current window and GPS dot on the whole trail
func OverviewBar(l Layout, maxMile, gpsMile float64, hasGPS bool) Overview {
	chart := l.Chart()
	o := Overview{Bar: Rect{X: chart.X, Y: chart.Bottom() + overviewOffset, W: chart.W, H: overviewHeight}}
	if maxMile <= 0 {
		o.Window = o.Bar
		return o
	}

	scale := o.Bar.W / maxMile
	o.Window = Rect{
		X: o.Bar.X + math.Max(0, l.Start)*scale,
		Y: o.Bar.Y,
		W: math.Min(l.Miles, maxMile) * scale,
		H: o.Bar.H,
	}
	if hasGPS {
		o.HasGPS = true
		o.GPSX = o.Bar.X + math.Min(math.Max(gpsMile, 0), maxMile)*scale
	}
	return o
}

// TooltipBox places a w x h tooltip centred above anchor, below it when
// there is no room, and kept inside the surface horizontally
func TooltipBox(l Layout, anchor Rect, w, h float64) Rect {
	x := anchor.X + anchor.W/2 - w/2
	x = math.Max(0, math.Min(x, l.Width-w))

	y := anchor.Y - h - labelGap
	if y < l.Chart().Y {
		y = anchor.Bottom() + labelGap
	}
	return Rect{X: x, Y: y, W: w, H: h}
}
