package viewport

import (
	"image/color"
	"math"
	"strconv"
	"sync"

	"github.com/odtweather/trail/server/internal/lib/elevation"
	"github.com/odtweather/trail/server/internal/lib/trail"
)

const (
	ErrorMessage      = "Failed to load elevation data"
	LoadingMessage    = "Loading elevation data"
	EndOfTrailMessage = "End of trail"
	HintMessage       = "Drag to pan"
	GPSLabel          = "You"
)

// State is the mutable window and gesture state of one viewport
type State struct {
	WindowStart     float64 `json:"window_start"`
	WindowWidth     float64 `json:"window_width"`
	GPSMile         float64 `json:"gps_mile"`
	Gesture         Gesture `json:"gesture"`
	DragAnchorX     float64 `json:"-"`
	DragAnchorStart float64 `json:"-"`
}

// Tooltip is the transient label shown after tapping an icon
type Tooltip struct {
	POI    trail.PointOfInterest
	Anchor elevation.Rect
}

// Outcome reports what a pointer event did
type Outcome struct {
	Tap   bool                   `json:"tap"`
	POI   *trail.PointOfInterest `json:"poi,omitempty"`
	State State                  `json:"state"`
}

// Options configures a Viewport
type Options struct {
	// AfterFunc schedules tooltip and hint expiry. Defaults to time.AfterFunc.
	AfterFunc AfterFunc

	// OnRender runs after every frame, outside the viewport lock
	OnRender func()
}

// Viewport renders a sliding window of the elevation profile onto one
// surface and owns all of its interaction state
type Viewport struct {
	mu       sync.Mutex
	surface  Surface
	layer    *Layer
	after    AfterFunc
	onRender func()

	samples []trail.TrailSample
	loaded  bool
	loadErr error

	state State
	// Pointer path since the last down, for tap/drag classification
	lastX, lastY float64
	travel       float64

	layout  elevation.Layout
	strip   elevation.Strip
	regions []elevation.HitRegion

	tooltip      *Tooltip
	tooltipTimer Timer

	hintShown     bool
	hintDismissed bool
	hintTimer     Timer

	icons map[trail.IconKey]IconStyle
}

// New creates a viewport drawing to surface. layer may be nil.
func New(surface Surface, layer *Layer, opts Options) *Viewport {
	after := opts.AfterFunc
	if after == nil {
		after = realAfterFunc
	}
	return &Viewport{
		surface:  surface,
		layer:    layer,
		after:    after,
		onRender: opts.OnRender,
		state:    State{WindowWidth: elevation.WindowMiles},
		icons:    make(map[trail.IconKey]IconStyle),
	}
}

// Load installs the trail profile. It does not render.
func (v *Viewport) Load(samples []trail.TrailSample) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.samples = samples
	v.loaded = true
	v.loadErr = nil
}

// Fail replaces the chart with an inline error message
func (v *Viewport) Fail(err error) {
	v.mu.Lock()
	v.loadErr = err
	v.renderLocked()
	v.mu.Unlock()
	v.rendered()
}

// HasData reports whether a profile has been loaded
func (v *Viewport) HasData() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded && v.loadErr == nil
}

// CenterOn moves the window so mile sits in its middle and renders
func (v *Viewport) CenterOn(mile float64) {
	v.mu.Lock()
	v.state.WindowStart = mile - v.state.WindowWidth/2
	v.renderLocked()
	v.mu.Unlock()
	v.rendered()
}

// SetGPSMile moves the live position marker and renders
func (v *Viewport) SetGPSMile(mile float64) {
	v.mu.Lock()
	v.state.GPSMile = mile
	v.renderLocked()
	v.mu.Unlock()
	v.rendered()
}

func (v *Viewport) setGPSMileQuiet(mile float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.GPSMile = mile
}

// Render redraws the current window
func (v *Viewport) Render() {
	v.mu.Lock()
	v.renderLocked()
	v.mu.Unlock()
	v.rendered()
}

func (v *Viewport) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Viewport) Strip() elevation.Strip {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.strip
}

// Regions returns the hit regions of the last frame
func (v *Viewport) Regions() []elevation.HitRegion {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]elevation.HitRegion(nil), v.regions...)
}

func (v *Viewport) Tooltip() (Tooltip, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.tooltip == nil {
		return Tooltip{}, false
	}
	return *v.tooltip, true
}

func (v *Viewport) HintVisible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hintVisibleLocked()
}

// WithSurface runs fn with exclusive access to the rendered surface
func (v *Viewport) WithSurface(fn func(Surface) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return fn(v.surface)
}

// HandlePointer advances the gesture state machine
func (v *Viewport) HandlePointer(ev PointerEvent) Outcome {
	v.mu.Lock()
	out, redraw := v.handleLocked(ev)
	if redraw {
		v.renderLocked()
	}
	out.State = v.state
	v.mu.Unlock()

	if redraw {
		v.rendered()
	}
	return out
}

func (v *Viewport) handleLocked(ev PointerEvent) (Outcome, bool) {
	switch ev.Kind {
	case PointerDown:
		redraw := v.dismissTooltipLocked()
		v.state.Gesture = PendingDrag
		v.state.DragAnchorX = ev.X
		v.state.DragAnchorStart = v.state.WindowStart
		v.lastX, v.lastY = ev.X, ev.Y
		v.travel = 0
		return Outcome{}, redraw

	case PointerMove:
		switch v.state.Gesture {
		case Idle:
			return Outcome{}, false
		case PendingDrag:
			v.travel += math.Hypot(ev.X-v.lastX, ev.Y-v.lastY)
			v.lastX, v.lastY = ev.X, ev.Y
			if v.travel <= DragThreshold {
				return Outcome{}, false
			}
			v.state.Gesture = Dragging
			v.dismissHintLocked()
		}
		v.panLocked(ev.X)
		return Outcome{}, true

	case PointerUp:
		gesture := v.state.Gesture
		v.state.Gesture = Idle
		if gesture != PendingDrag {
			return Outcome{}, false
		}
		return v.tapLocked(ev.X, ev.Y)

	case PointerCancel:
		v.state.Gesture = Idle
	}
	return Outcome{}, false
}

func (v *Viewport) panLocked(x float64) {
	start := v.state.DragAnchorStart - v.layout.MileForDX(x-v.state.DragAnchorX)
	v.state.WindowStart = elevation.ClampStart(start, trail.MaxMile(v.samples), v.state.WindowWidth)
}

func (v *Viewport) tapLocked(x, y float64) (Outcome, bool) {
	out := Outcome{Tap: true}
	hit, ok := elevation.HitTest(v.regions, x, y)
	if !ok {
		return out, false
	}

	poi := hit.POI
	out.POI = &poi
	tip := &Tooltip{POI: poi, Anchor: hit.Box}
	v.tooltip = tip
	v.tooltipTimer = v.after(TooltipDuration, func() { v.expireTooltip(tip) })
	return out, true
}

func (v *Viewport) expireTooltip(tip *Tooltip) {
	v.mu.Lock()
	if v.tooltip != tip {
		v.mu.Unlock()
		return
	}
	v.tooltip = nil
	v.tooltipTimer = nil
	v.renderLocked()
	v.mu.Unlock()
	v.rendered()
}

func (v *Viewport) dismissTooltipLocked() bool {
	if v.tooltip == nil {
		return false
	}
	if v.tooltipTimer != nil {
		v.tooltipTimer.Stop()
		v.tooltipTimer = nil
	}
	v.tooltip = nil
	return true
}

func (v *Viewport) hintVisibleLocked() bool {
	return v.state.GPSMile == 0 && !v.hintDismissed
}

func (v *Viewport) dismissHintLocked() {
	if v.hintDismissed {
		return
	}
	v.hintDismissed = true
	if v.hintTimer != nil {
		v.hintTimer.Stop()
		v.hintTimer = nil
	}
}

func (v *Viewport) expireHint() {
	v.mu.Lock()
	if v.hintDismissed {
		v.mu.Unlock()
		return
	}
	v.hintDismissed = true
	v.hintTimer = nil
	v.renderLocked()
	v.mu.Unlock()
	v.rendered()
}

func (v *Viewport) rendered() {
	if v.onRender != nil {
		v.onRender()
	}
}

func (v *Viewport) iconStyle(key trail.IconKey) IconStyle {
	style, ok := v.icons[key]
	if !ok {
		style = defaultIconStyle(key)
		v.icons[key] = style
	}
	return style
}

func (v *Viewport) renderLocked() {
	c := v.surface
	c.Clear(background)
	v.regions = nil

	if v.loadErr != nil {
		v.message(ErrorMessage, errorColor)
		return
	}
	if !v.loaded {
		v.message(LoadingMessage, mutedText)
		return
	}

	maxMile := trail.MaxMile(v.samples)
	v.state.WindowStart = elevation.ClampStart(v.state.WindowStart, maxMile, v.state.WindowWidth)
	start := v.state.WindowStart

	v.strip = elevation.StatsStrip(v.samples, v.state.GPSMile, start)
	window := elevation.Forward(v.samples, start, v.state.WindowWidth)
	if len(window) == 0 {
		v.message(EndOfTrailMessage, mutedText)
		return
	}

	width, height := float64(c.Width()), float64(c.Height())
	lo, hi, _ := elevation.ElevationRange(window)
	ticks := elevation.Axis(lo, hi, elevation.IsNarrow(width))
	l := elevation.NewLayout(width, height, start, v.state.WindowWidth, ticks)
	v.layout = l

	v.drawStrip(l)
	v.drawAxis(l)
	v.drawProfile(l, window)
	v.drawGridlines(l)
	v.drawIcons(l)
	v.drawLocator(l)
	v.drawOverview(l, maxMile)
	v.drawHint(l)
	v.drawTooltip(l)
}

func (v *Viewport) message(msg string, col color.Color) {
	c := v.surface
	c.SetColor(col)
	c.DrawText(msg, float64(c.Width())/2, float64(c.Height())/2, elevation.AlignCenter)
}

func (v *Viewport) drawStrip(l elevation.Layout) {
	c := v.surface
	r := l.Strip()
	c.SetColor(stripFill)
	c.DrawRectangle(r.X, r.Y, r.W, r.H)
	c.Fill()

	c.SetColor(textColor)
	c.DrawText(v.strip.GPS.Text("GPS"), 8, r.H/4, elevation.AlignLeft)
	c.SetColor(mutedText)
	c.DrawText(v.strip.View.Text("View"), 8, r.H*3/4, elevation.AlignLeft)
}

func (v *Viewport) drawAxis(l elevation.Layout) {
	c := v.surface
	chart := l.Chart()
	c.SetLineWidth(1)
	for _, tick := range l.Ticks.Values {
		y := l.YForElevation(tick)
		c.SetColor(gridColor)
		c.MoveTo(chart.X, y)
		c.LineTo(chart.Right(), y)
		c.Stroke()

		c.SetColor(mutedText)
		c.DrawText(strconv.Itoa(int(tick)), chart.X-6, y, elevation.AlignRight)
	}
}

func (v *Viewport) drawProfile(l elevation.Layout, window []trail.TrailSample) {
	c := v.surface
	chart := l.Chart()
	first, last := window[0], window[len(window)-1]

	c.MoveTo(l.XForMile(first.Distance), chart.Bottom())
	for _, s := range window {
		c.LineTo(l.XForMile(s.Distance), l.YForElevation(s.Elevation))
	}
	c.LineTo(l.XForMile(last.Distance), chart.Bottom())
	c.ClosePath()
	c.SetColor(profileFill)
	c.Fill()

	c.MoveTo(l.XForMile(first.Distance), l.YForElevation(first.Elevation))
	for _, s := range window[1:] {
		c.LineTo(l.XForMile(s.Distance), l.YForElevation(s.Elevation))
	}
	c.SetColor(profileLine)
	c.SetLineWidth(2)
	c.Stroke()
}

func (v *Viewport) drawGridlines(l elevation.Layout) {
	c := v.surface
	chart := l.Chart()
	c.SetLineWidth(1)
	for _, g := range elevation.Gridlines(l.Start, l.Miles) {
		x := l.XForMile(g.Mile)
		c.SetColor(gridColor)
		c.MoveTo(x, chart.Y)
		c.LineTo(x, chart.Bottom())
		c.Stroke()

		if g.Label != "" {
			c.SetColor(mutedText)
			c.DrawText(g.Label, x, chart.Bottom()+14, elevation.AlignCenter)
		}
	}
}

func (v *Viewport) drawIcons(l elevation.Layout) {
	if v.layer == nil {
		return
	}
	for _, icon := range elevation.PlaceIcons(l, v.samples, v.layer.VisiblePOIs()) {
		v.surface.DrawIcon(v.iconStyle(icon.Key), icon.X, icon.Y, icon.Size)
		v.regions = append(v.regions, icon.Region)
	}
}

func (v *Viewport) drawLocator(l elevation.Layout) {
	loc, ok := elevation.LocateGPS(l, v.samples, v.state.GPSMile)
	if !ok {
		return
	}
	c := v.surface
	chart := l.Chart()

	c.SetColor(locatorColor)
	c.SetLineWidth(1.5)
	c.SetDash(4, 3)
	c.MoveTo(loc.X, chart.Y)
	c.LineTo(loc.X, chart.Bottom())
	c.Stroke()
	c.SetDash()

	c.DrawCircle(loc.X, loc.Y, 4)
	c.Fill()
	c.DrawText(GPSLabel, loc.LabelX, chart.Y+8, loc.Align)
}

func (v *Viewport) drawOverview(l elevation.Layout, maxMile float64) {
	c := v.surface
	o := elevation.OverviewBar(l, maxMile, v.state.GPSMile, v.state.GPSMile > 0)

	c.SetColor(overviewBar)
	c.DrawRectangle(o.Bar.X, o.Bar.Y, o.Bar.W, o.Bar.H)
	c.Fill()

	c.SetColor(overviewWin)
	c.DrawRectangle(o.Window.X, o.Window.Y, o.Window.W, o.Window.H)
	c.Fill()

	if o.HasGPS {
		c.SetColor(locatorColor)
		c.DrawCircle(o.GPSX, o.Bar.Y+o.Bar.H/2, 3)
		c.Fill()
	}
}

func (v *Viewport) drawHint(l elevation.Layout) {
	if !v.hintVisibleLocked() {
		return
	}
	if !v.hintShown {
		v.hintShown = true
		v.hintTimer = v.after(HintDuration, v.expireHint)
	}

	chart := l.Chart()
	v.surface.SetColor(mutedText)
	v.surface.DrawText(HintMessage, chart.X+chart.W/2, chart.Y+12, elevation.AlignCenter)
}

func (v *Viewport) drawTooltip(l elevation.Layout) {
	if v.tooltip == nil {
		return
	}
	c := v.surface
	text := TooltipText(v.tooltip.POI)
	tw, th := c.MeasureText(text)
	box := elevation.TooltipBox(l, v.tooltip.Anchor, tw+12, th+10)

	c.SetColor(tooltipFill)
	c.DrawRectangle(box.X, box.Y, box.W, box.H)
	c.Fill()
	c.SetColor(tooltipText)
	c.DrawText(text, box.X+box.W/2, box.Y+box.H/2, elevation.AlignCenter)
}

// TooltipText is the label shown for a tapped POI
func TooltipText(poi trail.PointOfInterest) string {
	return trail.DisplayName(poi) + " - mile " + elevation.FormatMile(poi.Mile)
}
