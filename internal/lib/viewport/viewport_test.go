package viewport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odtweather/trail/server/internal/lib/trail"
)

func newTestViewport(t *testing.T, layer *Layer) (*Viewport, *recordingSurface, *fakeClock) {
	t.Helper()
	surface := newRecordingSurface(800, 260)
	clock := &fakeClock{}
	vp := New(surface, layer, Options{AfterFunc: clock.AfterFunc})
	vp.Load(rampProfile(100))
	return vp, surface, clock
}

func TestViewport_WindowClamping(t *testing.T) {
	vp, _, _ := newTestViewport(t, nil)

	vp.CenterOn(5)
	assert.Equal(t, 0.0, vp.State().WindowStart)

	vp.CenterOn(50)
	assert.Equal(t, 40.0, vp.State().WindowStart)

	vp.CenterOn(99)
	assert.Equal(t, 80.0, vp.State().WindowStart)
	assert.Equal(t, 20.0, vp.State().WindowWidth)
}

func TestViewport_StatsStripFrames(t *testing.T) {
	vp, surface, _ := newTestViewport(t, nil)
	vp.SetGPSMile(10)
	vp.CenterOn(50)

	strip := vp.Strip()
	assert.Equal(t, 10.0, strip.GPS.FromMile)
	assert.Equal(t, 40.0, strip.View.FromMile)
	assert.Equal(t, 200, strip.GPS.Windows[2].Gain)
	assert.Equal(t, 0, strip.View.Windows[0].Loss)

	texts := surface.Texts()
	assert.Contains(t, texts, strip.GPS.Text("GPS"))
	assert.Contains(t, texts, strip.View.Text("View"))
}

func TestViewport_LoadFailure(t *testing.T) {
	surface := newRecordingSurface(800, 260)
	vp := New(surface, nil, Options{AfterFunc: (&fakeClock{}).AfterFunc})

	vp.Fail(errors.New("boom"))

	assert.Equal(t, []string{ErrorMessage}, surface.Texts())
	assert.Empty(t, vp.Regions())
	assert.False(t, vp.HasData())
}

func TestViewport_NotLoaded(t *testing.T) {
	surface := newRecordingSurface(800, 260)
	vp := New(surface, nil, Options{AfterFunc: (&fakeClock{}).AfterFunc})

	vp.Render()
	assert.Equal(t, []string{LoadingMessage}, surface.Texts())
}

func TestViewport_EndOfTrail(t *testing.T) {
	surface := newRecordingSurface(800, 260)
	vp := New(surface, nil, Options{AfterFunc: (&fakeClock{}).AfterFunc})
	vp.Load([]trail.TrailSample{
		{Distance: 0, Elevation: 3000},
		{Distance: 50, Elevation: 4000},
	})

	vp.CenterOn(20)

	assert.Equal(t, 10.0, vp.State().WindowStart)
	assert.Contains(t, surface.Texts(), EndOfTrailMessage)
}

func TestViewport_DragPans(t *testing.T) {
	vp, _, _ := newTestViewport(t, nil)
	vp.CenterOn(50)

	vp.HandlePointer(PointerEvent{Kind: PointerDown, X: 400, Y: 100})
	assert.Equal(t, PendingDrag, vp.State().Gesture)

	// Under the threshold nothing moves
	out := vp.HandlePointer(PointerEvent{Kind: PointerMove, X: 402, Y: 101})
	assert.Equal(t, PendingDrag, out.State.Gesture)
	assert.Equal(t, 40.0, out.State.WindowStart)

	// 67 px left at 33.5 px/mi pans two miles forward
	out = vp.HandlePointer(PointerEvent{Kind: PointerMove, X: 333, Y: 101})
	assert.Equal(t, Dragging, out.State.Gesture)
	assert.InDelta(t, 42.0, out.State.WindowStart, 1e-9)

	out = vp.HandlePointer(PointerEvent{Kind: PointerUp, X: 333, Y: 101})
	assert.False(t, out.Tap)
	assert.Equal(t, Idle, out.State.Gesture)
	assert.InDelta(t, 42.0, out.State.WindowStart, 1e-9)
}

func TestViewport_WiggleCountsAsDrag(t *testing.T) {
	vp, _, _ := newTestViewport(t, nil)
	vp.CenterOn(50)

	// 3 px out and back: net zero, 6 px travelled
	vp.HandlePointer(PointerEvent{Kind: PointerDown, X: 400, Y: 100})
	out := vp.HandlePointer(PointerEvent{Kind: PointerMove, X: 403, Y: 100})
	assert.Equal(t, PendingDrag, out.State.Gesture)
	out = vp.HandlePointer(PointerEvent{Kind: PointerMove, X: 400, Y: 100})
	assert.Equal(t, Dragging, out.State.Gesture)
	assert.InDelta(t, 40.0, out.State.WindowStart, 1e-9)

	out = vp.HandlePointer(PointerEvent{Kind: PointerUp, X: 400, Y: 100})
	assert.False(t, out.Tap)
}

func TestViewport_DragClampsAtBothEnds(t *testing.T) {
	vp, _, _ := newTestViewport(t, nil)
	vp.CenterOn(50)

	vp.HandlePointer(PointerEvent{Kind: PointerDown, X: 400, Y: 100})
	out := vp.HandlePointer(PointerEvent{Kind: PointerMove, X: 400 + 33.5*100, Y: 100})
	assert.Equal(t, 0.0, out.State.WindowStart)

	out = vp.HandlePointer(PointerEvent{Kind: PointerMove, X: 400 - 33.5*100, Y: 100})
	assert.Equal(t, 80.0, out.State.WindowStart)

	vp.HandlePointer(PointerEvent{Kind: PointerUp, X: 0, Y: 100})
}

func TestViewport_CancelReturnsToIdle(t *testing.T) {
	vp, _, _ := newTestViewport(t, nil)
	vp.CenterOn(50)

	vp.HandlePointer(PointerEvent{Kind: PointerDown, X: 400, Y: 100})
	out := vp.HandlePointer(PointerEvent{Kind: PointerCancel})
	assert.Equal(t, Idle, out.State.Gesture)

	// A release after cancel is not a tap
	out = vp.HandlePointer(PointerEvent{Kind: PointerUp, X: 400, Y: 100})
	assert.False(t, out.Tap)
}

func waterLayer() *Layer {
	layer := NewLayer()
	layer.Swap(trail.Water, []trail.PointOfInterest{
		{Mile: 52, Category: trail.Water, Subcategory: "reliable", Name: "reliable: Spring"},
	})
	layer.Swap(trail.Towns, []trail.PointOfInterest{
		{Mile: 90, Category: trail.Towns, Name: "Plush"},
	})
	return layer
}

func tapRegion(t *testing.T, vp *Viewport) (float64, float64) {
	t.Helper()
	regions := vp.Regions()
	require.Len(t, regions, 1)
	box := regions[0].Box
	return box.X + box.W/2, box.Y + box.H/2
}

func TestViewport_TapShowsTooltip(t *testing.T) {
	vp, surface, clock := newTestViewport(t, waterLayer())
	vp.CenterOn(50)
	require.Len(t, surface.Icons(), 1)

	x, y := tapRegion(t, vp)
	vp.HandlePointer(PointerEvent{Kind: PointerDown, X: x, Y: y})
	out := vp.HandlePointer(PointerEvent{Kind: PointerUp, X: x + 1, Y: y})

	assert.True(t, out.Tap)
	require.NotNil(t, out.POI)
	assert.Equal(t, "reliable: Spring", out.POI.Name)

	tip, ok := vp.Tooltip()
	require.True(t, ok)
	assert.Equal(t, 52.0, tip.POI.Mile)
	assert.Contains(t, surface.Texts(), "Spring - mile 52")

	assert.Equal(t, 1, clock.fire(TooltipDuration))
	_, ok = vp.Tooltip()
	assert.False(t, ok)
	assert.NotContains(t, surface.Texts(), "Spring - mile 52")
}

func TestViewport_NextPointerDownDismissesTooltip(t *testing.T) {
	vp, _, clock := newTestViewport(t, waterLayer())
	vp.CenterOn(50)

	x, y := tapRegion(t, vp)
	vp.HandlePointer(PointerEvent{Kind: PointerDown, X: x, Y: y})
	vp.HandlePointer(PointerEvent{Kind: PointerUp, X: x, Y: y})
	require.Equal(t, 1, clock.pending(TooltipDuration))

	vp.HandlePointer(PointerEvent{Kind: PointerDown, X: 10, Y: 10})
	_, ok := vp.Tooltip()
	assert.False(t, ok)
	assert.Zero(t, clock.pending(TooltipDuration), "expiry timer is stopped")
}

func TestViewport_TapMiss(t *testing.T) {
	vp, _, _ := newTestViewport(t, waterLayer())
	vp.CenterOn(50)

	vp.HandlePointer(PointerEvent{Kind: PointerDown, X: 790, Y: 250})
	out := vp.HandlePointer(PointerEvent{Kind: PointerUp, X: 790, Y: 250})

	assert.True(t, out.Tap)
	assert.Nil(t, out.POI)
	_, ok := vp.Tooltip()
	assert.False(t, ok)
}

func TestViewport_HiddenCategoryHasNoRegions(t *testing.T) {
	layer := waterLayer()
	vp, surface, _ := newTestViewport(t, layer)

	layer.SetVisible(trail.Water, false)
	vp.CenterOn(50)

	assert.Empty(t, vp.Regions())
	assert.Empty(t, surface.Icons())
}

func TestViewport_IconStyleCached(t *testing.T) {
	vp, surface, _ := newTestViewport(t, waterLayer())
	vp.CenterOn(50)
	vp.CenterOn(50)

	icons := surface.Icons()
	require.Len(t, icons, 1)
	assert.Equal(t, "W", icons[0].Glyph)
	assert.Len(t, vp.icons, 1)
}

func TestViewport_GPSLocator(t *testing.T) {
	vp, surface, _ := newTestViewport(t, nil)
	vp.CenterOn(50)
	assert.NotContains(t, surface.Texts(), GPSLabel)

	vp.SetGPSMile(45)
	assert.Contains(t, surface.Texts(), GPSLabel)
	assert.Equal(t, []float64{4, 3}, surface.dash)

	vp.SetGPSMile(75)
	assert.NotContains(t, surface.Texts(), GPSLabel, "outside the window")
}

func TestViewport_HintExpires(t *testing.T) {
	vp, surface, clock := newTestViewport(t, nil)
	vp.CenterOn(0)

	assert.True(t, vp.HintVisible())
	assert.Contains(t, surface.Texts(), HintMessage)

	assert.Equal(t, 1, clock.fire(HintDuration))
	assert.False(t, vp.HintVisible())
	assert.NotContains(t, surface.Texts(), HintMessage)
}

func TestViewport_HintDismissedByDrag(t *testing.T) {
	vp, surface, clock := newTestViewport(t, nil)
	vp.CenterOn(0)

	vp.HandlePointer(PointerEvent{Kind: PointerDown, X: 400, Y: 100})
	vp.HandlePointer(PointerEvent{Kind: PointerMove, X: 300, Y: 100})

	assert.False(t, vp.HintVisible())
	assert.NotContains(t, surface.Texts(), HintMessage)
	assert.Zero(t, clock.pending(HintDuration))
}

func TestViewport_NoHintWithGPSFix(t *testing.T) {
	vp, surface, _ := newTestViewport(t, nil)
	vp.SetGPSMile(12)
	vp.CenterOn(12)

	assert.False(t, vp.HintVisible())
	assert.NotContains(t, surface.Texts(), HintMessage)
}

func TestPointerKind_Text(t *testing.T) {
	var k PointerKind
	require.NoError(t, k.UnmarshalText([]byte("UP")))
	assert.Equal(t, PointerUp, k)

	b, err := PointerCancel.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "cancel", string(b))

	assert.Error(t, k.UnmarshalText([]byte("hover")))
}

func TestGesture_Text(t *testing.T) {
	for _, g := range []Gesture{Idle, PendingDrag, Dragging} {
		b, err := g.MarshalText()
		require.NoError(t, err)

		var back Gesture
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, g, back)
	}

	var g Gesture
	assert.Error(t, g.UnmarshalText([]byte("flinging")))
}
