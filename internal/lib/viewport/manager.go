package viewport

import (
	"context"
	"sync"

	"github.com/dpup/prefab/logging"

	"github.com/odtweather/trail/server/internal/lib/elevation"
	"github.com/odtweather/trail/server/internal/lib/trail"
)

// SampleLoader provides the memoized trail profile
type SampleLoader interface {
	Samples(ctx context.Context) ([]trail.TrailSample, error)
}

// ManagerOptions configures a Manager
type ManagerOptions struct {
	AfterFunc AfterFunc

	// OnRender runs with the canvas id after any viewport draws a frame
	OnRender func(canvasID string)
}

// Manager owns the viewports of one display, keyed by canvas id. Surfaces
// are attached up front; charts are then rendered into them by id.
type Manager struct {
	loader SampleLoader
	layer  *Layer
	opts   ManagerOptions

	mu        sync.Mutex
	surfaces  map[string]Surface
	viewports map[string]*Viewport
	handlers  map[string]func(PointerEvent) Outcome
	gpsMile   float64
}

func NewManager(loader SampleLoader, layer *Layer, opts ManagerOptions) *Manager {
	m := &Manager{
		loader:    loader,
		layer:     layer,
		opts:      opts,
		surfaces:  make(map[string]Surface),
		viewports: make(map[string]*Viewport),
		handlers:  make(map[string]func(PointerEvent) Outcome),
	}
	if layer != nil {
		layer.OnChange(m.renderAll)
	}
	return m
}

// Layer returns the shared POI layer
func (m *Manager) Layer() *Layer {
	return m.layer
}

// Attach registers a drawing surface under canvasID
func (m *Manager) Attach(canvasID string, surface Surface) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.surfaces[canvasID]; ok && existing != surface {
		delete(m.viewports, canvasID)
		delete(m.handlers, canvasID)
	}
	m.surfaces[canvasID] = surface
}

// Detach removes the surface, its viewport and its pointer handler
func (m *Manager) Detach(canvasID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.surfaces, canvasID)
	delete(m.viewports, canvasID)
	delete(m.handlers, canvasID)
}

// RenderElevationChart (re)initializes the chart on canvasID centred on
// startMile. A missing surface is a logged no-op and a failed profile load
// renders an inline error; neither is returned to the caller.
func (m *Manager) RenderElevationChart(ctx context.Context, startMile float64, canvasID string) {
	ctx = logging.EnsureLogger(ctx)
	m.mu.Lock()
	surface, ok := m.surfaces[canvasID]
	if !ok {
		m.mu.Unlock()
		logging.Warnw(ctx, "elevation chart target missing", "canvas", canvasID)
		return
	}
	vp := m.viewportLocked(canvasID, surface)
	gpsMile := m.gpsMile
	m.mu.Unlock()

	samples, err := m.loader.Samples(ctx)
	if err != nil {
		logging.Errorw(ctx, "failed to load elevation data", "canvas", canvasID, "error", err)
		vp.Fail(err)
		return
	}

	vp.Load(samples)
	vp.setGPSMileQuiet(gpsMile)
	vp.CenterOn(startMile)
}

// viewportLocked returns the viewport for canvasID, creating it on first
// use, and (re)binds its pointer handler. Binding replaces any previous
// handler so repeated renders never stack listeners.
func (m *Manager) viewportLocked(canvasID string, surface Surface) *Viewport {
	vp, ok := m.viewports[canvasID]
	if !ok {
		vp = New(surface, m.layer, Options{
			AfterFunc: m.opts.AfterFunc,
			OnRender:  func() { m.notify(canvasID) },
		})
		m.viewports[canvasID] = vp
	}
	m.handlers[canvasID] = vp.HandlePointer
	return vp
}

// JumpToCurrentMile recentres every loaded viewport on the GPS mile
// without fetching
func (m *Manager) JumpToCurrentMile() {
	m.mu.Lock()
	mile := m.gpsMile
	viewports := m.viewportList()
	m.mu.Unlock()

	for _, vp := range viewports {
		if vp.HasData() {
			vp.CenterOn(mile)
		}
	}
}

// SetCurrentMile records the live GPS mile and moves every marker
func (m *Manager) SetCurrentMile(mile float64) {
	m.mu.Lock()
	m.gpsMile = mile
	viewports := m.viewportList()
	m.mu.Unlock()

	for _, vp := range viewports {
		vp.SetGPSMile(mile)
	}
}

func (m *Manager) CurrentMile() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gpsMile
}

// Dispatch routes a pointer event to the handler bound to canvasID
func (m *Manager) Dispatch(canvasID string, ev PointerEvent) (Outcome, bool) {
	m.mu.Lock()
	handler, ok := m.handlers[canvasID]
	m.mu.Unlock()
	if !ok {
		return Outcome{}, false
	}
	return handler(ev), true
}

// Viewport returns the viewport rendered on canvasID
func (m *Manager) Viewport(canvasID string) (*Viewport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vp, ok := m.viewports[canvasID]
	return vp, ok
}

// Strip returns the stats of the viewport on canvasID
func (m *Manager) Strip(canvasID string) (elevation.Strip, bool) {
	vp, ok := m.Viewport(canvasID)
	if !ok {
		return elevation.Strip{}, false
	}
	return vp.Strip(), true
}

func (m *Manager) renderAll() {
	m.mu.Lock()
	viewports := m.viewportList()
	m.mu.Unlock()
	for _, vp := range viewports {
		vp.Render()
	}
}

func (m *Manager) viewportList() []*Viewport {
	out := make([]*Viewport, 0, len(m.viewports))
	for _, vp := range m.viewports {
		out = append(out, vp)
	}
	return out
}

func (m *Manager) notify(canvasID string) {
	if m.opts.OnRender != nil {
		m.opts.OnRender(canvasID)
	}
}
