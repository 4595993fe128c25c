package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/google/uuid"

	"github.com/odtweather/trail/server/internal/config"
	"github.com/odtweather/trail/server/internal/lib/elevation"
	"github.com/odtweather/trail/server/internal/lib/geo"
	"github.com/odtweather/trail/server/internal/lib/position"
	"github.com/odtweather/trail/server/internal/lib/trail"
	"github.com/odtweather/trail/server/internal/lib/viewport"
	"github.com/odtweather/trail/server/internal/render"
	"github.com/odtweather/trail/server/internal/stream"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrChartNotFound   = errors.New("chart not found")
)

// Event types pushed to session streams
const (
	EventHello    = "hello"
	EventPosition = "position"
	EventChart    = "chart"
)

// Position sources
const (
	SourceGPS = "gps"
	SourceTap = "tap"
)

// Event is the JSON message broadcast to a session's stream
type Event struct {
	Type    string            `json:"type"`
	Source  string            `json:"source,omitempty"`
	Canvas  string            `json:"canvas,omitempty"`
	Summary *position.Summary `json:"summary,omitempty"`
}

// Session is one display following a hiker along the trail. It owns the
// display's viewports and their gg surfaces.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	manager *viewport.Manager
	layer   *viewport.Layer

	mu       sync.Mutex
	surfaces map[string]*render.Surface
	lastFix  *geo.Point
	issued   uint64
	summary  *position.Summary
	lastSeen time.Time
}

// Summary returns the last applied position summary, nil before any report
func (s *Session) Summary() *position.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// FixResult reports whether a position report moved the session
type FixResult struct {
	Accepted bool              `json:"accepted"`
	Summary  *position.Summary `json:"summary,omitempty"`
}

// ChartRequest positions and sizes a chart. A nil Mile centres on the
// session's current mile.
type ChartRequest struct {
	Mile   *float64 `json:"mile,omitempty"`
	Width  int      `json:"width,omitempty"`
	Height int      `json:"height,omitempty"`
}

// TooltipView is the JSON form of an open tooltip
type TooltipView struct {
	Text   string                `json:"text"`
	POI    trail.PointOfInterest `json:"poi"`
	Anchor elevation.Rect        `json:"anchor"`
}

// ChartView describes the current frame of one chart
type ChartView struct {
	Canvas      string          `json:"canvas"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Loaded      bool            `json:"loaded"`
	State       viewport.State  `json:"state"`
	Strip       elevation.Strip `json:"strip"`
	Tooltip     *TooltipView    `json:"tooltip,omitempty"`
	HintVisible bool            `json:"hint_visible"`
}

// PointerResult is the outcome of a pointer event and the frame after it
type PointerResult struct {
	Outcome viewport.Outcome `json:"outcome"`
	Chart   ChartView        `json:"chart"`
}

// SessionService manages live position sessions
type SessionService struct {
	store    *trail.Store
	pois     *POIService
	hub      *stream.Hub
	config   *config.Config
	geoUtils geo.GeoUtils

	now       func() time.Time
	afterFunc viewport.AfterFunc

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService creates a new SessionService and subscribes every
// session's POI layer to fresh collections
func NewSessionService(store *trail.Store, pois *POIService, hub *stream.Hub, config *config.Config) *SessionService {
	s := &SessionService{
		store:    store,
		pois:     pois,
		hub:      hub,
		config:   config,
		geoUtils: geo.NewGeoUtils(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	pois.OnSwap(s.swapLayers)
	return s
}

// Create starts a session with every category's cached POIs in its layer
func (s *SessionService) Create(ctx context.Context) *Session {
	ctx = logging.EnsureLogger(ctx)
	layer := viewport.NewLayer()
	for _, category := range trail.Categories {
		if pois := s.pois.Cached(category); pois != nil {
			layer.Swap(category, pois)
		}
	}

	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
		layer:     layer,
		surfaces:  make(map[string]*render.Surface),
		lastSeen:  s.now(),
	}
	sess.manager = viewport.NewManager(s.store, layer, viewport.ManagerOptions{
		AfterFunc: s.afterFunc,
		OnRender: func(canvasID string) {
			s.broadcast(logging.EnsureLogger(context.Background()), sess.ID, Event{Type: EventChart, Canvas: canvasID})
		},
	})

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	logging.Infow(ctx, "Session created", "session", sess.ID)
	return sess
}

// Get returns a session and marks it active
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.mu.Lock()
	sess.lastSeen = s.now()
	sess.mu.Unlock()
	return sess, nil
}

func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Count returns the number of live sessions
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ExpireIdle drops sessions unused for longer than the idle timeout and
// returns how many were dropped
func (s *SessionService) ExpireIdle(ctx context.Context) int {
	timeout := s.config.Sessions.IdleTimeout
	if timeout <= 0 {
		return 0
	}
	cutoff := s.now().Add(-timeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	expired := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			expired++
		}
	}
	if expired > 0 {
		logging.Infow(logging.EnsureLogger(ctx), "Expired idle sessions", "count", expired)
	}
	return expired
}

// ReportFix applies a GPS fix. Fixes closer than the minimum movement to
// the last accepted fix are ignored, as are fixes overtaken by a newer
// report while the trail data loaded.
func (s *SessionService) ReportFix(ctx context.Context, id string, lat, lon float64) (FixResult, error) {
	sess, err := s.Get(id)
	if err != nil {
		return FixResult{}, err
	}
	point, err := geo.NewPoint(lat, lon)
	if err != nil {
		return FixResult{}, err
	}

	sess.mu.Lock()
	if sess.lastFix != nil {
		moved, err := s.geoUtils.PointToPoint(*sess.lastFix, point)
		if err == nil && moved < s.config.Sessions.MinMoveMeters {
			summary := sess.summary
			sess.mu.Unlock()
			return FixResult{Summary: summary}, nil
		}
	}
	sess.mu.Unlock()

	// Only a fix resolved against real waypoints anchors the movement filter
	result, resolved := s.report(ctx, sess, point, SourceGPS)
	if !result.Accepted || !resolved {
		return result, nil
	}
	sess.mu.Lock()
	sess.lastFix = &point
	sess.mu.Unlock()
	return result, nil
}

// ReportTap positions the session at a coordinate picked on a map
func (s *SessionService) ReportTap(ctx context.Context, id string, lat, lon float64) (FixResult, error) {
	sess, err := s.Get(id)
	if err != nil {
		return FixResult{}, err
	}
	point, err := geo.NewPoint(lat, lon)
	if err != nil {
		return FixResult{}, err
	}
	result, _ := s.report(ctx, sess, point, SourceTap)
	return result, nil
}

func (s *SessionService) report(ctx context.Context, sess *Session, point geo.Point, source string) (FixResult, bool) {
	ctx = logging.EnsureLogger(ctx)
	sess.mu.Lock()
	sess.issued++
	seq := sess.issued
	sess.mu.Unlock()

	summary, resolved := s.summarize(ctx, point)

	sess.mu.Lock()
	if seq != sess.issued {
		latest := sess.summary
		sess.mu.Unlock()
		logging.Debugw(ctx, "Dropping superseded position report", "session", sess.ID, "source", source)
		return FixResult{Summary: latest}, resolved
	}
	sess.summary = &summary
	sess.mu.Unlock()

	sess.manager.SetCurrentMile(summary.Mile)
	s.broadcast(ctx, sess.ID, Event{Type: EventPosition, Source: source, Summary: &summary})
	return FixResult{Accepted: true, Summary: &summary}, resolved
}

// summarize resolves point against whatever geometry loads and reports
// whether the waypoints were available. Missing waypoints give the zero
// result and a missing profile degrades to the waypoint track; load
// failures are logged by the store.
func (s *SessionService) summarize(ctx context.Context, point geo.Point) (position.Summary, bool) {
	waypoints, err := s.store.Waypoints(ctx)
	if err != nil {
		waypoints = nil
	}
	samples, err := s.store.Samples(ctx)
	if err != nil {
		samples = nil
	}

	water, err := s.pois.POIs(ctx, trail.Water)
	if err != nil {
		water = nil
	}
	towns, err := s.pois.POIs(ctx, trail.Towns)
	if err != nil {
		towns = nil
	}

	result := position.Resolve(point, waypoints, samples)
	return position.Summarize(result, waypoints, water, towns, trail.MaxMile(samples)), waypoints != nil
}

// RenderChart attaches a surface of the requested size to canvas and
// renders the chart on it
func (s *SessionService) RenderChart(ctx context.Context, id, canvas string, req ChartRequest) (ChartView, error) {
	sess, err := s.Get(id)
	if err != nil {
		return ChartView{}, err
	}
	width, height := s.config.Charts.ChartSize(req.Width, req.Height)

	sess.mu.Lock()
	surface, ok := sess.surfaces[canvas]
	if !ok || surface.Width() != width || surface.Height() != height {
		surface, err = render.NewSurface(width, height)
		if err != nil {
			sess.mu.Unlock()
			return ChartView{}, err
		}
		sess.surfaces[canvas] = surface
	}
	sess.mu.Unlock()

	sess.manager.Attach(canvas, surface)

	mile := sess.manager.CurrentMile()
	if req.Mile != nil {
		mile = *req.Mile
	}
	sess.manager.RenderElevationChart(ctx, mile, canvas)

	return s.chartView(sess, canvas)
}

// Chart describes the current frame of canvas
func (s *SessionService) Chart(id, canvas string) (ChartView, error) {
	sess, err := s.Get(id)
	if err != nil {
		return ChartView{}, err
	}
	return s.chartView(sess, canvas)
}

// ChartPNG writes the current frame of canvas as a PNG
func (s *SessionService) ChartPNG(id, canvas string, w io.Writer) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	vp, ok := sess.manager.Viewport(canvas)
	if !ok {
		return ErrChartNotFound
	}
	return vp.WithSurface(func(surface viewport.Surface) error {
		rs, ok := surface.(*render.Surface)
		if !ok {
			return fmt.Errorf("canvas %s is not an image surface", canvas)
		}
		return rs.EncodePNG(w)
	})
}

// Pointer feeds a pointer event to the chart on canvas
func (s *SessionService) Pointer(id, canvas string, ev viewport.PointerEvent) (PointerResult, error) {
	sess, err := s.Get(id)
	if err != nil {
		return PointerResult{}, err
	}
	outcome, ok := sess.manager.Dispatch(canvas, ev)
	if !ok {
		return PointerResult{}, ErrChartNotFound
	}
	view, err := s.chartView(sess, canvas)
	if err != nil {
		return PointerResult{}, err
	}
	return PointerResult{Outcome: outcome, Chart: view}, nil
}

// Jump recentres every chart of the session on its current mile
func (s *SessionService) Jump(id string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	sess.manager.JumpToCurrentMile()
	return nil
}

// SetLayer shows or hides a POI category on every chart of the session
func (s *SessionService) SetLayer(id string, category trail.Category, visible bool) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	sess.layer.SetVisible(category, visible)
	return nil
}

// Hello is the first stream message of a session
func (s *SessionService) Hello(sess *Session) []byte {
	msg, err := json.Marshal(Event{Type: EventHello, Summary: sess.Summary()})
	if err != nil {
		return nil
	}
	return msg
}

func (s *SessionService) chartView(sess *Session, canvas string) (ChartView, error) {
	vp, ok := sess.manager.Viewport(canvas)
	if !ok {
		return ChartView{}, ErrChartNotFound
	}

	view := ChartView{
		Canvas:      canvas,
		Loaded:      vp.HasData(),
		State:       vp.State(),
		Strip:       vp.Strip(),
		HintVisible: vp.HintVisible(),
	}
	sess.mu.Lock()
	if surface, ok := sess.surfaces[canvas]; ok {
		view.Width, view.Height = surface.Width(), surface.Height()
	}
	sess.mu.Unlock()

	if tip, ok := vp.Tooltip(); ok {
		view.Tooltip = &TooltipView{
			Text:   viewport.TooltipText(tip.POI),
			POI:    tip.POI,
			Anchor: tip.Anchor,
		}
	}
	return view, nil
}

func (s *SessionService) swapLayers(category trail.Category, pois []trail.PointOfInterest) {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	for _, sess := range sessions {
		sess.layer.Swap(category, pois)
	}
}

func (s *SessionService) broadcast(ctx context.Context, sessionID string, event Event) {
	if s.hub == nil {
		return
	}
	msg, err := json.Marshal(event)
	if err != nil {
		logging.Errorw(logging.EnsureLogger(ctx), "Failed to encode session event", "type", event.Type, "error", err)
		return
	}
	s.hub.Broadcast(ctx, sessionID, msg)
}
