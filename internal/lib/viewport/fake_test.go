package viewport

import (
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/odtweather/trail/server/internal/lib/elevation"
	"github.com/odtweather/trail/server/internal/lib/trail"
)

// recordingSurface records the drawing calls of the latest frame
type recordingSurface struct {
	mu    sync.Mutex
	w, h  int
	ops   []string
	texts []string
	icons []IconStyle
	dash  []float64
}

func newRecordingSurface(w, h int) *recordingSurface {
	return &recordingSurface{w: w, h: h}
}

func (s *recordingSurface) record(op string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, fmt.Sprint(append([]interface{}{op}, args...)...))
}

func (s *recordingSurface) Width() int  { return s.w }
func (s *recordingSurface) Height() int { return s.h }

func (s *recordingSurface) Clear(color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops, s.texts, s.icons = nil, nil, nil
}

func (s *recordingSurface) SetColor(color.Color)             {}
func (s *recordingSurface) SetLineWidth(float64)             {}
func (s *recordingSurface) MoveTo(x, y float64)              { s.record("move") }
func (s *recordingSurface) LineTo(x, y float64)              { s.record("line") }
func (s *recordingSurface) ClosePath()                       { s.record("close") }
func (s *recordingSurface) Stroke()                          { s.record("stroke") }
func (s *recordingSurface) Fill()                            { s.record("fill") }
func (s *recordingSurface) DrawRectangle(x, y, w, h float64) { s.record("rect") }
func (s *recordingSurface) DrawCircle(x, y, r float64)       { s.record("circle") }

func (s *recordingSurface) SetDash(dashes ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(dashes) > 0 {
		s.dash = dashes
	}
}

func (s *recordingSurface) DrawText(text string, x, y float64, align elevation.Align) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func (s *recordingSurface) MeasureText(text string) (float64, float64) {
	return float64(len(text)) * 6, 12
}

func (s *recordingSurface) DrawIcon(style IconStyle, x, y, size float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.icons = append(s.icons, style)
}

func (s *recordingSurface) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func (s *recordingSurface) Icons() []IconStyle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]IconStyle(nil), s.icons...)
}

// fakeClock hands out timers that only fire when told to
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every live timer scheduled for d and returns how many ran
func (c *fakeClock) fire(d time.Duration) int {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if t.d == d && !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

func (c *fakeClock) pending(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.d == d && !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// rampProfile is a steady 10 ft/mi climb sampled every half mile
func rampProfile(miles float64) []trail.TrailSample {
	var samples []trail.TrailSample
	for d := 0.0; d <= miles; d += 0.5 {
		samples = append(samples, trail.TrailSample{Distance: d, Elevation: 3000 + 10*d})
	}
	return samples
}
