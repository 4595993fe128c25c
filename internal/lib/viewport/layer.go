package viewport

import (
	"sort"
	"sync"

	"github.com/odtweather/trail/server/internal/lib/trail"
)

// Layer holds the POI collections drawn over the chart and which
// categories are visible. It is shared by every viewport of a Manager.
type Layer struct {
	mu        sync.RWMutex
	pois      map[trail.Category][]trail.PointOfInterest
	hidden    map[trail.Category]bool
	listeners []func()
}

func NewLayer() *Layer {
	return &Layer{
		pois:   make(map[trail.Category][]trail.PointOfInterest),
		hidden: make(map[trail.Category]bool),
	}
}

// Swap replaces the collection for a category
func (l *Layer) Swap(category trail.Category, pois []trail.PointOfInterest) {
	l.mu.Lock()
	l.pois[category] = append([]trail.PointOfInterest(nil), pois...)
	l.mu.Unlock()
	l.notify()
}

// SetVisible shows or hides a category
func (l *Layer) SetVisible(category trail.Category, visible bool) {
	l.mu.Lock()
	changed := l.hidden[category] == visible
	l.hidden[category] = !visible
	l.mu.Unlock()
	if changed {
		l.notify()
	}
}

func (l *Layer) Visible(category trail.Category) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return !l.hidden[category]
}

// POIs returns the collection for one category regardless of visibility
func (l *Layer) POIs(category trail.Category) []trail.PointOfInterest {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pois[category]
}

// VisiblePOIs returns every POI in a visible category, ordered by mile
func (l *Layer) VisiblePOIs() []trail.PointOfInterest {
	l.mu.RLock()
	var out []trail.PointOfInterest
	for _, c := range trail.Categories {
		if !l.hidden[c] {
			out = append(out, l.pois[c]...)
		}
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Mile < out[j].Mile })
	return out
}

// OnChange registers fn to run after any swap or visibility change
func (l *Layer) OnChange(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *Layer) notify() {
	l.mu.RLock()
	listeners := append([]func(){}, l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}
