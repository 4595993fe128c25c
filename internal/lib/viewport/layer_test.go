package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odtweather/trail/server/internal/lib/trail"
)

func TestLayer_VisibilityAndOrder(t *testing.T) {
	layer := NewLayer()
	layer.Swap(trail.Water, []trail.PointOfInterest{{Mile: 30, Name: "Creek"}, {Mile: 5, Name: "Spring"}})
	layer.Swap(trail.Towns, []trail.PointOfInterest{{Mile: 12, Name: "Plush"}})

	var names []string
	for _, p := range layer.VisiblePOIs() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Spring", "Plush", "Creek"}, names)

	layer.SetVisible(trail.Water, false)
	assert.False(t, layer.Visible(trail.Water))
	assert.Len(t, layer.VisiblePOIs(), 1)
	assert.Len(t, layer.POIs(trail.Water), 2, "hidden data is kept")

	layer.SetVisible(trail.Water, true)
	assert.Len(t, layer.VisiblePOIs(), 3)
}

func TestLayer_OnChange(t *testing.T) {
	layer := NewLayer()
	calls := 0
	layer.OnChange(func() { calls++ })

	layer.Swap(trail.Navigation, nil)
	assert.Equal(t, 1, calls)

	layer.SetVisible(trail.Navigation, true)
	assert.Equal(t, 1, calls, "already visible")

	layer.SetVisible(trail.Navigation, false)
	assert.Equal(t, 2, calls)
}
