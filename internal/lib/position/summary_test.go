package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odtweather/trail/server/internal/lib/trail"
)

func TestSummarize(t *testing.T) {
	waypoints := []trail.Waypoint{
		{Mile: 36, Name: "Sand Spring"},
		{Mile: 53, Name: "South Reservoir"},
	}
	water := []trail.PointOfInterest{
		{Mile: 30, Name: "Dry Creek", Category: trail.Water},
		{Mile: 62, Name: "reliable: Lost Forest well", Category: trail.Water, Subcategory: "reliable"},
	}
	towns := []trail.PointOfInterest{
		{Mile: 127, Name: "Paisley", Landmark: "Paisley", Category: trail.Towns},
	}

	s := Summarize(Result{Mile: 40, OffTrailDistanceMiles: 0.1}, waypoints, water, towns, 750)

	assert.False(t, s.OffTrail)
	require.NotNil(t, s.NearestWaypoint)
	assert.Equal(t, "Sand Spring", s.NearestWaypoint.Name)
	assert.Equal(t, Back, s.NearestWaypoint.Direction)
	assert.InDelta(t, 4.0, s.NearestWaypoint.Distance, 1e-9)

	require.NotNil(t, s.NextWater)
	assert.Equal(t, "Lost Forest well", s.NextWater.Name)
	assert.InDelta(t, 22.0, s.NextWater.Distance, 1e-9)
	assert.True(t, s.NextWater.Warning, "22 miles to water is a long stretch")

	require.NotNil(t, s.NextTown)
	assert.InDelta(t, 87.0, s.NextTown.Distance, 1e-9)

	assert.InDelta(t, 40.0/750*100, s.PercentComplete, 1e-9)
	assert.InDelta(t, 710.0, s.MilesToEnd, 1e-9)
}

func TestSummarize_AtWaypointAndOffTrail(t *testing.T) {
	waypoints := []trail.Waypoint{{Mile: 53, Name: "South Reservoir"}}

	s := Summarize(Result{Mile: 53, OffTrailDistanceMiles: 1.2}, waypoints, nil, nil, 0)

	assert.True(t, s.OffTrail)
	require.NotNil(t, s.NearestWaypoint)
	assert.Equal(t, At, s.NearestWaypoint.Direction)
	assert.Nil(t, s.NextWater)
	assert.Nil(t, s.NextTown)
	assert.Zero(t, s.PercentComplete)
}
