package trailfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/odtweather/trail/server/internal/lib/trail"
)

// DirSource reads the trail data files from a local directory
type DirSource struct {
	dir string
}

var _ trail.Source = (*DirSource)(nil)

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (d *DirSource) FetchSamples(ctx context.Context) ([]trail.TrailSample, error) {
	var samples []trail.TrailSample
	if err := d.readJSON(ctx, ProfileFile, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

func (d *DirSource) FetchWaypoints(ctx context.Context) ([]trail.Waypoint, error) {
	var waypoints []trail.Waypoint
	if err := d.readJSON(ctx, WaypointsFile, &waypoints); err != nil {
		return nil, err
	}
	return waypoints, nil
}

func (d *DirSource) FetchPOIs(ctx context.Context, category trail.Category) ([]trail.PointOfInterest, error) {
	var pois []trail.PointOfInterest
	if err := d.readJSON(ctx, POIFile(category), &pois); err != nil {
		return nil, err
	}
	return tagCategory(pois, category), nil
}

func (d *DirSource) readJSON(ctx context.Context, name string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(d.dir, name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}
