package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/odtweather/trail/server/internal/clients/trailfeed"
	"github.com/odtweather/trail/server/internal/lib/geo"
	"github.com/odtweather/trail/server/internal/lib/trail"
)

func main() {
	input := flag.String("gpx", "", "GPX track of the whole trail")
	outDir := flag.String("out", "data", "Directory to write the data files to")
	withWaypoints := flag.Bool("waypoints", true, "Also write the GPX waypoints, placed at their nearest track mile")
	flag.Parse()

	if *input == "" {
		fmt.Println("Example usage:")
		fmt.Println("  build-profile --gpx trail.gpx --out ./data")
		os.Exit(1)
	}

	doc, err := gpx.ParseFile(*input)
	if err != nil {
		log.Fatalf("Error reading %s: %v", *input, err)
	}

	samples := trail.ProfileFromGPX(doc)
	if err := trail.ValidateSamples(samples); err != nil {
		log.Fatalf("Invalid profile: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Error creating %s: %v", *outDir, err)
	}
	writeJSON(filepath.Join(*outDir, trailfeed.ProfileFile), samples)
	log.Printf("Profile: %d samples, %.1f miles", len(samples), trail.MaxMile(samples))

	if *withWaypoints && len(doc.Waypoints) > 0 {
		waypoints := placeWaypoints(doc.Waypoints, samples)
		writeJSON(filepath.Join(*outDir, trailfeed.WaypointsFile), waypoints)
		log.Printf("Waypoints: %d", len(waypoints))
	}
}

// placeWaypoints assigns each GPX waypoint the mile of the closest sample
func placeWaypoints(points []gpx.GPXPoint, samples []trail.TrailSample) []trail.Waypoint {
	geoUtils := geo.NewGeoUtils()

	waypoints := make([]trail.Waypoint, 0, len(points))
	for _, p := range points {
		here := geo.Point{Latitude: p.Latitude, Longitude: p.Longitude}
		mile, best := 0.0, math.Inf(1)
		for _, s := range samples {
			if d := geoUtils.DegreeDistance(here, s.Point()); d < best {
				best = d
				mile = s.Distance
			}
		}
		waypoints = append(waypoints, trail.Waypoint{
			Lon:  p.Longitude,
			Lat:  p.Latitude,
			Mile: mile,
			Name: p.Name,
		})
	}
	return waypoints
}

func writeJSON(path string, v interface{}) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Error creating %s: %v", path, err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(v); err != nil {
		log.Fatalf("Error writing %s: %v", path, err)
	}
}
