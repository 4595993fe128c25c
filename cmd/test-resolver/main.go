package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/odtweather/trail/server/internal/clients/trailfeed"
	"github.com/odtweather/trail/server/internal/lib/geo"
	"github.com/odtweather/trail/server/internal/lib/position"
	"github.com/odtweather/trail/server/internal/lib/trail"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	geoUtils := geo.NewGeoUtils()

	switch command {
	case "resolve":
		handleResolve()
	case "point-distance":
		handlePointDistance(geoUtils)
	case "polyline-distance":
		handlePolylineDistance(geoUtils)
	case "encode-polyline":
		handleEncodePolyline(geoUtils)
	case "decode-polyline":
		handleDecodePolyline(geoUtils)
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleResolve() {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	dataDir := fs.String("data", "data", "Directory holding the trail data files")
	lat := fs.Float64("lat", 0, "Latitude")
	lon := fs.Float64("lon", 0, "Longitude")
	asJSON := fs.Bool("json", false, "Print the full summary as JSON")

	fs.Parse(os.Args[2:])

	if *lat == 0 && *lon == 0 {
		fmt.Println("Example usage:")
		fmt.Println("  test-resolver resolve --data ./data --lat 43.2914 --lon -120.8452")
		os.Exit(1)
	}

	point, err := geo.NewPoint(*lat, *lon)
	if err != nil {
		log.Fatalf("Invalid point: %v", err)
	}

	ctx := context.Background()
	source := trailfeed.NewDirSource(*dataDir)
	store := trail.NewStore(source)

	waypoints, err := store.Waypoints(ctx)
	if err != nil {
		log.Fatalf("Error loading waypoints: %v", err)
	}
	samples, err := store.Samples(ctx)
	if err != nil {
		log.Printf("Elevation profile unavailable, using waypoints as the track: %v", err)
	}
	water, err := source.FetchPOIs(ctx, trail.Water)
	if err != nil {
		log.Printf("Water sources unavailable: %v", err)
	}
	towns, err := source.FetchPOIs(ctx, trail.Towns)
	if err != nil {
		log.Printf("Towns unavailable: %v", err)
	}

	result := position.Resolve(point, waypoints, samples)
	summary := position.Summarize(result, waypoints, water, towns, trail.MaxMile(samples))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			log.Fatalf("Error encoding summary: %v", err)
		}
		return
	}

	fmt.Printf("Position:\n")
	fmt.Printf("  Point: (%.6f, %.6f)\n", point.Latitude, point.Longitude)
	fmt.Printf("  Mile: %.1f\n", summary.Mile)
	fmt.Printf("  Off trail: %.2f miles", summary.OffTrailDistanceMiles)
	if summary.OffTrail {
		fmt.Printf(" (OFF TRAIL)")
	}
	fmt.Println()
	if wp := summary.NearestWaypoint; wp != nil {
		fmt.Printf("  Nearest waypoint: %s, mile %.1f (%.1f mi %s)\n", wp.Name, wp.Mile, wp.Distance, wp.Direction)
	}
	if w := summary.NextWater; w != nil {
		fmt.Printf("  Next water: %s, mile %.1f (%.1f mi)\n", w.Name, w.Mile, w.Distance)
		if w.Warning {
			fmt.Printf("  Warning: long dry stretch\n")
		}
	}
	if town := summary.NextTown; town != nil {
		fmt.Printf("  Next town: %s, mile %.1f (%.1f mi)\n", town.Name, town.Mile, town.Distance)
	}
	if summary.PercentComplete > 0 {
		fmt.Printf("  Progress: %.1f%% (%.1f mi to go)\n", summary.PercentComplete, summary.MilesToEnd)
	}
}

func handlePointDistance(geoUtils geo.GeoUtils) {
	fs := flag.NewFlagSet("point-distance", flag.ExitOnError)
	lat1 := fs.Float64("lat1", 0, "Latitude of first point")
	lon1 := fs.Float64("lon1", 0, "Longitude of first point")
	lat2 := fs.Float64("lat2", 0, "Latitude of second point")
	lon2 := fs.Float64("lon2", 0, "Longitude of second point")

	fs.Parse(os.Args[2:])

	if *lat1 == 0 && *lon1 == 0 && *lat2 == 0 && *lon2 == 0 {
		fmt.Println("Example usage:")
		fmt.Println("  test-resolver point-distance --lat1 43.2914 --lon1 -120.8452 --lat2 43.3021 --lon2 -120.8317")
		os.Exit(1)
	}

	p1 := geo.Point{Latitude: *lat1, Longitude: *lon1}
	p2 := geo.Point{Latitude: *lat2, Longitude: *lon2}

	distance, err := geoUtils.PointToPoint(p1, p2)
	if err != nil {
		log.Fatalf("Error calculating distance: %v", err)
	}

	fmt.Printf("Distance between points:\n")
	fmt.Printf("  Point 1: (%.6f, %.6f)\n", p1.Latitude, p1.Longitude)
	fmt.Printf("  Point 2: (%.6f, %.6f)\n", p2.Latitude, p2.Longitude)
	fmt.Printf("  Great circle: %.2f meters (%.2f miles)\n", distance, distance/geo.MetersPerMile)
	fmt.Printf("  Planar: %.2f miles\n", geoUtils.PlanarDistanceMiles(p1, p2, p1.Latitude))
}

func handlePolylineDistance(geoUtils geo.GeoUtils) {
	fs := flag.NewFlagSet("polyline-distance", flag.ExitOnError)
	lat := fs.Float64("lat", 0, "Latitude of point")
	lon := fs.Float64("lon", 0, "Longitude of point")
	polylineStr := fs.String("polyline", "", "Encoded polyline string")

	fs.Parse(os.Args[2:])

	if *polylineStr == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-resolver polyline-distance --lat 43.30 --lon -120.84 --polyline \"encoded_string\"")
		os.Exit(1)
	}

	points, err := geoUtils.DecodePolyline(*polylineStr)
	if err != nil {
		log.Fatalf("Error decoding polyline: %v", err)
	}
	point := geo.Point{Latitude: *lat, Longitude: *lon}
	polyline := geo.Polyline{EncodedPolyline: *polylineStr, Points: points}

	distance := geoUtils.PointToPolylineMiles(point, polyline)

	fmt.Printf("Distance from point to polyline:\n")
	fmt.Printf("  Point: (%.6f, %.6f)\n", point.Latitude, point.Longitude)
	fmt.Printf("  Polyline: %d points\n", len(points))
	fmt.Printf("  Distance: %.3f miles\n", distance)
	if distance > position.OffTrailThreshold {
		fmt.Printf("  Classification: OFF TRAIL (>%.1f mi)\n", position.OffTrailThreshold)
	} else {
		fmt.Printf("  Classification: ON TRAIL\n")
	}
}

func handleEncodePolyline(geoUtils geo.GeoUtils) {
	fs := flag.NewFlagSet("encode-polyline", flag.ExitOnError)
	coords := fs.String("points", "", "Semicolon separated lat,lon pairs")

	fs.Parse(os.Args[2:])

	points, err := parseCoordinatePairs(*coords)
	if err != nil {
		fmt.Println("Example usage:")
		fmt.Println("  test-resolver encode-polyline --points \"43.29,-120.84;43.30,-120.83\"")
		log.Fatalf("Error parsing points: %v", err)
	}

	fmt.Println(geoUtils.EncodePolyline(points))
}

func handleDecodePolyline(geoUtils geo.GeoUtils) {
	fs := flag.NewFlagSet("decode-polyline", flag.ExitOnError)
	polylineStr := fs.String("polyline", "", "Encoded polyline string to decode")
	verbose := fs.Bool("verbose", false, "Show all decoded points")

	fs.Parse(os.Args[2:])

	if *polylineStr == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-resolver decode-polyline --polyline \"encoded_string\" --verbose")
		os.Exit(1)
	}

	points, err := geoUtils.DecodePolyline(*polylineStr)
	if err != nil {
		log.Fatalf("Error decoding polyline: %v", err)
	}

	fmt.Printf("Polyline decoded successfully:\n")
	fmt.Printf("  Points: %d\n", len(points))
	if len(points) > 0 {
		fmt.Printf("  Start: (%.6f, %.6f)\n", points[0].Latitude, points[0].Longitude)
		fmt.Printf("  End: (%.6f, %.6f)\n", points[len(points)-1].Latitude, points[len(points)-1].Longitude)
	}

	if *verbose {
		for i, point := range points {
			fmt.Printf("    %d: (%.6f, %.6f)\n", i+1, point.Latitude, point.Longitude)
		}
	}
}

func printUsage() {
	fmt.Printf(`test-resolver - Trail position testing tool

USAGE:
    test-resolver <command> [options]

COMMANDS:
    resolve             Resolve a coordinate against a trail data directory
    point-distance      Great-circle and planar distance between two points
    polyline-distance   Off-trail distance from a point to an encoded track
    encode-polyline     Encode lat,lon pairs as a polyline string
    decode-polyline     Decode a polyline string to coordinates
    help                Show this help message

EXAMPLES:
    test-resolver resolve --data ./data --lat 43.2914 --lon -120.8452
    test-resolver point-distance --lat1 43.2914 --lon1 -120.8452 --lat2 43.3021 --lon2 -120.8317
    test-resolver encode-polyline --points "43.29,-120.84;43.30,-120.83"
`)
}

// parseCoordinatePairs parses "lat,lon;lat,lon" into points
func parseCoordinatePairs(coordStr string) ([]geo.Point, error) {
	if coordStr == "" {
		return nil, fmt.Errorf("empty coordinate string")
	}

	pairs := strings.Split(coordStr, ";")
	points := make([]geo.Point, 0, len(pairs))

	for _, pair := range pairs {
		coords := strings.Split(strings.TrimSpace(pair), ",")
		if len(coords) != 2 {
			return nil, fmt.Errorf("invalid coordinate pair: %s", pair)
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude: %s", coords[0])
		}

		lon, err := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude: %s", coords[1])
		}

		point, err := geo.NewPoint(lat, lon)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}

	return points, nil
}
