package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"github.com/dpup/prefab"
	"github.com/dpup/prefab/logging"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/odtweather/trail/server/internal/cache"
	"github.com/odtweather/trail/server/internal/clients/trailfeed"
	"github.com/odtweather/trail/server/internal/config"
	"github.com/odtweather/trail/server/internal/lib/trail"
	"github.com/odtweather/trail/server/internal/services"
	"github.com/odtweather/trail/server/internal/stream"
)

func main() {
	// Load configuration using Prefab's config system
	appConfig := loadConfig()
	ctx := logging.EnsureLogger(context.Background())

	// Trail data comes from the published feed when configured, else from disk
	var source trail.Source
	if appConfig.Trail.DataURL != "" {
		source = trailfeed.NewClient(appConfig.Trail.DataURL)
		log.Printf("Trail data: %s", appConfig.Trail.DataURL)
	} else {
		source = trailfeed.NewDirSource(appConfig.Trail.DataDir)
		log.Printf("Trail data: directory %s", appConfig.Trail.DataDir)
	}

	store := trail.NewStore(source)

	cacheInstance := cache.NewCache()
	cacheInstance.StartPeriodicCleanup(ctx, appConfig.Trail.CacheCleanupInterval)

	// Session events fan out through redis when more than one instance runs
	redisClient := stream.ConnectRedis(appConfig.Stream)
	if redisClient != nil {
		log.Printf("Relaying session events through redis at %s", appConfig.Stream.RedisAddr)
	}
	hub := stream.NewHub(ctx, redisClient)

	poiService := services.NewPOIService(source, cacheInstance, &appConfig.Trail)
	sessionService := services.NewSessionService(store, poiService, hub, appConfig)
	trailService := services.NewTrailService(store, poiService, sessionService, hub)

	periodicRefresh := services.NewPeriodicRefreshService(poiService, sessionService, appConfig.Trail.POIRefreshInterval)
	if err := periodicRefresh.StartPeriodicRefresh(ctx); err != nil {
		log.Printf("Failed to start periodic refresh: %v", err)
	}

	// Health reports SERVING once the trail geometry is in memory
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	go warmGeometry(ctx, store, healthServer)

	log.Printf("Trail position server starting")

	server := prefab.New(
		prefab.WithGRPCReflection(),
		prefab.WithHTTPHandlerFunc("/v1/", trailService.ServeHTTP),
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
	)

	healthpb.RegisterHealthServer(server.ServiceRegistrar(), healthServer)

	// Start the server (blocks until shutdown)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	periodicRefresh.Stop()
}

// warmGeometry loads both trail sequences up front
func warmGeometry(ctx context.Context, store *trail.Store, hs *health.Server) {
	samples, err := store.Samples(ctx)
	if err != nil {
		log.Printf("Elevation profile unavailable: %v", err)
		return
	}
	waypoints, err := store.Waypoints(ctx)
	if err != nil {
		log.Printf("Waypoints unavailable: %v", err)
		return
	}
	log.Printf("Trail loaded: %.1f miles, %d samples, %d waypoints", trail.MaxMile(samples), len(samples), len(waypoints))
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}

// loadConfig loads configuration using Prefab's config system
// Configuration is loaded from prefab.yaml and environment variables with PF__ prefix
func loadConfig() *config.Config {
	appConfig := config.DefaultConfig()

	// Sections missing from prefab.yaml keep their defaults
	if err := prefab.Config.Unmarshal("trail", &appConfig.Trail); err != nil {
		log.Fatalf("Failed to unmarshal trail section: %v", err)
	}

	if err := prefab.Config.Unmarshal("charts", &appConfig.Charts); err != nil {
		log.Fatalf("Failed to unmarshal charts section: %v", err)
	}

	if err := prefab.Config.Unmarshal("sessions", &appConfig.Sessions); err != nil {
		log.Fatalf("Failed to unmarshal sessions section: %v", err)
	}

	if err := prefab.Config.Unmarshal("stream", &appConfig.Stream); err != nil {
		log.Fatalf("Failed to unmarshal stream section: %v", err)
	}

	return appConfig
}

// homepageHandler serves a simple HTML homepage at the server root
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	html := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>trail position server</title>
    <style>
        body {
            font-family: 'Courier New', Consolas, monospace;
            background: #000;
            color: #0f0;
            padding: 20px;
            line-height: 1.4;
        }
        a { color: #0ff; text-decoration: none; }
        a:hover { text-decoration: underline; }
        pre { margin: 0; }
        .header { color: #ff0; }
    </style>
</head>
<body>
<pre>
<span class="header">trail position server</span>

Resolves GPS fixes to trail mile markers and renders the elevation
profile around them.

<span class="header">Trail:</span>
  <a href="/v1/trail">GET /v1/trail</a>                      - Length and encoded track
  <a href="/v1/trail.kml">GET /v1/trail.kml</a>                  - Track and waypoints as KML
  <a href="/v1/trail.gpx">GET /v1/trail.gpx</a>                  - Track and waypoints as GPX
  GET /v1/resolve?lat=&amp;lon=           - Mile marker and off-trail distance
  <a href="/v1/pois/water">GET /v1/pois/{category}</a>            - water, towns, navigation, toilets

<span class="header">Sessions:</span>
  POST   /v1/sessions                          - Start a session
  POST   /v1/sessions/{id}/fix                 - Report a GPS fix
  POST   /v1/sessions/{id}/tap                 - Position from a map tap
  POST   /v1/sessions/{id}/charts/{canvas}     - Render the elevation chart
  GET    /v1/sessions/{id}/charts/{canvas}.png - Current chart image
  POST   /v1/sessions/{id}/charts/{canvas}/pointer
  POST   /v1/sessions/{id}/jump                - Recentre charts on the current mile
  POST   /v1/sessions/{id}/layers/{category}   - Show or hide a POI layer
  GET    /v1/sessions/{id}/stream              - Live events (websocket)
</pre>
</body>
</html>`

	if _, err := fmt.Fprint(w, html); err != nil {
		slog.Error("Failed to write homepage HTML", "error", err)
	}
}
