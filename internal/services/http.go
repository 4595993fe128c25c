package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dpup/prefab/logging"
	"github.com/tkrajina/gpxgo/gpx"
	kml "github.com/twpayne/go-kml"

	"github.com/odtweather/trail/server/internal/lib/geo"
	"github.com/odtweather/trail/server/internal/lib/position"
	"github.com/odtweather/trail/server/internal/lib/trail"
	"github.com/odtweather/trail/server/internal/lib/viewport"
	"github.com/odtweather/trail/server/internal/stream"
)

const (
	maxBodyBytes   = 1 << 20
	metersPerFoot  = 0.3048
	exportDocument = "Trail"
)

// TrailService is the JSON HTTP API mounted under /v1/
type TrailService struct {
	store    *trail.Store
	pois     *POIService
	sessions *SessionService
	hub      *stream.Hub
	geoUtils geo.GeoUtils
	mux      *http.ServeMux
}

// NewTrailService creates a new TrailService and its routes
func NewTrailService(store *trail.Store, pois *POIService, sessions *SessionService, hub *stream.Hub) *TrailService {
	s := &TrailService{
		store:    store,
		pois:     pois,
		sessions: sessions,
		hub:      hub,
		geoUtils: geo.NewGeoUtils(),
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /v1/resolve", s.handleResolve)
	s.mux.HandleFunc("GET /v1/trail", s.handleTrail)
	s.mux.HandleFunc("GET /v1/trail.kml", s.handleTrailKML)
	s.mux.HandleFunc("GET /v1/trail.gpx", s.handleTrailGPX)
	s.mux.HandleFunc("GET /v1/pois/{category}", s.handlePOIs)

	s.mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)
	s.mux.HandleFunc("POST /v1/sessions/{id}/fix", s.handleReport(SourceGPS))
	s.mux.HandleFunc("POST /v1/sessions/{id}/tap", s.handleReport(SourceTap))
	s.mux.HandleFunc("POST /v1/sessions/{id}/jump", s.handleJump)
	s.mux.HandleFunc("POST /v1/sessions/{id}/layers/{category}", s.handleLayer)
	s.mux.HandleFunc("POST /v1/sessions/{id}/charts/{canvas}", s.handleRenderChart)
	s.mux.HandleFunc("GET /v1/sessions/{id}/charts/{canvas}", s.handleGetChart)
	s.mux.HandleFunc("POST /v1/sessions/{id}/charts/{canvas}/pointer", s.handlePointer)
	s.mux.HandleFunc("GET /v1/sessions/{id}/stream", s.handleStream)

	return s
}

func (s *TrailService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleResolve resolves ?lat=&lon= to a position summary
func (s *TrailService) handleResolve(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lon query parameters are required")
		return
	}
	point, err := geo.NewPoint(lat, lon)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, _ := s.sessions.summarize(r.Context(), point)
	writeJSON(w, http.StatusOK, summary)
}

type trailResponse struct {
	MaxMile       float64 `json:"max_mile"`
	SampleCount   int     `json:"sample_count"`
	WaypointCount int     `json:"waypoint_count"`
	Polyline      string  `json:"polyline"`
}

func (s *TrailService) handleTrail(w http.ResponseWriter, r *http.Request) {
	samples, waypoints, err := s.geometry(r.Context())
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	points := make([]geo.Point, len(samples))
	for i, sample := range samples {
		points[i] = sample.Point()
	}
	writeJSON(w, http.StatusOK, trailResponse{
		MaxMile:       trail.MaxMile(samples),
		SampleCount:   len(samples),
		WaypointCount: len(waypoints),
		Polyline:      s.geoUtils.EncodePolyline(points),
	})
}

// handleTrailKML exports the track and waypoints as KML, altitudes in meters
func (s *TrailService) handleTrailKML(w http.ResponseWriter, r *http.Request) {
	samples, waypoints, err := s.geometry(r.Context())
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	coords := make([]kml.Coordinate, len(samples))
	for i, sample := range samples {
		coords[i] = kml.Coordinate{Lon: sample.Lon, Lat: sample.Lat, Alt: sample.Elevation * metersPerFoot}
	}

	markers := []kml.Element{kml.Name("Waypoints")}
	for _, wp := range waypoints {
		markers = append(markers, kml.Placemark(
			kml.Name(wp.Name),
			kml.Description("mile "+strconv.FormatFloat(wp.Mile, 'f', -1, 64)),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: wp.Lon, Lat: wp.Lat})),
		))
	}

	doc := kml.KML(kml.Document(
		kml.Name(exportDocument),
		kml.Placemark(
			kml.Name("Track"),
			kml.LineString(kml.Coordinates(coords...)),
		),
		kml.Folder(markers...),
	))

	var buf bytes.Buffer
	if err := doc.WriteIndent(&buf, "", "  "); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	writeBody(w, buf.Bytes())
}

// handleTrailGPX exports the track and waypoints as GPX 1.1
func (s *TrailService) handleTrailGPX(w http.ResponseWriter, r *http.Request) {
	samples, waypoints, err := s.geometry(r.Context())
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}

	segment := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, len(samples))}
	for i, sample := range samples {
		segment.Points[i].Latitude = sample.Lat
		segment.Points[i].Longitude = sample.Lon
		segment.Points[i].Elevation = *gpx.NewNullableFloat64(sample.Elevation * metersPerFoot)
	}

	doc := &gpx.GPX{
		Name:   exportDocument,
		Tracks: []gpx.GPXTrack{{Name: exportDocument, Segments: []gpx.GPXTrackSegment{segment}}},
	}
	for _, wp := range waypoints {
		var p gpx.GPXPoint
		p.Latitude = wp.Lat
		p.Longitude = wp.Lon
		p.Name = wp.Name
		p.Description = "mile " + strconv.FormatFloat(wp.Mile, 'f', -1, 64)
		doc.Waypoints = append(doc.Waypoints, p)
	}

	body, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Type", "application/gpx+xml")
	writeBody(w, body)
}

func (s *TrailService) handlePOIs(w http.ResponseWriter, r *http.Request) {
	category, ok := trail.ParseCategory(r.PathValue("category"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown category")
		return
	}
	pois, err := s.pois.POIs(r.Context(), category)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	if pois == nil {
		pois = []trail.PointOfInterest{}
	}
	writeJSON(w, http.StatusOK, pois)
}

type sessionResponse struct {
	*Session
	Summary *position.Summary `json:"summary,omitempty"`
}

func (s *TrailService) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create(r.Context())
	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess})
}

func (s *TrailService) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Summary: sess.Summary()})
}

func (s *TrailService) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.PathValue("id")); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReport accepts a {"lat","lon"} body from a GPS fix or a map tap
func (s *TrailService) handleReport(source string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Lat *float64 `json:"lat"`
			Lon *float64 `json:"lon"`
		}
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if body.Lat == nil || body.Lon == nil {
			writeError(w, http.StatusBadRequest, "lat and lon are required")
			return
		}

		id := r.PathValue("id")
		var (
			result FixResult
			err    error
		)
		if source == SourceTap {
			result, err = s.sessions.ReportTap(r.Context(), id, *body.Lat, *body.Lon)
		} else {
			result, err = s.sessions.ReportFix(r.Context(), id, *body.Lat, *body.Lon)
		}
		if err != nil {
			s.writeServiceError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *TrailService) handleJump(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Jump(r.PathValue("id")); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *TrailService) handleLayer(w http.ResponseWriter, r *http.Request) {
	category, ok := trail.ParseCategory(r.PathValue("category"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown category")
		return
	}
	var body struct {
		Visible *bool `json:"visible"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Visible == nil {
		writeError(w, http.StatusBadRequest, "visible is required")
		return
	}
	if err := s.sessions.SetLayer(r.PathValue("id"), category, *body.Visible); err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *TrailService) handleRenderChart(w http.ResponseWriter, r *http.Request) {
	var req ChartRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.sessions.RenderChart(r.Context(), r.PathValue("id"), r.PathValue("canvas"), req)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleGetChart serves the chart as JSON, or as an image for a ".png" name
func (s *TrailService) handleGetChart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	canvas := r.PathValue("canvas")

	if name, ok := strings.CutSuffix(canvas, ".png"); ok {
		var buf bytes.Buffer
		if err := s.sessions.ChartPNG(id, name, &buf); err != nil {
			s.writeServiceError(r.Context(), w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		writeBody(w, buf.Bytes())
		return
	}

	view, err := s.sessions.Chart(id, canvas)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *TrailService) handlePointer(w http.ResponseWriter, r *http.Request) {
	var ev viewport.PointerEvent
	if err := decodeBody(w, r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.sessions.Pointer(r.PathValue("id"), r.PathValue("canvas"), ev)
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *TrailService) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(r.Context(), w, err)
		return
	}
	s.hub.ServeSession(w, r, sess.ID, s.sessions.Hello(sess))
}

// geometry awaits both trail sequences
func (s *TrailService) geometry(ctx context.Context) ([]trail.TrailSample, []trail.Waypoint, error) {
	samples, err := s.store.Samples(ctx)
	if err != nil {
		return nil, nil, err
	}
	waypoints, err := s.store.Waypoints(ctx)
	if err != nil {
		return nil, nil, err
	}
	return samples, waypoints, nil
}

func (s *TrailService) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrChartNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, geo.ErrInvalidCoordinates):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, trail.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logging.Errorw(logging.EnsureLogger(ctx), "Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeBody(w http.ResponseWriter, body []byte) {
	if _, err := w.Write(body); err != nil {
		slog.Error("Failed to write response body", "error", err)
	}
}
