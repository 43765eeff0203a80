package server

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"camconnect/internal/history"
	"camconnect/internal/metrics"
	"camconnect/internal/models"
	"camconnect/internal/wizard"
)

//go:embed static/*
var embeddedStatic embed.FS

// Info describes the camera network the wizard is guiding the user onto.
type Info struct {
	NetworkName string `json:"network_name"`
	CameraURL   string `json:"camera_url"`
}

// Server wraps HTTP serving of the wizard API, its websocket stream and static assets.
type Server struct {
	httpServer   *http.Server
	router       *mux.Router
	wizard       *wizard.Controller
	info         Info
	staticFS     fs.FS
	logger       *log.Logger
	historyLimit int
}

type wizardResponse struct {
	wizard.Snapshot
	Info
	Steps []models.Step `json:"steps"`
}

type timelineResponse struct {
	Signal history.Signal         `json:"signal"`
	Start  time.Time              `json:"start"`
	End    time.Time              `json:"end"`
	Points []models.TimelinePoint `json:"points"`
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

// New creates a configured HTTP server for the wizard.
func New(addr string, ctrl *wizard.Controller, info Info, logger *log.Logger) *Server {
	staticFS, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic("static assets missing: " + err.Error())
	}
	if logger == nil {
		logger = log.Default()
	}

	router := mux.NewRouter()
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		router:       router,
		wizard:       ctrl,
		info:         info,
		staticFS:     staticFS,
		logger:       logger,
		historyLimit: 200,
	}
	s.registerRoutes(router)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(r *mux.Router) {
	r.HandleFunc("/api/ping", handlePing).Methods(http.MethodGet, http.MethodHead, http.MethodOptions)

	r.HandleFunc("/api/wizard", s.handleWizard).Methods(http.MethodGet)
	r.HandleFunc("/api/wizard/ws", s.handleWizardWS).Methods(http.MethodGet)
	r.HandleFunc("/api/wizard/steps/{id}/toggle", s.handleToggle).Methods(http.MethodPost)
	r.HandleFunc("/api/wizard/platform/{platform}", s.handlePlatform).Methods(http.MethodPost)
	r.HandleFunc("/api/wizard/visibility", s.handleVisibility).Methods(http.MethodPost)
	r.HandleFunc("/api/wizard/reset", s.handleReset).Methods(http.MethodPost)

	r.HandleFunc("/api/probe/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/probe/latest", s.handleLatest).Methods(http.MethodGet)
	r.HandleFunc("/api/probe/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/probe/timeline", s.handleTimeline).Methods(http.MethodGet)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(s.staticFS))))
}

// handlePing is the echo endpoint the browser front-end probes: an empty 204
// that no cache may store and any origin may read.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	data, err := fs.ReadFile(s.staticFS, "index.html")
	if err != nil {
		http.Error(w, "index missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) handleWizard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.wizardResponse())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.knownStep(id) {
		writeError(w, http.StatusNotFound, "unknown step "+id)
		return
	}
	s.wizard.ToggleStep(id)
	s.writeApplied(w, r)
}

func (s *Server) handlePlatform(w http.ResponseWriter, r *http.Request) {
	s.wizard.SetPlatform(mux.Vars(r)["platform"])
	s.writeApplied(w, r)
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Visible == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"visible\": bool}")
		return
	}
	s.wizard.SetVisible(*req.Visible)
	writeJSON(w, http.StatusOK, s.wizardResponse())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.wizard.Reset()
	s.writeApplied(w, r)
}

// writeApplied responds once the posted event has gone through the event loop.
func (s *Server) writeApplied(w http.ResponseWriter, r *http.Request) {
	if err := s.wizard.Flush(r.Context()); err != nil {
		s.logger.Printf("server: wizard event not applied: %v", err)
		writeError(w, http.StatusServiceUnavailable, "wizard unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s.wizardResponse())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, s.historyLimit)
	writeJSON(w, http.StatusOK, s.samples(limit))
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	h := s.wizard.History()
	if h == nil {
		writeError(w, http.StatusNotFound, "no samples yet")
		return
	}
	sample, ok := h.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no samples yet")
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	summary := metrics.ComputeSignalUptime(s.samples(0))
	if summary == nil {
		summary = []metrics.SignalUptime{}
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	signal := history.Signal(r.URL.Query().Get("signal"))
	if signal == "" {
		signal = history.SignalInternet
	}
	if signal != history.SignalInternet && signal != history.SignalDevice {
		writeError(w, http.StatusBadRequest, "signal must be internet or device")
		return
	}
	minutes := parseBounded(r.URL.Query().Get("minutes"), 5, 60)
	points := parseBounded(r.URL.Query().Get("points"), history.DefaultTimelinePoints, 240)

	end := time.Now().UTC()
	start := end.Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, timelineResponse{
		Signal: signal,
		Start:  start,
		End:    end,
		Points: history.BuildProbeTimeline(s.samples(0), signal, start, end, points),
	})
}

func (s *Server) wizardResponse() wizardResponse {
	return wizardResponse{
		Snapshot: s.wizard.Snapshot(),
		Info:     s.info,
		Steps:    s.wizard.Steps(),
	}
}

// samples returns the newest limit samples, or all of them when limit is 0.
func (s *Server) samples(limit int) []models.Sample {
	h := s.wizard.History()
	if h == nil {
		return []models.Sample{}
	}
	all := h.All()
	if all == nil {
		return []models.Sample{}
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all
}

func (s *Server) knownStep(id string) bool {
	for _, step := range s.wizard.Steps() {
		if step.ID == id {
			return true
		}
	}
	return false
}

func parseLimit(r *http.Request, fallback int) int {
	if fallback <= 0 {
		return fallback
	}
	return parseBounded(r.URL.Query().Get("limit"), fallback, fallback)
}

// parseBounded parses a positive integer, falling back on junk and capping at ceiling.
func parseBounded(raw string, fallback, ceiling int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > ceiling {
		return ceiling
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
