package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Shehab101tf/tareeqa0-sub002/escpos"
	"github.com/Shehab101tf/tareeqa0-sub002/events"
	"github.com/Shehab101tf/tareeqa0-sub002/hardware"
	"github.com/Shehab101tf/tareeqa0-sub002/logger"
	"github.com/Shehab101tf/tareeqa0-sub002/spooler"
	"github.com/Shehab101tf/tareeqa0-sub002/storage"
)

// webServer is the loopback control surface the till front-end talks to.
// It only ever binds a local address; there is no authentication layer.
type webServer struct {
	cfg      *Config
	logger   *logger.Logger
	registry *hardware.Registry
	journal  *storage.Journal
	bus      *events.Bus
	started  time.Time
	server   *http.Server
	wsSeq    atomic.Uint64
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the server binds loopback only, cross-origin pages may still open it
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newWebServer(cfg *Config, appLogger *logger.Logger, registry *hardware.Registry, journal *storage.Journal, bus *events.Bus) *webServer {
	s := &webServer{
		cfg:      cfg,
		logger:   appLogger,
		registry: registry,
		journal:  journal,
		bus:      bus,
		started:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/devices", s.handleDevices)
	mux.HandleFunc("/api/detect", s.handleDetect)
	mux.HandleFunc("/api/connect", s.handleConnect)
	mux.HandleFunc("/api/disconnect", s.handleDisconnect)
	mux.HandleFunc("/api/queue", s.handleQueue)
	mux.HandleFunc("/api/print", s.handlePrint)
	mux.HandleFunc("/api/history/scans", s.handleScanHistory)
	mux.HandleFunc("/api/history/jobs", s.handleJobHistory)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Web.Bind, cfg.Web.Port),
		Handler:           mux,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// start launches the listener. Failure to bind is reported through the
// logger, not fatal; the hardware side keeps running without the API.
func (s *webServer) start() {
	go func() {
		s.logger.Info("Web API listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web API failed", "error", err.Error())
		}
	}()
}

func (s *webServer) shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *webServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to encode response", "error", err.Error())
	}
}

func (s *webServer) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *webServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}

	hidOK, serialOK := s.registry.Capabilities()
	devices := s.registry.Devices()
	connected := 0
	for _, dev := range devices {
		if dev.Connected {
			connected++
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":       Version,
		"uptimeSeconds": int(time.Since(s.started).Seconds()),
		"capabilities": map[string]bool{
			"hid":    hidOK,
			"serial": serialOK,
		},
		"devices": map[string]int{
			"tracked":   len(devices),
			"connected": connected,
		},
		"droppedEvents": s.bus.Dropped(),
	})
}

func (s *webServer) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	s.writeJSON(w, http.StatusOK, s.registry.Devices())
}

func (s *webServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	s.writeJSON(w, http.StatusOK, s.registry.Detect())
}

func (s *webServer) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req struct {
		DeviceID string `json:"deviceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		s.writeError(w, http.StatusBadRequest, "body must carry a deviceId")
		return
	}

	switch err := s.registry.Connect(req.DeviceID); {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"deviceId": req.DeviceID, "status": "connected"})
	case errors.Is(err, hardware.ErrDeviceNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, hardware.ErrUnsupportedDeviceType):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *webServer) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	s.registry.DisconnectAll()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

func (s *webServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")

	switch r.Method {
	case http.MethodGet:
		jobs, err := s.registry.QueueJobs(deviceID)
		if err != nil {
			s.writeError(w, http.StatusNotFound, "no connected printer")
			return
		}
		s.writeJSON(w, http.StatusOK, jobs)
	case http.MethodDelete:
		n, err := s.registry.ClearQueue(deviceID)
		if err != nil {
			s.writeError(w, http.StatusNotFound, "no connected printer")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "use GET or DELETE")
	}
}

func (s *webServer) handlePrint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req struct {
		DeviceID string          `json:"deviceId"`
		Kind     string          `json:"kind"`
		Priority string          `json:"priority"`
		Payload  json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var payload interface{}
	switch spooler.Kind(req.Kind) {
	case spooler.KindReceipt:
		var receipt escpos.Receipt
		if err := json.Unmarshal(req.Payload, &receipt); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid receipt payload")
			return
		}
		payload = receipt
	case spooler.KindReport:
		var report escpos.Report
		if err := json.Unmarshal(req.Payload, &report); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid report payload")
			return
		}
		payload = report
	case spooler.KindTest, spooler.KindDrawer:
		payload = nil
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown job kind %q", req.Kind))
		return
	}

	jobID, err := s.registry.Enqueue(req.DeviceID, spooler.Kind(req.Kind), payload, spooler.Priority(req.Priority))
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
	case errors.Is(err, hardware.ErrDeviceNotFound):
		s.writeError(w, http.StatusNotFound, "no connected printer")
	default:
		s.writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *webServer) historyLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

func (s *webServer) handleScanHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	scans, err := s.journal.RecentScans(r.Context(), s.historyLimit(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if scans == nil {
		scans = []storage.ScanRecord{}
	}
	s.writeJSON(w, http.StatusOK, scans)
}

func (s *webServer) handleJobHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	jobs, err := s.journal.RecentJobs(r.Context(), s.historyLimit(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if jobs == nil {
		jobs = []storage.JobRecord{}
	}
	s.writeJSON(w, http.StatusOK, jobs)
}

func (s *webServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}

	entries := s.logger.GetBuffer()
	lines := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, map[string]interface{}{
			"timestamp": e.Timestamp,
			"level":     logger.LevelToString(e.Level),
			"message":   e.Message,
			"context":   e.Context,
		})
	}
	s.writeJSON(w, http.StatusOK, lines)
}

// handleWebSocket bridges the event bus to one client. Every bus event goes
// out as its JSON form; a client that cannot keep up is dropped rather than
// ever blocking the bus.
func (s *webServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	id := fmt.Sprintf("ws-%s-%d", r.RemoteAddr, s.wsSeq.Add(1))
	sub := s.bus.Subscribe(id, 64)
	defer s.bus.Unsubscribe(id)

	s.logger.Debug("WebSocket client connected", "client", id)

	// drain the client side so closes are noticed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("WebSocket client dropped", "client", id, "error", err.Error())
				return
			}
		case <-done:
			s.logger.Debug("WebSocket client disconnected", "client", id)
			return
		}
	}
}
