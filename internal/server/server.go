package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/clipbridge/config"
	"github.com/jpalmerr/clipbridge/internal/coords"
	"github.com/jpalmerr/clipbridge/internal/history"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// maxBodyBytes caps JSON request bodies.
	maxBodyBytes = 64 << 10

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Xaero Clipboard Bridge"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Control is the write side of the bridge that the API drives.
type Control interface {
	// Settings returns a copy of the current settings.
	Settings() config.Settings

	// UpdateSettings applies fn to the live settings and returns the result.
	UpdateSettings(fn func(*config.Settings)) (config.Settings, error)

	// SetAutoWrite switches auto-write on or off.
	SetAutoWrite(on bool)

	// ToggleAutoWrite flips auto-write and returns the new state.
	ToggleAutoWrite() bool

	// WriteTriple formats t and appends it to the destination file.
	WriteTriple(ctx context.Context, t coords.Triple, label string) (history.Record, error)

	// CopyRecord places the record line on the clipboard.
	CopyRecord(r history.Record) error

	// ClearHistory empties both history lists.
	ClearHistory()

	// Shutdown stops the bridge.
	Shutdown()
}

// Server handles HTTP requests for the bridge dashboard and API.
//
// Routes:
//   - GET /: embedded dashboard HTML
//   - GET /api/history: raw and written history as JSON
//   - GET, PATCH /api/settings: current settings, partial update
//   - GET /api/sse: Server-Sent Events stream of history events
//   - POST /api/autowrite, /api/write, /api/copy, /api/clear, /api/shutdown
//   - GET /metrics: Prometheus exposition, when a gatherer is configured
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      history.Store
	control    Control
	gatherer   prometheus.Gatherer
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: history store backing the read endpoints and the event stream
//   - ctl: control surface for the write endpoints
//   - gatherer: metrics source for /metrics (may be nil)
//   - port: TCP port to listen on
//   - assets: embedded filesystem containing dashboard assets (may be nil)
//   - title: dashboard title (defaults to "Xaero Clipboard Bridge" if empty)
//   - logger: logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st history.Store, ctl Control, gatherer prometheus.Gatherer, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	return &Server{
		store:    st,
		control:  ctl,
		gatherer: gatherer,
		port:     port,
		assets:   assets,
		title:    title,
		logger:   logger,
	}
}

// Handler returns the routed, panic-protected handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("/api/autowrite", s.handleAutoWrite)
	mux.HandleFunc("/api/write", s.handleWrite)
	mux.HandleFunc("/api/copy", s.handleCopy)
	mux.HandleFunc("/api/clear", s.handleClear)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	if s.assets != nil {
		mux.HandleFunc("/", s.handleDashboard)
	}

	return s.recoverPanics(mux)
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address, or nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// recoverPanics turns a handler panic into a 500 with a correlation ID.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				panicID := uuid.New().String()
				s.logger.Error("http handler panic recovered",
					"panic_id", panicID,
					"path", r.URL.Path,
					"panic", rec,
				)
				http.Error(w, "Internal error (id "+panicID+")", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// read index.html from embedded assets
	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	safeTitle := html.EscapeString(title)
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, safeTitle)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// historyResponse is the body of GET /api/history.
type historyResponse struct {
	Samples []history.Sample `json:"samples"`
	Records []history.Record `json:"records"`
}

// handleHistory returns both history lists, most recent first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := historyResponse{
		Samples: s.store.Samples(),
		Records: s.store.Records(),
	}
	if resp.Samples == nil {
		resp.Samples = []history.Sample{}
	}
	if resp.Records == nil {
		resp.Records = []history.Record{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleSettings returns or partially updates the settings.
//
// PATCH accepts a JSON object of recognised keys; keys not present keep
// their current value. Unknown keys are rejected.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.control.Settings())

	case http.MethodPatch:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}

		// reject malformed or unknown keys before touching live settings
		var probe config.Settings
		if err := decodeStrict(body, &probe); err != nil {
			http.Error(w, "Invalid settings: "+err.Error(), http.StatusBadRequest)
			return
		}

		updated, err := s.control.UpdateSettings(func(cur *config.Settings) {
			// same bytes as the probe, cannot fail
			_ = decodeStrict(body, cur)
		})
		if err != nil {
			http.Error(w, "Invalid settings: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.writeJSON(w, http.StatusOK, updated)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type autoWriteRequest struct {
	Enabled *bool `json:"enabled"`
}

type autoWriteResponse struct {
	Enabled bool `json:"enabled"`
}

// handleAutoWrite sets auto-write from {"enabled": bool}, or toggles it when
// the body is empty or omits the field.
func (s *Server) handleAutoWrite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req autoWriteRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	var enabled bool
	if req.Enabled == nil {
		enabled = s.control.ToggleAutoWrite()
	} else {
		s.control.SetAutoWrite(*req.Enabled)
		enabled = *req.Enabled
	}
	s.writeJSON(w, http.StatusOK, autoWriteResponse{Enabled: enabled})
}

type writeRequest struct {
	SampleID string         `json:"sample_id"`
	Coords   *coords.Triple `json:"coords"`
	Label    string         `json:"label"`
}

// handleWrite writes a waypoint for explicit coordinates or for a parsed
// entry of the raw history.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req writeRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	var t coords.Triple
	switch {
	case req.Coords != nil:
		t = *req.Coords
	case req.SampleID != "":
		sample, ok := findByID(s.store.Samples(), req.SampleID, func(v history.Sample) string { return v.ID })
		if !ok {
			http.Error(w, "Sample not found", http.StatusNotFound)
			return
		}
		if !sample.Parsed() {
			http.Error(w, "Sample has no coordinates", http.StatusUnprocessableEntity)
			return
		}
		t = *sample.Coords
	default:
		http.Error(w, "coords or sample_id is required", http.StatusBadRequest)
		return
	}

	rec, err := s.control.WriteTriple(r.Context(), t, req.Label)
	if err != nil {
		http.Error(w, "Failed to write waypoint: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}

type copyRequest struct {
	ID string `json:"id"`
}

// handleCopy places a written record's line on the clipboard.
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req copyRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	rec, ok := findByID(s.store.Records(), req.ID, func(v history.Record) string { return v.ID })
	if !ok {
		http.Error(w, "Record not found", http.StatusNotFound)
		return
	}
	if err := s.control.CopyRecord(rec); err != nil {
		http.Error(w, "Failed to copy record: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClear empties both history lists.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.control.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

// handleShutdown stops the bridge. The response is sent before the server
// begins its own graceful shutdown.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.logger.Info("shutdown requested over http", "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusAccepted)
	s.control.Shutdown()
}

// handleSSE streams history events via Server-Sent Events.
//
// Each event is sent as "event: <kind>" followed by its JSON. The current
// samples and records lists are sent first.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(ev history.Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("failed to encode event", "kind", ev.Kind, "error", err)
			return nil
		}

		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	// set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe before the snapshot so no mutation falls between the two
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	now := time.Now()
	initial := []history.Event{
		{Kind: history.EventSamples, Samples: s.store.Samples(), At: now},
		{Kind: history.EventRecords, Records: s.store.Records(), At: now},
	}
	for _, ev := range initial {
		if err := writeAndFlush(ev); err != nil {
			return
		}
	}

	// stream updates
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeAndFlush(ev); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}

// readJSON decodes an optional JSON body into v. An empty body leaves v
// untouched. It writes a 400 and returns false on malformed input.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if err := decodeStrict(body, v); err != nil {
		http.Error(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// decodeStrict decodes a single JSON value, rejecting unknown fields.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func findByID[T any](list []T, id string, key func(T) string) (T, bool) {
	for _, v := range list {
		if key(v) == id {
			return v, true
		}
	}
	var zero T
	return zero, false
}
