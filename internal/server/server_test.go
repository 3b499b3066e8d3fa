package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/clipbridge/config"
	"github.com/jpalmerr/clipbridge/internal/coords"
	"github.com/jpalmerr/clipbridge/internal/history"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeControl implements Control over a live settings holder and a store.
type fakeControl struct {
	live  *config.Live
	store *history.MemoryStore

	mu       sync.Mutex
	written  []coords.Triple
	labels   []string
	copied   []string
	writeErr error
	copyErr  error

	shutdowns atomic.Int32
}

func newFakeControl(st *history.MemoryStore) *fakeControl {
	s := config.Defaults()
	s.WaypointFile = "/tmp/waypoints.txt"
	return &fakeControl{live: config.NewLive(s), store: st}
}

func (f *fakeControl) Settings() config.Settings { return f.live.Snapshot() }

func (f *fakeControl) UpdateSettings(fn func(*config.Settings)) (config.Settings, error) {
	_, err := f.live.Update(fn)
	return f.live.Snapshot(), err
}

func (f *fakeControl) SetAutoWrite(on bool) { f.live.SetAutoWrite(on) }

func (f *fakeControl) ToggleAutoWrite() bool {
	var on bool
	_, _ = f.live.Update(func(s *config.Settings) {
		s.AutoWrite = !s.AutoWrite
		on = s.AutoWrite
	})
	return on
}

func (f *fakeControl) WriteTriple(_ context.Context, t coords.Triple, label string) (history.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return history.Record{}, f.writeErr
	}
	f.written = append(f.written, t)
	f.labels = append(f.labels, label)
	return history.Record{ID: "r-new", Name: label, Coords: t}, nil
}

func (f *fakeControl) CopyRecord(r history.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return f.copyErr
	}
	f.copied = append(f.copied, r.Line)
	return nil
}

func (f *fakeControl) ClearHistory() { f.store.Clear() }

func (f *fakeControl) Shutdown() { f.shutdowns.Add(1) }

func newTestServer(assets fs.FS, title string) (*Server, *history.MemoryStore, *fakeControl) {
	st := history.NewMemoryStore()
	ctl := newFakeControl(st)
	return NewServer(st, ctl, nil, 0, assets, title, testLogger()), st, ctl
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func triple(x, y, z int) *coords.Triple {
	return &coords.Triple{X: x, Y: y, Z: z}
}

// --- History and settings ---

func TestHandleHistory_EmptyListsAreArrays(t *testing.T) {
	srv, _, _ := newTestServer(nil, "")

	rec := do(t, srv, http.MethodGet, "/api/history", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := strings.TrimSpace(rec.Body.String())
	if body != `{"samples":[],"records":[]}` {
		t.Errorf("body = %s", body)
	}
}

func TestHandleHistory_MostRecentFirst(t *testing.T) {
	srv, st, _ := newTestServer(nil, "")
	st.AddSample(history.Sample{ID: "s1", Text: "1 2 3", Coords: triple(1, 2, 3)}, 12)
	st.AddSample(history.Sample{ID: "s2", Text: "nope"}, 12)
	st.AddRecord(history.Record{ID: "r1", Name: "Auto1"}, 12)

	rec := do(t, srv, http.MethodGet, "/api/history", "")

	var resp historyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if len(resp.Samples) != 2 || resp.Samples[0].ID != "s2" {
		t.Errorf("samples = %+v, want s2 first", resp.Samples)
	}
	if len(resp.Records) != 1 || resp.Records[0].Name != "Auto1" {
		t.Errorf("records = %+v", resp.Records)
	}
}

func TestHandleHistory_MethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(nil, "")
	rec := do(t, srv, http.MethodPost, "/api/history", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleSettings_Get(t *testing.T) {
	srv, _, _ := newTestServer(nil, "")

	rec := do(t, srv, http.MethodGet, "/api/settings", "")

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	for _, key := range []string{"waypoint_file", "name_prefix", "name_counter", "y_default", "autowrite"} {
		if _, ok := got[key]; !ok {
			t.Errorf("settings response missing %q", key)
		}
	}
}

func TestHandleSettings_Patch(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		check      func(t *testing.T, s config.Settings)
	}{
		{
			name:       "partial update keeps other keys",
			body:       `{"name_prefix":"Base","y_default":100}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, s config.Settings) {
				if s.NamePrefix != "Base" || s.DefaultY != 100 {
					t.Errorf("got prefix=%q y=%d", s.NamePrefix, s.DefaultY)
				}
				if s.RecentLimit != 12 {
					t.Errorf("recent_limit changed to %d", s.RecentLimit)
				}
			},
		},
		{
			name:       "unknown key rejected",
			body:       `{"colour":3}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed JSON rejected",
			body:       `{"color":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid value rejected",
			body:       `{"color":42}`,
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, s config.Settings) {
				if s.Color != 0 {
					t.Errorf("color = %d, want unchanged 0", s.Color)
				}
			},
		},
		{
			name:       "counter decrease rejected",
			body:       `{"name_counter":0}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, ctl := newTestServer(nil, "")

			rec := do(t, srv, http.MethodPatch, "/api/settings", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.check != nil {
				tt.check(t, ctl.live.Snapshot())
			}
		})
	}
}

// --- Control endpoints ---

func TestHandleAutoWrite(t *testing.T) {
	srv, _, ctl := newTestServer(nil, "")

	rec := do(t, srv, http.MethodPost, "/api/autowrite", `{"enabled":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ctl.live.Snapshot().AutoWrite {
		t.Error("auto-write should be off")
	}

	// empty body toggles
	rec = do(t, srv, http.MethodPost, "/api/autowrite", "")
	if !strings.Contains(rec.Body.String(), `"enabled":true`) {
		t.Errorf("toggle response = %s", rec.Body.String())
	}
	if !ctl.live.Snapshot().AutoWrite {
		t.Error("auto-write should be on after toggle")
	}
}

func TestHandleWrite_ExplicitCoords(t *testing.T) {
	srv, _, ctl := newTestServer(nil, "")

	rec := do(t, srv, http.MethodPost, "/api/write", `{"coords":{"x":1,"y":70,"z":-3},"label":"home"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if len(ctl.written) != 1 || ctl.written[0] != (coords.Triple{X: 1, Y: 70, Z: -3}) {
		t.Errorf("written = %+v", ctl.written)
	}
	if ctl.labels[0] != "home" {
		t.Errorf("label = %q", ctl.labels[0])
	}
}

func TestHandleWrite_FromSample(t *testing.T) {
	srv, st, ctl := newTestServer(nil, "")
	st.AddSample(history.Sample{ID: "parsed", Text: "5 6 7", Coords: triple(5, 6, 7)}, 12)
	st.AddSample(history.Sample{ID: "miss", Text: "hello"}, 12)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"parsed sample", `{"sample_id":"parsed"}`, http.StatusCreated},
		{"unparsed sample", `{"sample_id":"miss"}`, http.StatusUnprocessableEntity},
		{"unknown sample", `{"sample_id":"gone"}`, http.StatusNotFound},
		{"nothing to write", `{}`, http.StatusBadRequest},
		{"unknown field", `{"x":1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/write", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	if len(ctl.written) != 1 || ctl.written[0] != (coords.Triple{X: 5, Y: 6, Z: 7}) {
		t.Errorf("written = %+v", ctl.written)
	}
}

func TestHandleWrite_SinkFailure(t *testing.T) {
	srv, _, ctl := newTestServer(nil, "")
	ctl.writeErr = errors.New("permission denied")

	rec := do(t, srv, http.MethodPost, "/api/write", `{"coords":{"x":1,"y":2,"z":3}}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "permission denied") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandleCopy(t *testing.T) {
	srv, st, ctl := newTestServer(nil, "")
	st.AddRecord(history.Record{ID: "r1", Line: "waypoint:Auto1:A:1:2:3"}, 12)

	rec := do(t, srv, http.MethodPost, "/api/copy", `{"id":"r1"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(ctl.copied) != 1 || ctl.copied[0] != "waypoint:Auto1:A:1:2:3" {
		t.Errorf("copied = %v", ctl.copied)
	}

	rec = do(t, srv, http.MethodPost, "/api/copy", `{"id":"missing"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing record status = %d", rec.Code)
	}

	ctl.copyErr = errors.New("no clipboard")
	rec = do(t, srv, http.MethodPost, "/api/copy", `{"id":"r1"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("copy failure status = %d", rec.Code)
	}
}

func TestHandleClear(t *testing.T) {
	srv, st, _ := newTestServer(nil, "")
	st.AddSample(history.Sample{ID: "s1"}, 12)
	st.AddRecord(history.Record{ID: "r1"}, 12)

	rec := do(t, srv, http.MethodPost, "/api/clear", "")

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(st.Samples()) != 0 || len(st.Records()) != 0 {
		t.Error("history not cleared")
	}
}

func TestHandleShutdown(t *testing.T) {
	srv, _, ctl := newTestServer(nil, "")

	if rec := do(t, srv, http.MethodGet, "/api/shutdown", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/shutdown", ""); rec.Code != http.StatusAccepted {
		t.Errorf("POST status = %d", rec.Code)
	}
	if ctl.shutdowns.Load() != 1 {
		t.Errorf("shutdowns = %d, want 1", ctl.shutdowns.Load())
	}
}

func TestHandler_RecoversPanics(t *testing.T) {
	srv, _, _ := newTestServer(nil, "")
	h := srv.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "id ") {
		t.Errorf("body should carry a correlation id, got: %s", rec.Body.String())
	}
}

func TestHandler_Metrics(t *testing.T) {
	st := history.NewMemoryStore()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "clipbridge_test_total"}))
	srv := NewServer(st, newFakeControl(st), reg, 0, nil, "", testLogger())

	rec := do(t, srv, http.MethodGet, "/metrics", "")

	if !strings.Contains(rec.Body.String(), "clipbridge_test_total") {
		t.Errorf("metrics output missing counter: %s", rec.Body.String())
	}
}

func TestHandler_NoMetricsWithoutGatherer(t *testing.T) {
	srv, _, _ := newTestServer(nil, "")
	if rec := do(t, srv, http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// --- SSE ---

type sseEvent struct {
	kind string
	data history.Event
}

func parseSSEEvents(body string) []sseEvent {
	var events []sseEvent
	var kind string
	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, "event: "):
			kind = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var ev history.Event
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err == nil {
				events = append(events, sseEvent{kind: kind, data: ev})
			}
		}
	}
	return events
}

func TestHandleSSE_InitialSnapshot(t *testing.T) {
	srv, st, _ := newTestServer(nil, "")
	st.AddSample(history.Sample{ID: "s1", Text: "1 2 3", Coords: triple(1, 2, 3)}, 12)
	st.AddRecord(history.Record{ID: "r1", Name: "Auto1"}, 12)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	events := parseSSEEvents(rec.Body.String())
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %s", len(events), rec.Body.String())
	}
	if events[0].kind != "samples" || len(events[0].data.Samples) != 1 {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].kind != "records" || events[1].data.Records[0].Name != "Auto1" {
		t.Errorf("second event = %+v", events[1])
	}
}

func TestHandleSSE_StreamsUpdatesInOrder(t *testing.T) {
	srv, st, _ := newTestServer(nil, "")

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	rec := httptest.NewRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	req = req.WithContext(ctx)

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// give handler time to subscribe
	time.Sleep(50 * time.Millisecond)

	st.AddRecord(history.Record{ID: "r1", Name: "Auto1"}, 12)
	st.Info("Added waypoint 1,2,3", triple(1, 2, 3))
	st.Error("Failed to write waypoint: disk full")

	// give time for updates to be written
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}

	var kinds []string
	for _, ev := range parseSSEEvents(rec.Body.String()) {
		kinds = append(kinds, ev.kind)
	}
	want := "samples,records,records,info,error"
	if got := strings.Join(kinds, ","); got != want {
		t.Errorf("event kinds = %s, want %s", got, want)
	}
}

func TestHandleSSE_ServerShutdown(t *testing.T) {
	srv, _, _ := newTestServer(nil, "")

	// create a server context that we'll cancel to simulate shutdown
	serverCtx, serverCancel := context.WithCancel(context.Background())

	// when calling handleSSE directly (not through http.Server), we must
	// manually derive the request context from the server context to simulate
	// BaseContext behavior. In production, BaseContext does this automatically.
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	req = req.WithContext(serverCtx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	serverCancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after server shutdown")
	}
}

func TestHandleSSE_NoGoroutineLeaks(t *testing.T) {
	// allow existing goroutines to settle
	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	before := runtime.NumGoroutine()

	srv, _, _ := newTestServer(nil, "")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
			req = req.WithContext(ctx)
			srv.handleSSE(httptest.NewRecorder(), req)
		}()
	}

	wg.Wait()

	runtime.GC()
	time.Sleep(200 * time.Millisecond)

	after := runtime.NumGoroutine()
	if after > before+2 { // small tolerance for runtime variance
		t.Errorf("potential goroutine leak: before=%d, after=%d", before, after)
	}
}

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv, _, _ := newTestServer(nil, "")

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)

	// use a writer that doesn't support flushing
	w := &nonFlushWriter{header: make(http.Header)}

	srv.handleSSE(w, req)

	if w.statusCode != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.statusCode)
	}
}

type nonFlushWriter struct {
	header     http.Header
	statusCode int
	body       []byte
}

func (n *nonFlushWriter) Header() http.Header {
	return n.header
}

func (n *nonFlushWriter) Write(b []byte) (int, error) {
	n.body = append(n.body, b...)
	return len(b), nil
}

func (n *nonFlushWriter) WriteHeader(statusCode int) {
	n.statusCode = statusCode
}

func TestHandleSSE_Headers(t *testing.T) {
	srv, _, _ := newTestServer(nil, "")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	expectedHeaders := map[string]string{
		"Content-Type":                "text/event-stream",
		"Cache-Control":               "no-cache",
		"Connection":                  "keep-alive",
		"Access-Control-Allow-Origin": "*",
	}

	for key, expected := range expectedHeaders {
		if got := rec.Header().Get(key); got != expected {
			t.Errorf("header %s = %q, want %q", key, got, expected)
		}
	}
}

// TestHandleSSE_ServerShutdownIntegration checks that a real streaming
// connection ends when the server context is cancelled.
func TestHandleSSE_ServerShutdownIntegration(t *testing.T) {
	srv, st, _ := newTestServer(nil, "")
	st.AddSample(history.Sample{ID: "s1", Text: "integration"}, 12)

	serverCtx, serverCancel := context.WithCancel(context.Background())

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// derive request context from server context (simulates BaseContext)
		r = r.WithContext(serverCtx)
		srv.handleSSE(w, r)
	})
	ts := httptest.NewServer(handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// read the first event so we know the handler is streaming
	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Contains(buf[:n], []byte("integration")) {
		t.Errorf("first read = %s", buf[:n])
	}

	serverCancel()

	readDone := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		close(readDone)
	}()

	select {
	case <-readDone:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after server shutdown")
	}
}

// --- Server Start Tests ---

func TestStart_AvailablePort_ReturnsNil(t *testing.T) {
	// port 0 = OS assigns available port
	srv, _, _ := newTestServer(nil, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() on available port returned error: %v", err)
	}
	if srv.Addr() == nil {
		t.Fatal("Addr() should be set after Start()")
	}

	resp, err := http.Get("http://" + srv.Addr().String() + "/api/history")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	// occupy a port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer func() { _ = ln.Close() }()

	port := ln.Addr().(*net.TCPAddr).Port

	st := history.NewMemoryStore()
	srv := NewServer(st, newFakeControl(st), nil, port, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = srv.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied port should return error")
	}
	if !strings.Contains(err.Error(), "failed to bind") {
		t.Errorf("expected bind error, got: %v", err)
	}
}

func TestStart_InvalidPort_ReturnsError(t *testing.T) {
	st := history.NewMemoryStore()
	srv := NewServer(st, newFakeControl(st), nil, -1, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err == nil {
		t.Fatal("Start() with invalid port should return error")
	}
}

// --- Dashboard Title Tests ---

// mockFS implements fs.ReadFileFS for testing dashboard rendering.
type mockFS struct {
	content string
}

func (m *mockFS) Open(name string) (fs.File, error) {
	return nil, fs.ErrNotExist
}

func (m *mockFS) ReadFile(name string) ([]byte, error) {
	if name == "assets/index.html" {
		return []byte(m.content), nil
	}
	return nil, fs.ErrNotExist
}

func TestHandleDashboard_Title(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"custom", "Survival World", "<title>Survival World</title>"},
		{"default", "", "<title>Xaero Clipboard Bridge</title>"},
		{"escaped", "<script>alert('xss')</script>", "&lt;script&gt;"},
		{"ampersand", "Nether & End", "Nether &amp; End"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newTestServer(&mockFS{content: "<title>{{.Title}}</title>"}, tt.title)

			rec := httptest.NewRecorder()
			srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			body := rec.Body.String()
			if !strings.Contains(body, tt.want) {
				t.Errorf("body = %s, want it to contain %s", body, tt.want)
			}
			if strings.Contains(body, "<script>") {
				t.Error("title should be HTML-escaped to prevent XSS")
			}
		})
	}
}

func TestHandleDashboard_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(nil, "Custom Title") // nil assets

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestHandleDashboard_NonRootPath(t *testing.T) {
	srv, _, _ := newTestServer(&mockFS{content: "<title>{{.Title}}</title>"}, "")

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/other", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d for non-root path, got %d", http.StatusNotFound, rec.Code)
	}
}

func BenchmarkHandleSSE_SingleClient(b *testing.B) {
	srv, st, _ := newTestServer(nil, "")
	for i := 0; i < 10; i++ {
		st.AddSample(history.Sample{ID: string(rune('A' + i)), Text: "1 2 3", Coords: triple(1, 2, 3)}, 12)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
		req = req.WithContext(ctx)

		srv.handleSSE(httptest.NewRecorder(), req)
		cancel()
	}
}
