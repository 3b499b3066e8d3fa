package clipbridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/clipbridge/config"
	"github.com/jpalmerr/clipbridge/internal/clipboard"
	"github.com/jpalmerr/clipbridge/internal/journal"
)

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// startBridge runs b.Start in the background and returns a stop function
// that cancels it and waits for it to return.
func startBridge(t *testing.T, b *Bridge) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Start(ctx)
	}()
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("Start() did not return after context cancellation")
			return nil
		}
	}
}

// freePort returns a loopback port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

// TestStart_BlocksUntilContextCancelled verifies that Start blocks until the
// provided context is cancelled.
func TestStart_BlocksUntilContextCancelled(t *testing.T) {
	b, err := New(
		WithSource(clipboard.NewMemory("")),
		WithPollingInterval(10*time.Millisecond),
		WithoutServer(),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	// verify Start is still blocking
	select {
	case err := <-done:
		t.Fatalf("Start() returned early with error: %v", err)
	default:
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
}

// TestStart_ReturnsImmediatelyIfContextAlreadyCancelled verifies that Start
// returns immediately if the context is already cancelled.
func TestStart_ReturnsImmediatelyIfContextAlreadyCancelled(t *testing.T) {
	b, err := New(WithSource(clipboard.NewMemory("1 2 3")), WithoutServer(), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- b.Start(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return with already-cancelled context")
	}

	if len(b.Samples()) != 0 {
		t.Error("nothing should be sampled with a cancelled context")
	}
}

func TestStart_AlreadyRunning(t *testing.T) {
	b, err := New(WithSource(clipboard.NewMemory("")), WithoutServer(), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := startBridge(t, b)
	defer func() { _ = stop() }()

	waitFor(t, time.Second, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.running
	})

	if err := b.Start(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("second Start() error = %v, want ErrRunning", err)
	}
}

func TestStart_ShutdownStopsRun(t *testing.T) {
	b, err := New(WithSource(clipboard.NewMemory("")), WithoutServer(), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- b.Start(context.Background())
	}()

	waitFor(t, time.Second, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.cancel != nil
	})
	b.Shutdown()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Shutdown()")
	}

	// no-op when not running
	b.Shutdown()
}

func TestStart_MultipleSequentialRuns(t *testing.T) {
	clip := clipboard.NewMemory("1 2 3")
	b, err := New(
		WithSource(clip),
		WithSettings(testSettings(t)),
		WithPollingInterval(10*time.Millisecond),
		WithoutServer(),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 1; i <= 3; i++ {
		stop := startBridge(t, b)
		want := i
		waitFor(t, time.Second, func() bool { return len(b.Records()) == want })
		if err := stop(); err != nil {
			t.Fatalf("run %d: Start() error = %v", i, err)
		}
	}

	if got := b.Settings().NameCounter; got != 4 {
		t.Errorf("NameCounter = %d, want 4", got)
	}
}

// TestStart_EndToEnd runs the whole pipeline: clipboard changes become
// waypoint lines, misses are only recorded, and settings are saved.
func TestStart_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.yaml")
	s := testSettings(t)

	clip := clipboard.NewMemory("/tp @s 100 ~ -200")
	b, err := New(
		WithSource(clip),
		WithSettingsPath(settingsPath),
		WithSettings(s),
		WithPollingInterval(10*time.Millisecond),
		WithoutServer(),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := startBridge(t, b)

	waitFor(t, time.Second, func() bool { return len(b.Records()) == 1 })
	_ = clip.Write("just some text")
	waitFor(t, time.Second, func() bool { return len(b.Samples()) == 2 })
	_ = clip.Write("X: 5 Y: 80 Z: 6")
	waitFor(t, time.Second, func() bool { return len(b.Records()) == 2 })

	if err := stop(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	data, err := os.ReadFile(s.WaypointFile)
	if err != nil {
		t.Fatalf("failed to read waypoint file: %v", err)
	}
	want := "waypoint:Auto1:A:100:64:-200:0:false:0:gui.xaero_default:false:0:0:false\n" +
		"waypoint:Auto2:A:5:64:6:0:false:0:gui.xaero_default:false:0:0:false\n"
	if string(data) != want {
		t.Errorf("waypoint file =\n%s\nwant\n%s", data, want)
	}

	samples := b.Samples()
	if samples[1].Coords != nil {
		t.Errorf("plain text should not parse, got %+v", samples[1].Coords)
	}
	if samples[0].Rule != "labeled" {
		t.Errorf("Rule = %q, want labeled", samples[0].Rule)
	}

	doc, err := config.Load(settingsPath)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if doc.Settings.NameCounter != 3 {
		t.Errorf("saved name_counter = %d, want 3", doc.Settings.NameCounter)
	}
}

func TestStart_AutoWriteOffOnlyRecords(t *testing.T) {
	s := testSettings(t)
	s.AutoWrite = false

	b, err := New(
		WithSource(clipboard.NewMemory("1 2 3")),
		WithSettings(s),
		WithPollingInterval(10*time.Millisecond),
		WithoutServer(),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := startBridge(t, b)
	waitFor(t, time.Second, func() bool { return len(b.Samples()) == 1 })
	_ = stop()

	if len(b.Records()) != 0 {
		t.Errorf("Records() = %v, want none", b.Records())
	}
	if _, err := os.Stat(s.WaypointFile); !os.IsNotExist(err) {
		t.Error("waypoint file should not exist")
	}
}

func TestStart_Journal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	b, err := New(
		WithSource(clipboard.NewMemory("7 8 9")),
		WithSettings(testSettings(t)),
		WithJournal(dbPath),
		WithPollingInterval(10*time.Millisecond),
		WithoutServer(),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := startBridge(t, b)
	waitFor(t, time.Second, func() bool { return len(b.Records()) == 1 })
	if err := stop(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	j, err := journal.Open(dbPath)
	if err != nil {
		t.Fatalf("journal.Open() error = %v", err)
	}
	defer func() { _ = j.Close() }()

	records, err := j.RecentRecords(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentRecords() error = %v", err)
	}
	if len(records) != 1 || records[0].Coords.X != 7 {
		t.Errorf("archived records = %+v", records)
	}
	if records[0].ID != b.Records()[0].ID {
		t.Errorf("archived ID = %s, want %s", records[0].ID, b.Records()[0].ID)
	}
}

func TestStart_ServerServesHistory(t *testing.T) {
	port := freePort(t)

	b, err := New(
		WithSource(clipboard.NewMemory("1 2 3")),
		WithSettings(testSettings(t)),
		WithPollingInterval(10*time.Millisecond),
		WithPort(port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := startBridge(t, b)
	defer func() { _ = stop() }()

	waitFor(t, time.Second, func() bool { return len(b.Records()) == 1 })

	var resp *http.Response
	waitFor(t, 2*time.Second, func() bool {
		r, err := http.Get("http://127.0.0.1:" + strconv.Itoa(port) + "/api/history")
		if err != nil {
			return false
		}
		resp = r
		return true
	})
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Samples []json.RawMessage `json:"samples"`
		Records []struct {
			Name string `json:"name"`
		} `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(body.Records) != 1 || body.Records[0].Name != "Auto1" {
		t.Errorf("records = %+v", body.Records)
	}

	metricsResp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(port) + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer func() { _ = metricsResp.Body.Close() }()
	buf := new(strings.Builder)
	_, _ = io.Copy(buf, metricsResp.Body)
	if !strings.Contains(buf.String(), "clipbridge_waypoints_written_total 1") {
		t.Errorf("metrics missing written counter:\n%s", buf.String())
	}
}

func TestStart_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()

	b, err := New(
		WithSource(clipboard.NewMemory("")),
		WithPort(ln.Addr().(*net.TCPAddr).Port),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = b.Start(context.Background())
	if err == nil {
		t.Fatal("Start() should fail when the port is taken")
	}
	if !strings.Contains(err.Error(), "failed to start HTTP server") {
		t.Errorf("error = %v", err)
	}
}
