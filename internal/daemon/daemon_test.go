package daemon

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
	"github.com/yowainwright/tenure/internal/core"
	"github.com/yowainwright/tenure/internal/tracker"
)

type mockStorage struct {
	mu         sync.RWMutex
	total      int64
	log        core.DailyLog
	totalSaves int
	closed     bool
	saveErr    error
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		log: make(core.DailyLog),
	}
}

func (m *mockStorage) LoadTotal() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

func (m *mockStorage) SaveTotal(seconds int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.total = seconds
	m.totalSaves++
	return nil
}

func (m *mockStorage) LoadLog() core.DailyLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.log.Clone()
}

func (m *mockStorage) SaveLog(log core.DailyLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.log = log.Clone()
	return nil
}

func (m *mockStorage) Paths() []string {
	return nil
}

func (m *mockStorage) Backup() ([]string, error) {
	return nil, nil
}

func (m *mockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockStorage) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

type mockMonitor struct {
	running bool
	err     error
	panics  bool
	calls   int
}

func (m *mockMonitor) Name() string {
	return "krita.exe"
}

func (m *mockMonitor) Initialize(config *core.Config) error {
	return nil
}

func (m *mockMonitor) IsRunning(ctx context.Context) (bool, error) {
	m.calls++
	if m.panics {
		panic("process table exploded")
	}
	return m.running, m.err
}

type recordingNotifier struct {
	states []string
}

func (n *recordingNotifier) notify(state string) (bool, error) {
	n.states = append(n.states, state)
	return false, nil
}

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := core.DefaultConfig()
	cfg.Tracker.PollInterval = "10ms"
	cfg.Daemon.DataDir = tmpDir
	cfg.Daemon.PIDFile = filepath.Join(tmpDir, "tenure.pid")
	return cfg
}

func newTestDaemon(t *testing.T, cfg *core.Config, store *mockStorage, monitor *mockMonitor) (*Daemon, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	d, err := NewDaemon(cfg, zerolog.Nop(),
		WithStorage(store),
		WithMonitor(monitor),
		WithNotifier(notifier.notify),
	)
	if err != nil {
		t.Fatalf("NewDaemon failed: %v", err)
	}
	return d, notifier
}

// stopAfter cancels ctx once n ticks have run.
func stopAfter(d *Daemon, n int) (context.Context, *[]tracker.Result) {
	ctx, cancel := context.WithCancel(context.Background())
	results := &[]tracker.Result{}
	d.OnTick = func(r tracker.Result) {
		*results = append(*results, r)
		if len(*results) >= n {
			cancel()
		}
	}
	return ctx, results
}

func TestNewDaemon(t *testing.T) {
	cfg := testConfig(t)

	d, _ := newTestDaemon(t, cfg, newMockStorage(), &mockMonitor{})

	if d.interval != 10*time.Millisecond {
		t.Errorf("Expected 10ms interval, got %v", d.interval)
	}
	if d.metrics != nil {
		t.Error("Metrics should be disabled without a textfile")
	}
	if d.Status().State != tracker.StateIdle {
		t.Error("Tracker should start idle")
	}
}

func TestNewDaemonDefaults(t *testing.T) {
	cfg := testConfig(t)

	d, err := NewDaemon(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDaemon failed: %v", err)
	}
	defer d.storage.Close()

	if d.monitor.Name() != core.DefaultProcessName {
		t.Errorf("Expected monitor for %s, got %s", core.DefaultProcessName, d.monitor.Name())
	}
}

func TestNewDaemonUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "bolt"

	if _, err := NewDaemon(cfg, zerolog.Nop()); err == nil {
		t.Error("Expected error for unknown storage backend")
	}
}

func TestDaemonRunStop(t *testing.T) {
	cfg := testConfig(t)
	store := newMockStorage()
	d, notifier := newTestDaemon(t, cfg, store, &mockMonitor{})

	pidSeen := false
	ctx, cancel := context.WithCancel(context.Background())
	d.OnTick = func(r tracker.Result) {
		if _, err := os.Stat(cfg.Daemon.PIDFile); err == nil {
			pidSeen = true
		}
		cancel()
	}

	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !pidSeen {
		t.Error("PID file not created while running")
	}
	if _, err := os.Stat(cfg.Daemon.PIDFile); !os.IsNotExist(err) {
		t.Error("PID file should be removed after Run returns")
	}
	if !store.isClosed() {
		t.Error("Storage should be closed after Run returns")
	}

	want := []string{sddaemon.SdNotifyReady, sddaemon.SdNotifyStopping}
	if strings.Join(notifier.states, ",") != strings.Join(want, ",") {
		t.Errorf("Expected notifications %v, got %v", want, notifier.states)
	}
}

func TestDaemonTicksWhileRunning(t *testing.T) {
	cfg := testConfig(t)
	store := newMockStorage()
	d, _ := newTestDaemon(t, cfg, store, &mockMonitor{running: true})

	ctx, results := stopAfter(d, 3)
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(*results) != 3 {
		t.Fatalf("Expected 3 ticks, got %d", len(*results))
	}
	if (*results)[0].Event != tracker.EventStarted {
		t.Errorf("Expected first tick to start tracking, got %s", (*results)[0].Event)
	}

	today := store.LoadLog().Get(core.DateKey(time.Now()))
	if today < 3 {
		t.Errorf("Expected at least 3 ticks logged today, got %d", today)
	}
	if store.totalSaves < 3 {
		t.Errorf("Expected the total saved every tick, got %d saves", store.totalSaves)
	}
}

func TestDaemonMonitorError(t *testing.T) {
	cfg := testConfig(t)
	store := newMockStorage()
	monitor := &mockMonitor{running: true, err: errors.New("access denied")}
	d, _ := newTestDaemon(t, cfg, store, monitor)

	ctx, results := stopAfter(d, 2)
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, r := range *results {
		if r.State != tracker.StateIdle {
			t.Error("A failed process check should count as not running")
		}
	}
	if len(store.LoadLog()) != 0 {
		t.Error("No ticks should be logged when the check fails")
	}
}

func TestDaemonSaveErrorsKeepRunning(t *testing.T) {
	cfg := testConfig(t)
	store := newMockStorage()
	store.saveErr = errors.New("disk full")
	d, _ := newTestDaemon(t, cfg, store, &mockMonitor{running: true})

	ctx, results := stopAfter(d, 3)
	err := d.Run(ctx)

	if len(*results) != 3 {
		t.Errorf("Loop should survive save failures, got %d ticks", len(*results))
	}
	if (*results)[0].SaveErr == nil {
		t.Error("Expected save error in tick result")
	}
	if err == nil {
		t.Error("Expected final save failure to be returned")
	}
}

func TestDaemonRecoversPanic(t *testing.T) {
	cfg := testConfig(t)
	store := newMockStorage()
	d, notifier := newTestDaemon(t, cfg, store, &mockMonitor{panics: true})

	err := d.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("Expected panic to be returned as error, got %v", err)
	}

	if store.totalSaves == 0 {
		t.Error("Expected a final save after the panic")
	}
	if _, err := os.Stat(cfg.Daemon.PIDFile); !os.IsNotExist(err) {
		t.Error("PID file should be removed after a panic")
	}
	if len(notifier.states) != 2 {
		t.Errorf("Expected ready and stopping notifications, got %v", notifier.states)
	}
}

func TestDaemonAlreadyRunning(t *testing.T) {
	cfg := testConfig(t)
	store := newMockStorage()
	d, _ := newTestDaemon(t, cfg, store, &mockMonitor{})

	if err := os.WriteFile(cfg.Daemon.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	if err := d.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Expected ErrAlreadyRunning, got %v", err)
	}

	if !store.isClosed() {
		t.Error("Storage should be closed when another tracker is running")
	}
}

func TestDaemonPIDFileWriteFailureClosesStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Daemon.PIDFile = filepath.Join(cfg.Daemon.DataDir, "missing", "tenure.pid")
	store := newMockStorage()
	d, _ := newTestDaemon(t, cfg, store, &mockMonitor{})

	if err := d.Run(context.Background()); err == nil {
		t.Error("Expected error when the PID file cannot be written")
	}

	if !store.isClosed() {
		t.Error("Storage should be closed after a failed start")
	}
}

func TestDaemonWritesMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Textfile = filepath.Join(cfg.Daemon.DataDir, "tenure.prom")
	d, _ := newTestDaemon(t, cfg, newMockStorage(), &mockMonitor{running: true})

	ctx, _ := stopAfter(d, 2)
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("Metrics textfile not written: %v", err)
	}
	if !strings.Contains(string(data), "tenure_ticks_total") {
		t.Errorf("Unexpected metrics content: %s", data)
	}
}

func TestDaemonContextCancellation(t *testing.T) {
	cfg := testConfig(t)
	d, _ := newTestDaemon(t, cfg, newMockStorage(), &mockMonitor{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestIsRunning(t *testing.T) {
	cfg := testConfig(t)

	if IsRunning(cfg) {
		t.Error("Should return false when PID file doesn't exist")
	}

	if err := os.WriteFile(cfg.Daemon.PIDFile, []byte("invalid"), 0644); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	if IsRunning(cfg) {
		t.Error("Should return false for invalid PID")
	}

	if err := os.WriteFile(cfg.Daemon.PIDFile, []byte("999999999"), 0644); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	if IsRunning(cfg) {
		t.Error("Should return false for non-existent process")
	}

	if err := os.WriteFile(cfg.Daemon.PIDFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	if !IsRunning(cfg) {
		t.Error("Should return true for a live process")
	}

	os.Remove(cfg.Daemon.PIDFile)
}

func TestIsRunningIgnoresReusedPID(t *testing.T) {
	cfg := testConfig(t)

	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	cmd := exec.Command(sleep, "30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start process: %v", err)
	}
	defer func() {
		cmd.Process.Kill()
		cmd.Wait()
	}()

	if err := os.WriteFile(cfg.Daemon.PIDFile, []byte(strconv.Itoa(cmd.Process.Pid)), 0644); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	if IsRunning(cfg) {
		t.Error("A live process running another program should not count as the tracker")
	}
}

func TestReadPID(t *testing.T) {
	cfg := testConfig(t)

	if _, err := ReadPID(cfg); err == nil {
		t.Error("Expected error for missing PID file")
	}

	if err := os.WriteFile(cfg.Daemon.PIDFile, []byte(" 4242\n"), 0644); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	pid, err := ReadPID(cfg)
	if err != nil {
		t.Fatalf("ReadPID failed: %v", err)
	}
	if pid != 4242 {
		t.Errorf("Expected 4242, got %d", pid)
	}
}

func TestStopWithoutPIDFile(t *testing.T) {
	cfg := testConfig(t)

	if err := Stop(cfg); err == nil {
		t.Error("Expected error when no tracker is running")
	}
}
