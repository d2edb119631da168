package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/process"
	"github.com/yowainwright/tenure/internal/core"
	"github.com/yowainwright/tenure/internal/metrics"
	"github.com/yowainwright/tenure/internal/monitors"
	"github.com/yowainwright/tenure/internal/storage"
	"github.com/yowainwright/tenure/internal/tracker"
)

var ErrAlreadyRunning = errors.New("tracker is already running")

// Daemon drives the tracker: one tick per poll interval until the context
// is cancelled or SIGINT/SIGTERM arrives.
type Daemon struct {
	config   *core.Config
	storage  storage.Storage
	monitor  monitors.Monitor
	tracker  *tracker.Accumulator
	metrics  *metrics.Recorder
	logger   zerolog.Logger
	clock    func() time.Time
	interval time.Duration
	notify   func(state string) (bool, error)

	// OnTick, when set, receives every tick result on the loop goroutine.
	OnTick func(tracker.Result)

	startTime time.Time
}

type Option func(*Daemon)

func WithStorage(s storage.Storage) Option {
	return func(d *Daemon) { d.storage = s }
}

func WithMonitor(m monitors.Monitor) Option {
	return func(d *Daemon) { d.monitor = m }
}

func WithClock(clock func() time.Time) Option {
	return func(d *Daemon) { d.clock = clock }
}

// WithNotifier replaces the systemd notification call.
func WithNotifier(notify func(state string) (bool, error)) Option {
	return func(d *Daemon) { d.notify = notify }
}

func NewDaemon(config *core.Config, logger zerolog.Logger, opts ...Option) (*Daemon, error) {
	d := &Daemon{
		config:   config,
		logger:   logger.With().Str("component", "daemon").Logger(),
		clock:    time.Now,
		interval: config.PollInterval(),
		notify: func(state string) (bool, error) {
			return sddaemon.SdNotify(false, state)
		},
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.storage == nil {
		store, err := storage.New(config, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		d.storage = store
	}

	if d.monitor == nil {
		monitor, err := monitors.NewProcessMonitorFromConfig(config)
		if err != nil {
			d.storage.Close()
			return nil, fmt.Errorf("failed to initialize monitor: %w", err)
		}
		d.monitor = monitor
	}

	if config.Metrics.Textfile != "" {
		d.metrics = metrics.NewRecorder(d.monitor.Name())
	}

	d.tracker = tracker.NewAccumulator(d.storage, d.clock, logger)

	return d, nil
}

// Run ticks once immediately and then on every interval. On shutdown or
// after a recovered panic it saves both artifacts before returning.
func (d *Daemon) Run(ctx context.Context) (err error) {
	if IsRunning(d.config) {
		d.closeStorage()
		return ErrAlreadyRunning
	}

	d.startTime = d.clock()
	d.logger.Info().
		Str("version", core.Version).
		Str("target", d.monitor.Name()).
		Dur("interval", d.interval).
		Msg("Starting tracker")

	if err := d.writePIDFile(); err != nil {
		d.closeStorage()
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Msg("Tracker loop failed")
			err = fmt.Errorf("tracker loop panicked: %v", r)
		}

		d.sdNotify(sddaemon.SdNotifyStopping)

		if flushErr := d.tracker.Flush(); flushErr != nil {
			d.logger.Warn().Err(flushErr).Msg("Final save failed")
			if err == nil {
				err = fmt.Errorf("final save failed: %w", flushErr)
			}
		}

		d.closeStorage()

		if rmErr := os.Remove(d.config.Daemon.PIDFile); rmErr != nil && !os.IsNotExist(rmErr) {
			d.logger.Warn().Err(rmErr).Msg("Error removing PID file")
		}

		d.logger.Info().Int64("total_seconds", d.tracker.Status().Total).Msg("Tracker stopped")
	}()

	d.sdNotify(sddaemon.SdNotifyReady)

	d.tick(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Daemon) tick(ctx context.Context) {
	running, err := d.monitor.IsRunning(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		d.logger.Warn().Err(err).Msg("Process check failed, treating target as not running")
		running = false
	}

	result := d.tracker.Tick(running)

	if d.metrics != nil {
		d.metrics.Observe(result)
		if err := d.metrics.WriteTextfile(d.config.Metrics.Textfile); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to write metrics")
		}
	}

	if d.OnTick != nil {
		d.OnTick(result)
	}
}

func (d *Daemon) closeStorage() {
	if err := d.storage.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("Error closing storage")
	}
}

func (d *Daemon) sdNotify(state string) {
	sent, err := d.notify(state)
	if err != nil {
		d.logger.Warn().Err(err).Str("state", state).Msg("Failed to send sd_notify")
		return
	}
	if sent {
		d.logger.Debug().Str("state", state).Msg("Sent sd_notify")
	}
}

func (d *Daemon) Status() tracker.Status {
	return d.tracker.Status()
}

func (d *Daemon) Uptime() time.Duration {
	if d.startTime.IsZero() {
		return 0
	}
	return d.clock().Sub(d.startTime)
}

func (d *Daemon) writePIDFile() error {
	pid := os.Getpid()
	return os.WriteFile(d.config.Daemon.PIDFile, []byte(strconv.Itoa(pid)), 0644)
}

// ReadPID returns the PID recorded in the PID file.
func ReadPID(config *core.Config) (int, error) {
	pidBytes, err := os.ReadFile(config.Daemon.PIDFile)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidBytes)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID: %w", err)
	}
	return pid, nil
}

// IsRunning reports whether the PID file names a live process running the
// same program as the caller. A PID reused by an unrelated process counts
// as not running.
func IsRunning(config *core.Config) bool {
	pid, err := ReadPID(config)
	if err != nil {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false
	}

	return sameProgram(pid)
}

// sameProgram compares process names. If either name cannot be read the
// live PID is trusted.
func sameProgram(pid int) bool {
	self := os.Getpid()
	if pid == self {
		return true
	}

	other, err := processName(pid)
	if err != nil {
		return true
	}
	own, err := processName(self)
	if err != nil {
		return true
	}
	return strings.EqualFold(other, own)
}

func processName(pid int) (string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Name()
}

// Stop sends SIGTERM to the running tracker.
func Stop(config *core.Config) error {
	pid, err := ReadPID(config)
	if err != nil {
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("process not found: %w", err)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to stop tracker: %w", err)
	}
	return nil
}
