// Package tracker turns a stream of running/not-running observations into
// a lifetime total and a per-day tick log.
package tracker

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/yowainwright/tenure/internal/core"
	"github.com/yowainwright/tenure/internal/storage"
)

// MaxTotalSeconds is the largest total the accumulator can hold.
const MaxTotalSeconds = int64(math.MaxInt64 / int64(time.Second))

type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

type Event int

const (
	EventNone Event = iota
	EventStarted
	EventStopped
)

func (e Event) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	default:
		return "none"
	}
}

// Artifact names a persisted artifact in save failures.
type Artifact string

const (
	ArtifactTotal Artifact = "total"
	ArtifactLog   Artifact = "log"
)

type Result struct {
	Event Event
	State State
	// Total is the lifetime total in whole seconds.
	Total int64
	// Today is the tick count for the current date.
	Today int64

	SaveErr error
	Failed  []Artifact
}

type Status struct {
	State State
	Total int64
	Today int64
}

// Accumulator is the tracking state machine. It is driven by Tick and is
// not safe for concurrent use.
type Accumulator struct {
	store  storage.Storage
	daily  *Aggregator
	clock  func() time.Time
	logger zerolog.Logger

	state  State
	anchor time.Time
	total  time.Duration
}

func NewAccumulator(store storage.Storage, clock func() time.Time, logger zerolog.Logger) *Accumulator {
	if clock == nil {
		clock = time.Now
	}

	a := &Accumulator{
		store:  store,
		daily:  NewAggregator(store),
		clock:  clock,
		logger: logger.With().Str("component", "tracker").Logger(),
		state:  StateIdle,
	}

	total := store.LoadTotal()
	switch {
	case total < 0:
		total = 0
	case total > MaxTotalSeconds:
		a.logger.Warn().Int64("total_seconds", total).Msg("Persisted total out of range, clamping")
		total = MaxTotalSeconds
	}
	a.total = time.Duration(total) * time.Second

	return a
}

// Tick applies one observation. A tick that starts tracking also counts
// as an active tick. The total is saved after every tick; a failed save
// is reported in the result and retried on the next tick.
func (a *Accumulator) Tick(running bool) Result {
	now := a.clock()
	result := Result{}

	switch {
	case running && a.state == StateIdle:
		a.state = StateActive
		a.anchor = now.Add(-a.total)
		result.Event = EventStarted
		a.logger.Info().Int64("total_seconds", a.seconds()).Msg("Target detected, tracking started")
	case !running && a.state == StateActive:
		a.advance(now)
		a.state = StateIdle
		result.Event = EventStopped
		a.logger.Info().Int64("total_seconds", a.seconds()).Msg("Target closed, tracking paused")
	}

	var errs []error
	key := core.DateKey(now)

	if a.state == StateActive {
		a.advance(now)
		if _, err := a.daily.Increment(key); err != nil {
			errs = append(errs, err)
			result.Failed = append(result.Failed, ArtifactLog)
		}
	}

	if err := a.saveTotal(); err != nil {
		errs = append(errs, err)
		result.Failed = append(result.Failed, ArtifactTotal)
	}

	if len(errs) > 0 {
		result.SaveErr = errors.Join(errs...)
		a.logger.Warn().Err(result.SaveErr).Msg("Save failed, will retry next tick")
	}

	result.State = a.state
	result.Total = a.seconds()
	result.Today = a.daily.Get(key)
	return result
}

// advance moves the total to now - anchor. If the clock went backwards the
// total is held and the anchor re-derived so the total never decreases.
func (a *Accumulator) advance(now time.Time) {
	elapsed := now.Sub(a.anchor)
	if elapsed < a.total {
		a.logger.Debug().Dur("skew", a.total-elapsed).Msg("Clock moved backwards, holding total")
		a.anchor = now.Add(-a.total)
		return
	}
	a.total = elapsed
}

func (a *Accumulator) seconds() int64 {
	return int64(a.total / time.Second)
}

func (a *Accumulator) saveTotal() error {
	if err := a.store.SaveTotal(a.seconds()); err != nil {
		return fmt.Errorf("failed to save total time: %w", err)
	}
	return nil
}

// Flush saves both artifacts. It is the final save on shutdown.
func (a *Accumulator) Flush() error {
	if a.state == StateActive {
		a.advance(a.clock())
	}
	return errors.Join(a.saveTotal(), a.daily.Save())
}

func (a *Accumulator) Status() Status {
	return Status{
		State: a.state,
		Total: a.seconds(),
		Today: a.daily.Get(core.DateKey(a.clock())),
	}
}

// Log returns a copy of the in-memory daily log.
func (a *Accumulator) Log() core.DailyLog {
	return a.daily.Log()
}
