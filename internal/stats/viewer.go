package stats

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/yowainwright/tenure/internal/storage"
)

const clearScreen = "\033[H\033[2J"

// Viewer reloads the artifacts on a timer, and on file changes when Watch
// is set, rendering each snapshot to Out.
type Viewer struct {
	Store    storage.Storage
	Target   string
	Interval time.Duration
	Watch    bool
	// Clear wipes the terminal before each render.
	Clear bool
	Out   io.Writer
	Clock func() time.Time

	// Render defaults to the package Render.
	Render func(w io.Writer, s Snapshot, target string) error

	Logger zerolog.Logger
}

func (v *Viewer) Refresh() error {
	clock := v.Clock
	if clock == nil {
		clock = time.Now
	}
	render := v.Render
	if render == nil {
		render = Render
	}

	snap := Load(v.Store, clock())
	if v.Clear {
		if _, err := io.WriteString(v.Out, clearScreen); err != nil {
			return err
		}
	}
	return render(v.Out, snap, v.Target)
}

// Run refreshes once immediately and then until ctx is done.
func (v *Viewer) Run(ctx context.Context) error {
	interval := v.Interval
	if interval <= 0 {
		interval = time.Second
	}

	var changes <-chan struct{}
	if v.Watch {
		ch, closer, err := Watch(v.Store.Paths())
		if err != nil {
			v.Logger.Warn().Err(err).Msg("File watching unavailable, polling only")
		} else {
			defer closer.Close()
			changes = ch
		}
	}

	if err := v.Refresh(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			v.Logger.Debug().Msg("Artifact changed, reloading")
		}

		if err := v.Refresh(); err != nil {
			return err
		}
	}
}
