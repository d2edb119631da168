package storage

import (
	"errors"

	"github.com/yowainwright/tenure/internal/core"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

// Storage persists the two durable artifacts: the lifetime total and the
// daily log. Loads never fail; a missing or unreadable artifact yields the
// zero value. Saves are best-effort and report failure to the caller.
//
// Nothing here locks. A tracker and a viewer may touch the same artifacts
// at once and the viewer can observe a partial write, which loads as the
// default for that read.
type Storage interface {
	LoadTotal() int64
	SaveTotal(seconds int64) error

	LoadLog() core.DailyLog
	SaveLog(log core.DailyLog) error

	// Paths lists the files backing the artifacts.
	Paths() []string
	// Backup copies the artifacts aside and returns the copies' paths.
	Backup() ([]string, error)
	Close() error
}
