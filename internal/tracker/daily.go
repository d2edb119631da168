package tracker

import (
	"fmt"

	"github.com/yowainwright/tenure/internal/core"
	"github.com/yowainwright/tenure/internal/storage"
)

// Aggregator owns the in-memory daily log and writes it through on every
// increment. Each increment is one observed tick, not a measured duration.
type Aggregator struct {
	store storage.Storage
	log   core.DailyLog
}

func NewAggregator(store storage.Storage) *Aggregator {
	return &Aggregator{
		store: store,
		log:   store.LoadLog(),
	}
}

// Increment bumps the bucket for key and saves the log. The in-memory
// count is kept even when the save fails.
func (a *Aggregator) Increment(key string) (int64, error) {
	n := a.log.Increment(key)
	return n, a.Save()
}

func (a *Aggregator) Get(key string) int64 {
	return a.log.Get(key)
}

func (a *Aggregator) Log() core.DailyLog {
	return a.log.Clone()
}

func (a *Aggregator) Save() error {
	if err := a.store.SaveLog(a.log); err != nil {
		return fmt.Errorf("failed to save daily log: %w", err)
	}
	return nil
}
