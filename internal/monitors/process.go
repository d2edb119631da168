package monitors

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/process"
	"github.com/yowainwright/tenure/internal/core"
)

// processEntry is the slice of gopsutil's *process.Process the monitor uses.
type processEntry interface {
	NameWithContext(ctx context.Context) (string, error)
}

type processLister func(ctx context.Context) ([]processEntry, error)

// ProcessMonitor scans the OS process table for the target name.
type ProcessMonitor struct {
	*BaseMonitor
	list processLister
}

func NewProcessMonitor(name string) *ProcessMonitor {
	return &ProcessMonitor{
		BaseMonitor: NewBaseMonitor(name),
		list:        systemProcesses,
	}
}

// NewProcessMonitorFromConfig targets config.Tracker.ProcessName.
func NewProcessMonitorFromConfig(config *core.Config) (*ProcessMonitor, error) {
	m := NewProcessMonitor(config.Tracker.ProcessName)
	if err := m.Initialize(config); err != nil {
		return nil, err
	}
	return m, nil
}

// IsRunning enumerates the process table once. Entries that vanish or
// cannot be inspected between listing and reading their name are skipped.
// An error is returned only when the table itself cannot be listed.
func (m *ProcessMonitor) IsRunning(ctx context.Context) (bool, error) {
	entries, err := m.list(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list processes: %w", err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if entry == nil {
			continue
		}

		name, err := entry.NameWithContext(ctx)
		if err != nil {
			continue
		}

		if m.Matches(name) {
			return true, nil
		}
	}

	return false, nil
}

func systemProcesses(ctx context.Context) ([]processEntry, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]processEntry, 0, len(procs))
	for _, p := range procs {
		if p == nil {
			continue
		}
		entries = append(entries, p)
	}
	return entries, nil
}
