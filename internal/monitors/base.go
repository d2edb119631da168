package monitors

import (
	"context"
	"strings"

	"github.com/yowainwright/tenure/internal/core"
)

// Monitor answers whether the tracked target is currently running.
type Monitor interface {
	Name() string
	Initialize(config *core.Config) error
	IsRunning(ctx context.Context) (bool, error)
}

type BaseMonitor struct {
	name   string
	config *core.Config
}

func NewBaseMonitor(name string) *BaseMonitor {
	return &BaseMonitor{
		name: name,
	}
}

func (m *BaseMonitor) Name() string {
	return m.name
}

func (m *BaseMonitor) Initialize(config *core.Config) error {
	m.config = config
	return nil
}

// Matches reports whether candidate names the target. Comparison is
// case-insensitive so "Krita.exe" matches "krita.exe".
func (m *BaseMonitor) Matches(candidate string) bool {
	return candidate != "" && strings.EqualFold(candidate, m.name)
}
