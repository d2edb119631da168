// Package service installs the tracker as a systemd user service.
package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"
	"github.com/yowainwright/tenure/internal/core"
)

const UnitName = core.AppName + ".service"

type UnitGenerator struct {
	config *core.Config
	// UnitDir defaults to ~/.config/systemd/user.
	UnitDir string
}

func NewUnitGenerator(config *core.Config) *UnitGenerator {
	homeDir, _ := os.UserHomeDir()
	return &UnitGenerator{
		config:  config,
		UnitDir: filepath.Join(homeDir, ".config", "systemd", "user"),
	}
}

// Options returns the unit file entries for running execPath as the
// tracker. The tracker reports readiness with sd_notify.
func (g *UnitGenerator) Options(execPath string) []*unit.UnitOption {
	args := []string{quote(execPath), "track"}
	if path := g.config.Path(); path != "" {
		args = append(args, "--config", quote(path))
	}

	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", fmt.Sprintf("%s usage tracker for %s", core.AppName, g.config.Tracker.ProcessName)),
		unit.NewUnitOption("Service", "Type", "notify"),
		unit.NewUnitOption("Service", "ExecStart", strings.Join(args, " ")),
		unit.NewUnitOption("Service", "Restart", "on-failure"),
		unit.NewUnitOption("Service", "RestartSec", "5"),
		unit.NewUnitOption("Service", "Environment", core.EnvPrefix+"_LOGGING_FORMAT="+core.LogFormatJSON),
		unit.NewUnitOption("Install", "WantedBy", "default.target"),
	}
}

// Generate writes the unit file for execPath to w.
func (g *UnitGenerator) Generate(w io.Writer, execPath string) error {
	if _, err := io.Copy(w, unit.Serialize(g.Options(execPath))); err != nil {
		return fmt.Errorf("failed to write unit: %w", err)
	}
	return nil
}

// Install writes the unit into UnitDir and returns its path.
func (g *UnitGenerator) Install(execPath string) (string, error) {
	if err := os.MkdirAll(g.UnitDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create unit directory: %w", err)
	}

	unitPath := filepath.Join(g.UnitDir, UnitName)
	file, err := os.OpenFile(unitPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create unit file: %w", err)
	}
	defer file.Close()

	if err := g.Generate(file, execPath); err != nil {
		return "", err
	}

	return unitPath, nil
}

// ResolveExecutable returns the absolute path of the running binary.
func ResolveExecutable() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	return execPath, nil
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}
