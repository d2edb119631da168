package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", config.Version)
	}

	if config.Tracker.ProcessName != DefaultProcessName {
		t.Errorf("Expected process name %s, got %s", DefaultProcessName, config.Tracker.ProcessName)
	}

	if config.PollInterval() != time.Second {
		t.Errorf("Expected poll interval 1s, got %v", config.PollInterval())
	}

	if config.Storage.Backend != "json" {
		t.Errorf("Expected storage backend json, got %s", config.Storage.Backend)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	// Test loading non-existent config returns default
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Errorf("Expected no error for non-existent config, got %v", err)
	}

	if config == nil {
		t.Fatal("Expected default config, got nil")
	}

	if config.Palette.Count != DefaultPaletteCount {
		t.Errorf("Expected palette count %d, got %d", DefaultPaletteCount, config.Palette.Count)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed config")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TENURE_TRACKER_PROCESS_NAME", "blender")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Tracker.ProcessName != "blender" {
		t.Errorf("Expected env override blender, got %s", config.Tracker.ProcessName)
	}
}

func TestConfigSave(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	config := DefaultConfig()
	config.Tracker.PollInterval = "2s"

	err := config.SaveTo(configPath)
	if err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	// Load and verify
	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.PollInterval() != 2*time.Second {
		t.Errorf("Expected poll interval 2s, got %v", loaded.PollInterval())
	}

	if loaded.Path() != configPath {
		t.Errorf("Expected path %s, got %s", configPath, loaded.Path())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(c *Config){
		"empty process": func(c *Config) { c.Tracker.ProcessName = " " },
		"zero interval": func(c *Config) { c.Tracker.PollInterval = "0s" },
		"bad interval":  func(c *Config) { c.Tracker.PollInterval = "soon" },
		"bad backend":   func(c *Config) { c.Storage.Backend = "redis" },
		"bad level":     func(c *Config) { c.Logging.Level = "trace" },
		"bad format":    func(c *Config) { c.Logging.Format = "xml" },
		"zero palette":  func(c *Config) { c.Palette.Count = 0 },
		"bad refresh":   func(c *Config) { c.Viewer.RefreshInterval = "-1s" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			config := DefaultConfig()
			mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestSetAndGetValue(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")

	updated, err := SetValue(configPath, "tracker.process_name", "krita.exe")
	if err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if updated.Tracker.ProcessName != "krita.exe" {
		t.Errorf("Expected krita.exe, got %s", updated.Tracker.ProcessName)
	}

	if _, err := SetValue(configPath, "palette.count", "8"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	value, err := GetValue(configPath, "tracker.process_name")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if value != "krita.exe" {
		t.Errorf("Expected krita.exe, got %v", value)
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Palette.Count != 8 {
		t.Errorf("Expected palette count 8, got %d", loaded.Palette.Count)
	}
}

func TestSetValueDoesNotPersistEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("TENURE_TRACKER_PROCESS_NAME", "from-env")

	if _, err := SetValue(configPath, "palette.count", "7"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if strings.Contains(string(data), "from-env") {
		t.Errorf("Environment override written to config file:\n%s", data)
	}
	if !strings.Contains(string(data), `"process_name": "`+DefaultProcessName+`"`) {
		t.Errorf("Expected default process name in config file:\n%s", data)
	}

	// The override still applies when loading.
	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Tracker.ProcessName != "from-env" {
		t.Errorf("Expected from-env, got %s", loaded.Tracker.ProcessName)
	}
	if loaded.Palette.Count != 7 {
		t.Errorf("Expected palette count 7, got %d", loaded.Palette.Count)
	}
}

func TestSetValueRejectsUnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")

	if _, err := SetValue(configPath, "api.port", "80"); err == nil {
		t.Error("Expected error for unknown key")
	}

	if _, err := os.Stat(configPath); !os.IsNotExist(err) {
		t.Error("Config file should not be written for an unknown key")
	}
}

func TestSetValueRejectsInvalidValue(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")

	if _, err := SetValue(configPath, "storage.backend", "redis"); err == nil {
		t.Error("Expected error for invalid backend")
	}
}

func TestStoragePathsResolveAgainstDataDir(t *testing.T) {
	config := DefaultConfig()
	config.Daemon.DataDir = "/data"
	config.Storage.LogFile = "/elsewhere/log.json"

	if got := config.TotalFile(); got != filepath.Join("/data", DefaultTotalFile) {
		t.Errorf("Unexpected total file %s", got)
	}
	if got := config.LogFile(); got != "/elsewhere/log.json" {
		t.Errorf("Unexpected log file %s", got)
	}

	config.Storage.SQLiteFile = ""
	if got := config.SQLiteFile(); got != filepath.Join("/data", DefaultSQLiteFile) {
		t.Errorf("Unexpected sqlite file %s", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	tempDir := t.TempDir()

	config := DefaultConfig()
	config.Daemon.DataDir = filepath.Join(tempDir, "data")
	config.Storage.LogFile = filepath.Join(tempDir, "logs", "daily.json")

	err := config.EnsureDirectories()
	if err != nil {
		t.Fatalf("Failed to create directories: %v", err)
	}

	// Verify directories exist
	dirs := []string{
		config.Daemon.DataDir,
		filepath.Dir(config.LogFile()),
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("Directory %s was not created", dir)
		}
	}
}
