package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Version string        `mapstructure:"version" json:"version"`
	Tracker TrackerConfig `mapstructure:"tracker" json:"tracker"`
	Daemon  DaemonConfig  `mapstructure:"daemon" json:"daemon"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
	Storage StorageConfig `mapstructure:"storage" json:"storage"`
	Viewer  ViewerConfig  `mapstructure:"viewer" json:"viewer"`
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics"`
	Palette PaletteConfig `mapstructure:"palette" json:"palette"`

	path string
}

type TrackerConfig struct {
	ProcessName  string `mapstructure:"process_name" json:"process_name"`
	PollInterval string `mapstructure:"poll_interval" json:"poll_interval"`
}

type DaemonConfig struct {
	DataDir string `mapstructure:"data_dir" json:"data_dir"`
	PIDFile string `mapstructure:"pid_file" json:"pid_file"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// StorageConfig file names are resolved against Daemon.DataDir unless absolute.
type StorageConfig struct {
	Backend    string `mapstructure:"backend" json:"backend"`
	TotalFile  string `mapstructure:"total_file" json:"total_file"`
	LogFile    string `mapstructure:"log_file" json:"log_file"`
	SQLiteFile string `mapstructure:"sqlite_file" json:"sqlite_file"`
}

type ViewerConfig struct {
	RefreshInterval string `mapstructure:"refresh_interval" json:"refresh_interval"`
	Watch           bool   `mapstructure:"watch" json:"watch"`
}

// MetricsConfig enables a Prometheus textfile written after every tick.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" json:"textfile"`
}

type PaletteConfig struct {
	Count int `mapstructure:"count" json:"count"`
}

func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", AppName)

	return &Config{
		Version: ConfigVersion,
		Tracker: TrackerConfig{
			ProcessName:  DefaultProcessName,
			PollInterval: DefaultPollInterval.String(),
		},
		Daemon: DaemonConfig{
			DataDir: dataDir,
			PIDFile: DefaultPIDFile,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Storage: StorageConfig{
			Backend:    StorageBackendJSON,
			TotalFile:  DefaultTotalFile,
			LogFile:    DefaultLogFile,
			SQLiteFile: DefaultSQLiteFile,
		},
		Viewer: ViewerConfig{
			RefreshInterval: DefaultRefreshInterval.String(),
			Watch:           true,
		},
		Palette: PaletteConfig{
			Count: DefaultPaletteCount,
		},
	}
}

// DefaultConfigPath is ~/.config/tenure/config.json.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, DefaultConfigDir, "config.json")
}

// LoadConfig reads path (or the default path when empty), layering
// TENURE_* environment variables over the file over the defaults.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, *viper.Viper, error) {
	return read(path, true)
}

// read loads path over the defaults. With env set, TENURE_* variables
// override both.
func read(path string, env bool) (*Config, *viper.Viper, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if env {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.path = path

	return &cfg, v, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)

	v.SetDefault("tracker.process_name", d.Tracker.ProcessName)
	v.SetDefault("tracker.poll_interval", d.Tracker.PollInterval)

	v.SetDefault("daemon.data_dir", d.Daemon.DataDir)
	v.SetDefault("daemon.pid_file", d.Daemon.PIDFile)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.total_file", d.Storage.TotalFile)
	v.SetDefault("storage.log_file", d.Storage.LogFile)
	v.SetDefault("storage.sqlite_file", d.Storage.SQLiteFile)

	v.SetDefault("viewer.refresh_interval", d.Viewer.RefreshInterval)
	v.SetDefault("viewer.watch", d.Viewer.Watch)

	v.SetDefault("metrics.textfile", d.Metrics.Textfile)

	v.SetDefault("palette.count", d.Palette.Count)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Tracker.ProcessName) == "" {
		return fmt.Errorf("tracker.process_name is required")
	}
	if d, err := time.ParseDuration(c.Tracker.PollInterval); err != nil || d <= 0 {
		return fmt.Errorf("invalid tracker.poll_interval: %q", c.Tracker.PollInterval)
	}
	if d, err := time.ParseDuration(c.Viewer.RefreshInterval); err != nil || d <= 0 {
		return fmt.Errorf("invalid viewer.refresh_interval: %q", c.Viewer.RefreshInterval)
	}
	if !slices.Contains(StorageBackends, c.Storage.Backend) {
		return fmt.Errorf("unknown storage.backend: %q", c.Storage.Backend)
	}
	if !slices.Contains(LogLevels, c.Logging.Level) {
		return fmt.Errorf("unknown logging.level: %q", c.Logging.Level)
	}
	if c.Logging.Format != LogFormatJSON && c.Logging.Format != LogFormatText {
		return fmt.Errorf("unknown logging.format: %q", c.Logging.Format)
	}
	if c.Palette.Count <= 0 {
		return fmt.Errorf("palette.count must be positive, got %d", c.Palette.Count)
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return parseDuration(c.Tracker.PollInterval, DefaultPollInterval)
}

func (c *Config) RefreshInterval() time.Duration {
	return parseDuration(c.Viewer.RefreshInterval, DefaultRefreshInterval)
}

func (c *Config) TotalFile() string {
	return c.resolve(c.Storage.TotalFile, DefaultTotalFile)
}

func (c *Config) LogFile() string {
	return c.resolve(c.Storage.LogFile, DefaultLogFile)
}

func (c *Config) SQLiteFile() string {
	return c.resolve(c.Storage.SQLiteFile, DefaultSQLiteFile)
}

func (c *Config) resolve(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Daemon.DataDir, name)
}

// Path is the file the config was loaded from.
func (c *Config) Path() string {
	if c.path == "" {
		return DefaultConfigPath()
	}
	return c.path
}

func (c *Config) Save() error {
	return c.SaveTo(c.Path())
}

func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	c.path = path
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Daemon.DataDir,
		filepath.Dir(c.TotalFile()),
		filepath.Dir(c.LogFile()),
	}
	if c.Storage.Backend == StorageBackendSQLite {
		dirs = append(dirs, filepath.Dir(c.SQLiteFile()))
	}

	for _, dir := range dirs {
		if dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// Keys lists every settable configuration key in sorted order.
func Keys() []string {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// GetValue returns the effective value of key from the config at path.
func GetValue(path, key string) (any, error) {
	_, v, err := load(path)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(Keys(), key) {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v.Get(key), nil
}

// SetValue updates key in the config at path, validates the result and
// writes it back. Environment overrides are not persisted.
func SetValue(path, key, value string) (*Config, error) {
	if !slices.Contains(Keys(), key) {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}

	cfg, v, err := read(path, false)
	if err != nil {
		return nil, err
	}

	v.Set(key, value)

	var next Config
	if err := v.Unmarshal(&next); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := next.SaveTo(cfg.Path()); err != nil {
		return nil, err
	}
	return &next, nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
