package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/yowainwright/tenure/internal/core"
)

// JSONStorage keeps each artifact in its own JSON file. Writes truncate the
// file in place; there is no temp file and rename.
type JSONStorage struct {
	totalPath string
	logPath   string
	logger    zerolog.Logger
}

func NewJSONStorage(config *core.Config, logger zerolog.Logger) (*JSONStorage, error) {
	js := &JSONStorage{
		totalPath: config.TotalFile(),
		logPath:   config.LogFile(),
		logger:    logger.With().Str("component", "json-storage").Logger(),
	}

	for _, path := range js.Paths() {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return js, nil
}

func (j *JSONStorage) Paths() []string {
	return []string{j.totalPath, j.logPath}
}

func (j *JSONStorage) LoadTotal() int64 {
	data, ok := j.read(j.totalPath)
	if !ok {
		return 0
	}

	// total_seconds may be fractional in files written by older versions.
	var record struct {
		TotalSeconds *float64 `json:"total_seconds"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		j.logger.Warn().Err(err).Str("path", j.totalPath).Msg("Malformed total time file, starting from zero")
		return 0
	}

	if record.TotalSeconds == nil {
		return 0
	}
	total := *record.TotalSeconds
	if math.IsNaN(total) || total < 0 || total >= math.MaxInt64 {
		j.logger.Warn().Float64("total_seconds", total).Str("path", j.totalPath).Msg("Out of range total time, starting from zero")
		return 0
	}

	return int64(total)
}

func (j *JSONStorage) SaveTotal(seconds int64) error {
	return j.write(j.totalPath, core.TotalRecord{TotalSeconds: seconds})
}

func (j *JSONStorage) LoadLog() core.DailyLog {
	data, ok := j.read(j.logPath)
	if !ok {
		return core.DailyLog{}
	}

	var log core.DailyLog
	if err := json.Unmarshal(data, &log); err != nil {
		j.logger.Warn().Err(err).Str("path", j.logPath).Msg("Malformed daily log, starting empty")
		return core.DailyLog{}
	}
	if log == nil {
		return core.DailyLog{}
	}
	if err := log.Validate(); err != nil {
		j.logger.Warn().Err(err).Str("path", j.logPath).Msg("Invalid daily log, starting empty")
		return core.DailyLog{}
	}

	return log
}

func (j *JSONStorage) SaveLog(log core.DailyLog) error {
	if log == nil {
		log = core.DailyLog{}
	}
	return j.write(j.logPath, log)
}

func (j *JSONStorage) Backup() ([]string, error) {
	stamp := time.Now().Format("20060102_150405")

	var written []string
	for _, path := range j.Paths() {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return written, fmt.Errorf("failed to read %s: %w", path, err)
		}

		backupPath := fmt.Sprintf("%s.backup.%s", path, stamp)
		if err := os.WriteFile(backupPath, data, 0644); err != nil {
			return written, fmt.Errorf("failed to write backup file: %w", err)
		}
		written = append(written, backupPath)
	}

	return written, nil
}

func (j *JSONStorage) Close() error {
	return nil
}

func (j *JSONStorage) read(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			j.logger.Debug().Str("path", path).Msg("Artifact not found, using default")
		} else {
			j.logger.Warn().Err(err).Str("path", path).Msg("Failed to read artifact, using default")
		}
		return nil, false
	}
	return data, true
}

func (j *JSONStorage) write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	return nil
}
