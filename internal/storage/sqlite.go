package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/yowainwright/tenure/internal/core"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// SQLiteStorage keeps both artifacts in one database. Each save runs in
// its own statement or transaction.
type SQLiteStorage struct {
	db     *sqlx.DB
	path   string
	logger zerolog.Logger
}

type dailyRow struct {
	Date    string `db:"date"`
	Seconds int64  `db:"seconds"`
}

func NewSQLiteStorage(config *core.Config, logger zerolog.Logger) (*SQLiteStorage, error) {
	path := config.SQLiteFile()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{
		db:     db,
		path:   path,
		logger: logger.With().Str("component", "sqlite-storage").Logger(),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS database_version (db_version INTEGER NOT NULL DEFAULT 0)`); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var version int
	err := s.db.Get(&version, "SELECT db_version FROM database_version LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec("INSERT INTO database_version (db_version) VALUES (0)"); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if version >= schemaVersion {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer tx.Rollback()

	if version < 1 {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS total_time (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				total_seconds INTEGER NOT NULL CHECK (total_seconds >= 0)
			)`,
			`CREATE TABLE IF NOT EXISTS daily_log (
				date TEXT PRIMARY KEY,
				seconds INTEGER NOT NULL CHECK (seconds >= 0)
			)`,
			`UPDATE database_version SET db_version = 1`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("migrate to version 1: %w", err)
			}
		}
		s.logger.Debug().Int("version", 1).Msg("Database schema upgraded")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Paths() []string {
	return []string{s.path}
}

func (s *SQLiteStorage) LoadTotal() int64 {
	var total int64
	err := s.db.Get(&total, "SELECT total_seconds FROM total_time WHERE id = 1")
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn().Err(err).Msg("Failed to read total time, starting from zero")
		}
		return 0
	}
	if total < 0 {
		return 0
	}
	return total
}

func (s *SQLiteStorage) SaveTotal(seconds int64) error {
	_, err := s.db.Exec(`INSERT INTO total_time (id, total_seconds) VALUES (1, ?)
	ON CONFLICT(id) DO UPDATE SET total_seconds = excluded.total_seconds`, seconds)
	if err != nil {
		return fmt.Errorf("failed to save total time: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadLog() core.DailyLog {
	rows := []dailyRow{}
	if err := s.db.Select(&rows, "SELECT date, seconds FROM daily_log"); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read daily log, starting empty")
		return core.DailyLog{}
	}

	log := make(core.DailyLog, len(rows))
	for _, row := range rows {
		log[row.Date] = row.Seconds
	}
	if err := log.Validate(); err != nil {
		s.logger.Warn().Err(err).Msg("Invalid daily log, starting empty")
		return core.DailyLog{}
	}
	return log
}

// SaveLog replaces the stored log with log.
func (s *SQLiteStorage) SaveLog(log core.DailyLog) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to save daily log: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM daily_log"); err != nil {
		return fmt.Errorf("failed to save daily log: %w", err)
	}
	for date, seconds := range log {
		if _, err := tx.Exec("INSERT INTO daily_log (date, seconds) VALUES (?, ?)", date, seconds); err != nil {
			return fmt.Errorf("failed to save daily log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to save daily log: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Backup() ([]string, error) {
	backupPath := fmt.Sprintf("%s.backup.%s", s.path, time.Now().Format("20060102_150405"))
	if _, err := s.db.Exec("VACUUM INTO ?", backupPath); err != nil {
		return nil, fmt.Errorf("failed to write backup file: %w", err)
	}
	return []string{backupPath}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
