package storage

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yowainwright/tenure/internal/core"
)

// New opens the backend named by config.Storage.Backend.
func New(config *core.Config, logger zerolog.Logger) (Storage, error) {
	switch config.Storage.Backend {
	case core.StorageBackendJSON, "":
		return NewJSONStorage(config, logger)
	case core.StorageBackendSQLite:
		return NewSQLiteStorage(config, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, config.Storage.Backend)
	}
}
