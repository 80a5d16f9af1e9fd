package binding

import (
	"github.com/grovetools/qualitylink/config"
	"github.com/grovetools/qualitylink/errors"
	"github.com/grovetools/qualitylink/pkg/paths"
)

// Open returns the store selected by cfg.Backend.
func Open(cfg config.BindingConfig, ws Workspace) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendFile:
		return NewFileStore(ws, cfg)
	case config.BackendSQLite:
		dbPath := cfg.Database
		if dbPath == "" {
			dbPath = paths.BindingDatabasePath()
		}
		return NewSQLiteStore(dbPath, ws)
	default:
		return nil, errors.ConfigInvalid("unknown binding backend: " + cfg.Backend).
			WithDetail("backend", cfg.Backend)
	}
}
