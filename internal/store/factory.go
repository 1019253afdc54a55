package store

import (
	"fmt"

	"github.com/deskrelay/deskrelay/internal/config"
	"github.com/deskrelay/deskrelay/internal/store/file"
	"github.com/deskrelay/deskrelay/internal/store/pg"
	"github.com/deskrelay/deskrelay/internal/store/sqlite"
)

// Open creates the store selected by cfg.Backend.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return Noop{}, nil
	case "file":
		return file.New(config.ExpandHome(cfg.Dir))
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres store: DESKRELAY_POSTGRES_DSN not set")
		}
		return pg.New(cfg.PostgresDSN)
	case "sqlite":
		return sqlite.New(config.ExpandHome(cfg.Path))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
