package facts

import (
	"context"
	"fmt"
	"strings"
)

// Config selects the fact store backend.
type Config struct {
	// Driver is one of auto, postgres, sqlite, memory.
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

// NewStore opens the configured fact store. Auto prefers postgres, then sqlite,
// then an empty in-memory store.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "auto" {
		switch {
		case strings.TrimSpace(cfg.DatabaseURL) != "":
			driver = "postgres"
		case strings.TrimSpace(cfg.SQLitePath) != "":
			driver = "sqlite"
		default:
			driver = "memory"
		}
	}

	switch driver {
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, fmt.Errorf("facts driver postgres requires DATABASE_URL")
		}
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case "sqlite":
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, fmt.Errorf("facts driver sqlite requires FACTS_SQLITE_PATH")
		}
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case "memory":
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported facts driver %q", cfg.Driver)
	}
}
