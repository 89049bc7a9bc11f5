package memory

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and configures the memory backend.
type Config struct {
	// Driver is one of auto, postgres, redis, sqlite, memory.
	Driver      string
	DatabaseURL string
	SQLitePath  string
	Redis       RedisConfig
}

// NewStore creates the configured store. In auto mode the first configured
// backend wins: postgres, then redis, then sqlite, otherwise in-memory.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "auto" {
		switch {
		case strings.TrimSpace(cfg.DatabaseURL) != "":
			driver = "postgres"
		case strings.TrimSpace(cfg.Redis.Addr) != "":
			driver = "redis"
		case strings.TrimSpace(cfg.SQLitePath) != "":
			driver = "sqlite"
		default:
			driver = "memory"
		}
	}

	switch driver {
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, fmt.Errorf("memory driver postgres requires DATABASE_URL")
		}
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case "redis":
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return nil, fmt.Errorf("memory driver redis requires REDIS_ADDR")
		}
		return NewRedisStore(ctx, cfg.Redis)
	case "sqlite":
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, fmt.Errorf("memory driver sqlite requires MEMORY_SQLITE_PATH")
		}
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case "memory":
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported memory driver %q", cfg.Driver)
	}
}
