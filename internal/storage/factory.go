package storage

import (
	"github.com/taskbridge/todoist-mcp/internal/config"
)

// NewFromConfig picks the one backend this deployment uses: Postgres when
// DATABASE_URL is set, SQLite otherwise.
func NewFromConfig(cfg *config.Config) (Store, error) {
	if cfg.DatabaseURL != "" {
		return NewPostgresStore(cfg.DatabaseURL, cfg.EncryptionKey, cfg.RedisURL)
	}
	return NewSQLiteStore(cfg.SQLitePath, cfg.EncryptionKey)
}
