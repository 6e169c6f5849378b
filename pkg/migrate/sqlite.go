package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Mirrors the partial/unique indexes declared in the goose migrations.
var sqliteIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_session_id ON orders (session_id) WHERE session_id <> 'none'`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status_created_at ON orders (status, created_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_aggregate_event ON outbox_events (aggregate_type, aggregate_id, event_type)`,
}

// ApplySQLiteSchema creates the order and outbox tables on a sqlite connection.
// Goose SQL files target Postgres (enum types, jsonb) so sqlite is built from the models.
func ApplySQLiteSchema(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if name := conn.Dialector.Name(); name != "sqlite" {
		return fmt.Errorf("sqlite schema requested on %s connection", name)
	}
	tx := conn.WithContext(ctx)
	if err := tx.AutoMigrate(&models.Order{}, &models.OutboxEvent{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range sqliteIndexes {
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
