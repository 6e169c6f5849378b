package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_no_down.sql"), []byte("-- +goose Up\n"), 0o644))
	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goose Down")
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"20260101000000_unbalanced.sql": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"20260101000001_reversed.sql":   "-- +goose Down\nSELECT 1;\n-- +goose Up\n",
		"20260101000001_duplicate.sql":  "-- +goose Up\n-- +goose Down\n",
		"orders.sql":                    "-- +goose Up\n-- +goose Down\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	err := ValidateDir(dir)
	require.Error(t, err)
	problems := multierr.Errors(err)
	assert.Len(t, problems, 4)
	for _, want := range []string{"unterminated StatementBegin", "Down before Up", "duplicate migration version", "invalid migration filename"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestCreateSQLMigrationOrdersAfterExistingVersions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20300101000000_future.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := createSQLMigration(dir, "add order notes", time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "20300101000001_add_order_notes.sql", filepath.Base(path))

	path, err = createSQLMigration(dir, "add order notes", time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "20310101000000_add_order_notes.sql", filepath.Base(path))
	require.NoError(t, ValidateDir(dir))
}

func TestRunnerAppliesAndRollsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_create_notes.sql"),
		[]byte("-- +goose Up\nCREATE TABLE order_notes (id integer PRIMARY KEY, body text);\n-- +goose Down\nDROP TABLE order_notes;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000100_add_author.sql"),
		[]byte("-- +goose Up\nALTER TABLE order_notes ADD COLUMN author text;\n-- +goose Down\nSELECT 1;\n"), 0o644))

	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)

	runner, err := NewRunner(sqlDB, database.DialectSQLite3, dir)
	require.NoError(t, err)
	ctx := context.Background()

	applied, err := runner.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	v, err := runner.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20260101000100), v)

	require.NoError(t, runner.To(ctx, "20260101000000"))
	states, err := runner.Status(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.True(t, states[0].Applied)
	assert.False(t, states[1].Applied)

	require.NoError(t, runner.Down(ctx))
	v, err = runner.Version(ctx)
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, conn.Migrator().HasTable("order_notes"))

	assert.Error(t, runner.To(ctx, "latest"))
	_, err = NewRunner(nil, database.DialectSQLite3, dir)
	assert.Error(t, err)
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Order Notes!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_order_notes.sql"))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestApplySQLiteSchemaEnforcesSessionUniqueness(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, ApplySQLiteSchema(ctx, conn))
	require.NoError(t, ApplySQLiteSchema(ctx, conn), "schema application must be repeatable")

	newOrder := func(sessionID string, status enums.OrderStatus) *models.Order {
		return &models.Order{
			SessionID:   sessionID,
			ProductName: "Shirt",
			Quantity:    1,
			TotalPrice:  decimal.RequireFromString("19.99"),
			Status:      status,
		}
	}

	require.NoError(t, conn.Create(newOrder(models.FailedSessionID, enums.OrderStatusFailed)).Error)
	require.NoError(t, conn.Create(newOrder(models.FailedSessionID, enums.OrderStatusFailed)).Error)
	require.NoError(t, conn.Create(newOrder("cs_test_1", enums.OrderStatusInitiated)).Error)
	require.Error(t, conn.Create(newOrder("cs_test_1", enums.OrderStatusInitiated)).Error)
}
