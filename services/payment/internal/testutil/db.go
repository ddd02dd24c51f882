// Package testutil provides an in-memory database for integration tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/infrastructure/database"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database private to t.
// SQLite ignores FOR UPDATE; a single connection serializes transactions
// instead, so tests cover ordering but not the row locks themselves.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db, zap.NewNop()))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// NewTestRepositories returns repositories over a fresh test database
func NewTestRepositories(t *testing.T) (*gorm.DB, *database.Repositories) {
	db := NewTestDB(t)
	return db, database.NewRepositories(db, zap.NewNop())
}
