package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/config"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"go.uber.org/zap"
)

func TestNewConnection_SQLite(t *testing.T) {
	logger := zap.NewNop()
	cfg := &config.DatabaseConfig{
		Driver: DriverSQLite,
		Name:   filepath.Join(t.TempDir(), "ledger.db"),
	}

	db, err := NewConnection(cfg, logger)
	require.NoError(t, err)

	require.NoError(t, Migrate(db, logger))
	assert.True(t, db.Migrator().HasTable(&model.Wallet{}))
	assert.True(t, db.Migrator().HasTable(&model.WithdrawalRequest{}))

	// Migrations are repeatable
	require.NoError(t, Migrate(db, logger))

	require.NoError(t, Close(db, logger))
}

func TestNewConnection_UnsupportedDriver(t *testing.T) {
	_, err := NewConnection(&config.DatabaseConfig{Driver: "mysql"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = NewConnection(&config.DatabaseConfig{Driver: DriverSQLite}, zap.NewNop())
	assert.ErrorContains(t, err, "sqlite file path")
}
