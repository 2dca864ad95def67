// Package testutil holds helpers shared by package tests.
package testutil

import (
	"io"
	"path/filepath"
	"testing"

	"oncology-assist-backend/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func QuietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// NewDB opens a migrated sqlite database in a temp dir. One connection keeps
// writes from the background worker and the test serialised.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	log := QuietLogger()

	db, err := config.ConnectDB("sqlite://"+filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.MigrateAllModels(db, true, log))
	t.Cleanup(func() { _ = config.CloseDB(db) })
	return db
}
