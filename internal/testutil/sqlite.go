// Package testutil holds helpers shared by service tests.
package testutil

import (
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/customeros/rfpstack/internal/logger"
)

// NewSQLiteDB opens a file-backed sqlite database in the test's temp dir and
// runs migrate against it.
func NewSQLiteDB(t *testing.T, migrate func(*gorm.DB) error) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "rfpstack.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(gormlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if migrate != nil {
		require.NoError(t, migrate(db))
	}
	return db
}

func NewLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{LogLevel: "error", DevMode: true})
	appLogger.InitLogger()
	return appLogger
}
