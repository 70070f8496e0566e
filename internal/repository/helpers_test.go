package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/customeros/rfpstack/internal/models"
)

// newTestDB opens a migrated sqlite database in the test's temp dir.
func newTestDB(t *testing.T) *gorm.DB {
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

	require.NoError(t, AutoMigrate(db))
	return db
}

func seedVendor(t *testing.T, db *gorm.DB, name, email string) models.Vendor {
	t.Helper()
	vendor := models.Vendor{Name: name, Email: email}
	require.NoError(t, NewVendorRepository(db).Create(context.Background(), &vendor))
	return vendor
}

func seedDraft(t *testing.T, db *gorm.DB) (*models.ChatSession, *models.RFP) {
	t.Helper()
	ctx := context.Background()

	session, err := NewChatRepository(db).CreateSession(ctx)
	require.NoError(t, err)

	rfp := &models.RFP{Title: "20 laptops", Description: "16GB RAM, delivery in 30 days"}
	require.NoError(t, NewRfpRepository(db).CreateForSession(ctx, session.ID, rfp))
	return session, rfp
}

func at(minute int) time.Time {
	return time.Date(2025, 3, 1, 10, minute, 0, 0, time.UTC)
}
