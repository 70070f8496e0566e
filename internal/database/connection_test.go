package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/customeros/rfpstack/config"
)

func TestValidateConfig(t *testing.T) {
	valid := config.DatabaseConfig{
		Host: "localhost", Port: "5432", User: "rfp", Password: "secret", DBName: "rfpstack", SSLMode: "disable",
	}
	require.NoError(t, validateConfig(&valid))

	missingHost := valid
	missingHost.Host = ""
	assert.EqualError(t, validateConfig(&missingHost), "database host config is empty")
	assert.Error(t, validateConfig(nil))
}

func TestNewConnection_InvalidPort(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host: "localhost", Port: "not-a-port", User: "rfp", Password: "secret", DBName: "rfpstack", SSLMode: "disable",
	}
	db, err := NewConnection(cfg)
	assert.Nil(t, db)
	assert.ErrorContains(t, err, "invalid port number")
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, gormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, gormLogLevel("INFO"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel("WARN"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel(""))
}
