package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/tracing"
)

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	Tracing         *tracing.JaegerConfig
	DatabaseConfig  *DatabaseConfig
	MailboxConfig   *MailboxConfig
	SMTPConfig      *SMTPConfig
	AIConfig        *AIConfig
	R2StorageConfig *R2StorageConfig
	IngestionConfig *IngestionConfig
	CronConfig      *CronConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		Tracing:         &tracing.JaegerConfig{},
		DatabaseConfig:  &DatabaseConfig{},
		MailboxConfig:   &MailboxConfig{},
		SMTPConfig:      &SMTPConfig{},
		AIConfig:        &AIConfig{},
		R2StorageConfig: &R2StorageConfig{},
		IngestionConfig: &IngestionConfig{},
		CronConfig:      &CronConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading rfpstack config: %v", err)
	}

	return config, nil
}

// ArchiveEnabled reports whether inbound attachments are copied to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.R2StorageConfig != nil && c.R2StorageConfig.AccountID != ""
}

// EventsEnabled reports whether domain events are published to RabbitMQ.
func (c *Config) EventsEnabled() bool {
	return c.AppConfig != nil && c.AppConfig.RabbitMQURL != ""
}
