package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/models"
)

type Repositories struct {
	RfpRepository      interfaces.RfpRepository
	VendorRepository   interfaces.VendorRepository
	ProposalRepository interfaces.ProposalRepository
	ChatRepository     interfaces.ChatRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		RfpRepository:      NewRfpRepository(db),
		VendorRepository:   NewVendorRepository(db),
		ProposalRepository: NewProposalRepository(db),
		ChatRepository:     NewChatRepository(db),
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.RFP{},
		&models.Vendor{},
		&models.RfpVendor{},
		&models.Proposal{},
		&models.ChatSession{},
		&models.ChatMessage{},
	)
}

// MigrateDB runs the schema migration on a small pool, then restores the
// configured pool limits.
func MigrateDB(dbConfig *config.DatabaseConfig, rfpDB *gorm.DB) error {
	db, err := rfpDB.DB()
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(5)

	err = AutoMigrate(rfpDB)

	db.SetMaxIdleConns(dbConfig.MaxIdleConn)
	db.SetMaxOpenConns(dbConfig.MaxConn)
	db.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
