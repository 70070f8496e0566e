package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/customeros/rfpstack/internal/utils"
)

type Vendor struct {
	ID        string    `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"column:email;type:varchar(255);not null;uniqueIndex:ux_vendor_email" json:"email"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
}

func (Vendor) TableName() string {
	return "vendors"
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = utils.Now()
	return nil
}

// BeforeSave keeps the unique email index case-insensitive.
func (v *Vendor) BeforeSave(tx *gorm.DB) error {
	v.Email = utils.NormalizeEmail(v.Email)
	return nil
}
