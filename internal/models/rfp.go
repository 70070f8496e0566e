package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/customeros/rfpstack/internal/enum"
	"github.com/customeros/rfpstack/internal/utils"
)

type RFP struct {
	ID          string         `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Title       string         `gorm:"column:title;type:varchar(500);not null" json:"title"`
	Description string         `gorm:"column:description;type:text;not null" json:"description"`
	Status      enum.RfpStatus `gorm:"column:status;type:varchar(20);not null;index;default:DRAFT" json:"status"`
	SentAt      *time.Time     `gorm:"column:sent_at;type:timestamp" json:"sentAt,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (RFP) TableName() string {
	return "rfps"
}

func (r *RFP) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = enum.RfpStatusDraft
	}
	now := utils.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// RfpVendor is the fan-out junction, written only by the DRAFT->SENT transition.
type RfpVendor struct {
	RfpID     string    `gorm:"column:rfp_id;type:varchar(50);primaryKey" json:"rfpId"`
	VendorID  string    `gorm:"column:vendor_id;type:varchar(50);primaryKey;index" json:"vendorId"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
}

func (RfpVendor) TableName() string {
	return "rfp_vendors"
}

func (rv *RfpVendor) BeforeCreate(tx *gorm.DB) error {
	rv.CreatedAt = utils.Now()
	return nil
}
