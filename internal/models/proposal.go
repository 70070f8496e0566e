package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/customeros/rfpstack/internal/enum"
	"github.com/customeros/rfpstack/internal/utils"
)

// Proposal is one vendor's bid for one RFP. EmailFrom, EmailSubject and
// Attachments record the first contact and are never overwritten.
type Proposal struct {
	ID       string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	RfpID    string `gorm:"column:rfp_id;type:varchar(50);not null;uniqueIndex:ux_proposal_rfp_vendor,priority:1" json:"rfpId"`
	VendorID string `gorm:"column:vendor_id;type:varchar(50);not null;uniqueIndex:ux_proposal_rfp_vendor,priority:2" json:"vendorId"`

	Price        decimal.NullDecimal `gorm:"column:price;type:numeric(14,2)" json:"price"`
	DeliveryDays *int                `gorm:"column:delivery_days" json:"deliveryDays"`
	Warranty     *string             `gorm:"column:warranty;type:text" json:"warranty"`
	PaymentTerms *string             `gorm:"column:payment_terms;type:text" json:"paymentTerms"`
	Notes        *string             `gorm:"column:notes;type:text" json:"notes"`
	AiSummary    *string             `gorm:"column:ai_summary;type:text" json:"aiSummary"`
	AiScore      float64             `gorm:"column:ai_score;not null;default:0" json:"aiScore"`
	RawEmailBody string              `gorm:"column:raw_email_body;type:text" json:"rawEmailBody"`

	EmailFrom    string         `gorm:"column:email_from;type:varchar(500)" json:"emailFrom"`
	EmailSubject string         `gorm:"column:email_subject;type:varchar(1000)" json:"emailSubject"`
	Attachments  AttachmentList `gorm:"column:attachments;type:jsonb" json:"attachments"`

	Status    enum.ProposalStatus `gorm:"column:status;type:varchar(20);not null;default:RECEIVED" json:"status"`
	CreatedAt time.Time           `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time           `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (Proposal) TableName() string {
	return "proposals"
}

func (p *Proposal) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.GenerateNanoIDWithPrefix("prop", 16)
	}
	if p.Status == "" {
		p.Status = enum.ProposalStatusReceived
	}
	if p.Attachments == nil {
		p.Attachments = AttachmentList{}
	}
	p.AiScore = utils.ClampScore(p.AiScore)
	now := utils.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// ProposalMutableColumns are overwritten when a later reply for the same
// (rfp, vendor) arrives.
var ProposalMutableColumns = []string{
	"price",
	"delivery_days",
	"warranty",
	"payment_terms",
	"notes",
	"ai_summary",
	"ai_score",
	"raw_email_body",
	"updated_at",
}
