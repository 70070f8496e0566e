package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/customeros/rfpstack/internal/enum"
	"github.com/customeros/rfpstack/internal/utils"
)

type ChatSession struct {
	ID        string    `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	RfpID     *string   `gorm:"column:rfp_id;type:varchar(50);uniqueIndex:ux_chat_session_rfp" json:"rfpId"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := utils.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

// ChatMessage rows are append-only.
type ChatMessage struct {
	ID            string        `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	ChatSessionID string        `gorm:"column:chat_session_id;type:varchar(50);not null;index:idx_chat_message_session_created,priority:1" json:"chatSessionId"`
	Role          enum.ChatRole `gorm:"column:role;type:varchar(20);not null" json:"role"`
	Content       string        `gorm:"column:content;type:text;not null" json:"content"`
	IsRfp         bool          `gorm:"column:is_rfp;not null;default:false" json:"isRfp"`
	CreatedAt     time.Time     `gorm:"column:created_at;type:timestamp;index:idx_chat_message_session_created,priority:2" json:"createdAt"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		// v7 ids sort by creation, so they order messages sharing a timestamp.
		m.ID = uuid.Must(uuid.NewV7()).String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.Now()
	}
	return nil
}
