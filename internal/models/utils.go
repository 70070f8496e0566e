package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AttachmentMeta describes one file received with a vendor reply.
type AttachmentMeta struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	StorageKey  string `json:"storageKey,omitempty"`
}

// AttachmentList is stored as a JSON array column.
type AttachmentList []AttachmentMeta

// Value implements the driver.Valuer interface for AttachmentList
func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for AttachmentList
func (a *AttachmentList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = AttachmentList{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported attachment list type %T", value)
	}
}
