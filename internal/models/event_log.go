package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EventLog stores WARN+ records from the confirmation flow so failed or
// suspicious callbacks can be inspected after the fact.
type EventLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Level     string         `gorm:"size:10;not null;index" json:"level"`
	Message   string         `gorm:"type:text" json:"message"`
	InvoiceID int64          `gorm:"index" json:"invoice_id"`
	TGID      int64          `gorm:"index" json:"tgid"`
	Error     string         `gorm:"type:text" json:"error"`
	Extra     datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time      `json:"created_at"`
}
