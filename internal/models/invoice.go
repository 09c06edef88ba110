package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment providers an invoice can settle through.
const (
	ProviderRobokassa = "robokassa"
	ProviderStars     = "stars"
)

// Invoice is one payment attempt. IsPaid only ever flips false→true. A
// mother invoice anchors a recurring-billing chain: renewal children are
// debited against it and ChildAttemptDebit counts failed attempts since the
// last successful charge.
type Invoice struct {
	ID                int64      `gorm:"primaryKey" json:"id"`
	ProfileID         *uuid.UUID `gorm:"type:uuid;index" json:"profile_id,omitempty"`
	TariffID          *int64     `gorm:"index" json:"tariff_id,omitempty"`
	Provider          string     `gorm:"size:20;not null" json:"provider"`
	IsPaid            bool       `gorm:"not null;default:false" json:"is_paid"`
	IsMother          bool       `gorm:"not null;default:false" json:"is_mother"`
	ChildAttemptDebit int        `gorm:"not null;default:0" json:"child_attempt_debit"`
	HashTransaction   *string    `gorm:"size:64" json:"hash_transaction,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:ProfileID" json:"-"`
	Tariff  *Tariff  `gorm:"foreignKey:TariffID" json:"-"`
}
