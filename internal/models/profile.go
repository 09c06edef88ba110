package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a bot user and their entitlement state. Quota counters mirror
// the Tariff allowances and are decremented by the bot itself; this service
// only ever resets them through Tariff.Apply / Tariff.Replenish.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TGID      int64     `gorm:"column:tgid;not null;uniqueIndex" json:"tgid"`
	Username  *string   `gorm:"size:255" json:"username,omitempty"`
	FirstName *string   `gorm:"size:255" json:"first_name,omitempty"`
	LastName  *string   `gorm:"size:255" json:"last_name,omitempty"`
	Email     *string   `gorm:"size:255" json:"email,omitempty"`

	TariffID  *int64 `gorm:"index" json:"tariff_id,omitempty"`
	Recurring bool   `gorm:"not null;default:false" json:"recurring"`
	IsPromo   bool   `gorm:"not null;default:false" json:"is_promo"`
	// nil means no active paid period.
	DateSubscription *time.Time `gorm:"index" json:"date_subscription,omitempty"`

	GPT4oDailyLimit     int   `gorm:"not null;default:0" json:"gpt4o_daily_limit"`
	GPT4oMiniDailyLimit int   `gorm:"not null;default:30" json:"gpt4o_mini_daily_limit"`
	MJ60DailyLimit      int   `gorm:"not null;default:0" json:"mj_6_0_daily_limit"`
	MJ52DailyLimit      int   `gorm:"not null;default:0" json:"mj_5_2_daily_limit"`
	CountRequest        int64 `gorm:"not null;default:0" json:"count_request"`

	RefLinkID *int64 `gorm:"index" json:"ref_link_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tariff  *Tariff  `gorm:"foreignKey:TariffID" json:"-"`
	RefLink *RefLink `gorm:"foreignKey:RefLinkID" json:"-"`
}
