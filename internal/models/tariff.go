package models

import (
	"time"
)

// Tariff codes as stored in the tariff table.
const (
	TariffCodeFree    = "free"
	TariffCodePremium = "premium"
	TariffCodePromo   = "promo"
)

// Unlimited is the sentinel for a quota that is never decremented to zero.
const Unlimited = -1

// Tariff is a subscription plan: per-model daily allowances, period length
// and price in both supported currencies.
type Tariff struct {
	ID                  int64     `gorm:"primaryKey" json:"id"`
	Name                string    `gorm:"size:100;not null" json:"name"`
	Code                string    `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Description         *string   `gorm:"type:text" json:"description,omitempty"`
	GPT4oDailyLimit     int       `gorm:"not null;default:0" json:"gpt4o_daily_limit"`
	GPT4oMiniDailyLimit int       `gorm:"not null;default:0" json:"gpt4o_mini_daily_limit"`
	MJ60DailyLimit      int       `gorm:"not null;default:0" json:"mj_6_0_daily_limit"`
	MJ52DailyLimit      int       `gorm:"not null;default:0" json:"mj_5_2_daily_limit"`
	Days                int       `gorm:"not null;default:30" json:"days"`
	PriceRub            int64     `gorm:"not null;default:0" json:"price_rub"`
	PriceStars          int64     `gorm:"not null;default:0" json:"price_stars"`
	IsActive            bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Price returns the plan price in the currency the given provider settles in.
func (t *Tariff) Price(provider string) int64 {
	if provider == ProviderStars {
		return t.PriceStars
	}
	return t.PriceRub
}

// Apply activates this plan on a profile: every quota counter is overwritten
// with the plan allowance and the expiry is recomputed from the plan's own
// period length. This is the only place activation semantics live; the
// confirmation flow, the daily replenishment job and the expiry sweep all go
// through it.
func (t *Tariff) Apply(p *Profile, now time.Time) {
	p.TariffID = &t.ID
	p.GPT4oDailyLimit = t.GPT4oDailyLimit
	p.GPT4oMiniDailyLimit = t.GPT4oMiniDailyLimit
	p.MJ60DailyLimit = t.MJ60DailyLimit
	p.MJ52DailyLimit = t.MJ52DailyLimit
	p.IsPromo = t.Code == TariffCodePromo

	if t.Code == TariffCodeFree {
		p.DateSubscription = nil
		return
	}
	expiry := now.Add(time.Duration(t.Days) * 24 * time.Hour)
	p.DateSubscription = &expiry
}

// Replenish refills daily counters without touching the expiry. Used by the
// midnight job for profiles whose subscription is still running.
func (t *Tariff) Replenish(p *Profile) {
	p.GPT4oDailyLimit = t.GPT4oDailyLimit
	p.GPT4oMiniDailyLimit = t.GPT4oMiniDailyLimit
	p.MJ60DailyLimit = t.MJ60DailyLimit
	p.MJ52DailyLimit = t.MJ52DailyLimit
}
