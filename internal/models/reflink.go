package models

import (
	"time"

	"github.com/google/uuid"
)

// RefLink is a trackable referral URL. All counters are non-negative and
// increment-only.
type RefLink struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:255" json:"name"`
	Link          string    `gorm:"size:255;not null;uniqueIndex" json:"link"`
	OwnerID       uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	CountClicks   int64     `gorm:"not null;default:0" json:"count_clicks"`
	CountNewUsers int64     `gorm:"not null;default:0" json:"count_new_users"`
	CountBuys     int64     `gorm:"not null;default:0" json:"count_buys"`
	SumBuysRub    int64     `gorm:"not null;default:0" json:"sum_buys_rub"`
	SumBuysStars  int64     `gorm:"not null;default:0" json:"sum_buys_stars"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
