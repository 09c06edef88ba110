package services

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"neuropay/internal/models"
)

// creditPurchase accrues a completed payment against the referral link that
// produced the buyer: one purchase plus the plan price in the currency the
// provider settles in. A dangling link id is logged and ignored so a stale
// referral can never block a payment. Runs inside the confirmation
// transaction.
func creditPurchase(tx *gorm.DB, linkID int64, provider string, amount int64) error {
	updates := map[string]interface{}{
		"count_buys": gorm.Expr("count_buys + 1"),
	}
	if provider == models.ProviderStars {
		updates["sum_buys_stars"] = gorm.Expr("sum_buys_stars + ?", amount)
	} else {
		updates["sum_buys_rub"] = gorm.Expr("sum_buys_rub + ?", amount)
	}

	result := tx.Model(&models.RefLink{}).Where("id = ?", linkID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("credit referral link %d: %w", linkID, result.Error)
	}
	if result.RowsAffected == 0 {
		slog.Warn("referral link missing, purchase not credited", "ref_link_id", linkID)
	}
	return nil
}
