package logging

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"neuropay/internal/models"
)

const retentionDays = 90

// StartCleanup runs a daily goroutine deleting event_logs past retention.
// Payment audit rows are kept longer than ordinary app logs would be.
func StartCleanup(db *gorm.DB, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retentionDays)
				result := db.Where("timestamp < ?", cutoff).Delete(&models.EventLog{})
				if result.Error != nil {
					slog.Error("event log cleanup failed", "error", result.Error)
				} else if result.RowsAffected > 0 {
					slog.Info("event log cleanup completed", "deleted", result.RowsAffected)
				}
			case <-done:
				return
			}
		}
	}()
}
