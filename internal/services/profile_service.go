package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"neuropay/internal/models"
)

type ProfileService struct {
	db           *gorm.DB
	freeTariffID int64
}

func NewProfileService(db *gorm.DB, freeTariffID int64) *ProfileService {
	return &ProfileService{db: db, freeTariffID: freeTariffID}
}

func (s *ProfileService) GetByTGID(ctx context.Context, tgid int64) (*models.Profile, error) {
	var p models.Profile
	err := s.db.WithContext(ctx).Preload("Tariff").Where("tgid = ?", tgid).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile by tgid %d: %w", tgid, err)
	}
	return &p, nil
}

// ReplenishDailyLimits refills quota counters from the plan allowances for
// every profile whose paid period is still running. Returns how many
// profiles were touched.
func (s *ProfileService) ReplenishDailyLimits(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	var profiles []models.Profile
	err := s.db.WithContext(ctx).
		Preload("Tariff").
		Where("tariff_id IS NOT NULL AND tariff_id <> ? AND date_subscription > ?", s.freeTariffID, now).
		Find(&profiles).Error
	if err != nil {
		return 0, fmt.Errorf("load active profiles: %w", err)
	}

	touched := 0
	for i := range profiles {
		p := &profiles[i]
		if p.Tariff == nil {
			continue
		}
		p.Tariff.Replenish(p)
		if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error; err != nil {
			return touched, fmt.Errorf("replenish profile %s: %w", p.ID, err)
		}
		touched++
	}
	return touched, nil
}

// Expired returns paid profiles whose subscription period has run out. The
// renewal sweep decides per profile whether to re-bill or downgrade.
func (s *ProfileService) Expired(ctx context.Context) ([]models.Profile, error) {
	now := time.Now().UTC()
	var profiles []models.Profile
	err := s.db.WithContext(ctx).
		Preload("Tariff").
		Where("tariff_id IS NOT NULL AND tariff_id <> ? AND date_subscription IS NOT NULL AND date_subscription <= ?", s.freeTariffID, now).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("load expired profiles: %w", err)
	}
	return profiles, nil
}

// DowngradeToFree puts a profile back on the free plan: free-tier quotas,
// no expiry, auto-renew off.
func (s *ProfileService) DowngradeToFree(ctx context.Context, p *models.Profile) error {
	var free models.Tariff
	err := s.db.WithContext(ctx).First(&free, s.freeTariffID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTariffNotFound
	}
	if err != nil {
		return fmt.Errorf("load free tariff: %w", err)
	}

	free.Apply(p, time.Now().UTC())
	p.Recurring = false
	p.IsPromo = false
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error; err != nil {
		return fmt.Errorf("downgrade profile %s: %w", p.ID, err)
	}
	p.Tariff = &free
	return nil
}
