// Package scheduler owns the periodic subscription jobs: the midnight quota
// replenishment and the hourly expiry sweep that either re-bills recurring
// profiles or drops them to the free tier.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"neuropay/internal/config"
	"neuropay/internal/models"
	"neuropay/internal/robokassa"
	"neuropay/internal/services"
)

type Scheduler struct {
	cron     *cron.Cron
	profiles *services.ProfileService
	invoices *services.InvoiceService
	rk       *robokassa.Client
	cache    services.ProfileCache
	cfg      *config.Config
}

func New(
	profiles *services.ProfileService,
	invoices *services.InvoiceService,
	rk *robokassa.Client,
	cache services.ProfileCache,
	cfg *config.Config,
) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		profiles: profiles,
		invoices: invoices,
		rk:       rk,
		cache:    cache,
		cfg:      cfg,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 * * *", s.replenishDailyLimits); err != nil {
		return fmt.Errorf("add daily limits job: %w", err)
	}
	if _, err := s.cron.AddFunc("30 * * * *", s.sweepExpired); err != nil {
		return fmt.Errorf("add expiry sweep job: %w", err)
	}

	s.cron.Start()
	slog.Info("cron scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("cron scheduler stopped")
}

func (s *Scheduler) replenishDailyLimits() {
	ctx := context.Background()
	touched, err := s.profiles.ReplenishDailyLimits(ctx)
	if err != nil {
		slog.Error("daily limit replenishment failed", "error", err)
		return
	}
	slog.Info("daily limits replenished", "profiles", touched)
}

// sweepExpired walks profiles whose paid period ran out. Recurring profiles
// get a renewal attempt against their mother invoice; everyone else goes
// back to the free tier. The renewal itself settles later through /result,
// which also zeroes the attempt counter.
func (s *Scheduler) sweepExpired() {
	ctx := context.Background()
	expired, err := s.profiles.Expired(ctx)
	if err != nil {
		slog.Error("expiry sweep failed", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	renewals, downgrades := 0, 0
	for i := range expired {
		p := &expired[i]
		if p.Recurring && s.tryRenewal(ctx, p) {
			renewals++
			continue
		}
		if err := s.downgrade(ctx, p); err != nil {
			slog.Error("downgrade failed", "tgid", p.TGID, "error", err)
			continue
		}
		downgrades++
	}
	slog.Info("expiry sweep completed", "expired", len(expired), "renewals", renewals, "downgrades", downgrades)
}

// tryRenewal fires a recurring debit for the profile. Returns false when no
// further attempt should be made and the profile must be downgraded.
func (s *Scheduler) tryRenewal(ctx context.Context, p *models.Profile) bool {
	mother, err := s.invoices.MotherInvoice(ctx, p.ID, models.ProviderRobokassa)
	if err != nil {
		if !errors.Is(err, services.ErrMotherNotFound) {
			slog.Error("mother invoice lookup failed", "tgid", p.TGID, "error", err)
		}
		return false
	}
	if mother.ChildAttemptDebit >= s.cfg.RecurringMaxAttempts {
		slog.Info("recurring attempts exhausted", "tgid", p.TGID, "invoice_id", mother.ID)
		return false
	}
	if mother.TariffID == nil || mother.Tariff == nil {
		return false
	}

	child, err := s.invoices.Create(ctx, p.ID, *mother.TariffID, mother.Provider, false)
	if err != nil {
		slog.Error("child invoice creation failed", "tgid", p.TGID, "error", err)
		return false
	}
	// Bump before charging: a crash in between under-charges at worst.
	if err := s.invoices.IncrementDebitAttempts(ctx, mother.ID); err != nil {
		slog.Error("debit attempt bump failed", "tgid", p.TGID, "error", err)
		return false
	}

	err = s.rk.RecurringCharge(ctx, p.TGID, child.ID, mother.Tariff.PriceRub, mother.ID, mother.Tariff.Name)
	if err != nil {
		slog.Error("recurring charge request failed", "tgid", p.TGID, "invoice_id", child.ID, "error", err)
		// Keep the profile for the next sweep; the attempt counter caps it.
		return true
	}

	slog.Info("recurring charge requested", "tgid", p.TGID, "invoice_id", child.ID, "mother_id", mother.ID)
	return true
}

func (s *Scheduler) downgrade(ctx context.Context, p *models.Profile) error {
	if err := s.profiles.DowngradeToFree(ctx, p); err != nil {
		return err
	}
	if err := s.cache.Put(ctx, p); err != nil {
		slog.Warn("profile cache refresh failed after downgrade", "tgid", p.TGID, "error", err.Error())
	}
	return nil
}
