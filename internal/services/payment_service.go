package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"neuropay/internal/config"
	"neuropay/internal/models"
	"neuropay/internal/robokassa"
)

// ProfileCache is the write-through cache the bot reads profiles from.
type ProfileCache interface {
	Put(ctx context.Context, p *models.Profile) error
}

// ConfirmRequest carries the already-parsed result-callback parameters.
type ConfirmRequest struct {
	InvID     int64
	OutSum    string
	Email     string
	Signature string
}

// PaymentService performs the paid→active transition for one provider
// callback: verify, mark paid, activate the plan, re-arm recurring retries,
// credit the referral and refresh the cache.
type PaymentService struct {
	db    *gorm.DB
	rk    *robokassa.Client
	cache ProfileCache
	cfg   *config.Config
}

func NewPaymentService(db *gorm.DB, rk *robokassa.Client, cache ProfileCache, cfg *config.Config) *PaymentService {
	return &PaymentService{db: db, rk: rk, cache: cache, cfg: cfg}
}

// Confirm processes one webhook invocation and returns the provider
// acknowledgement body ("OK<InvId>"). The signature is checked before any
// row is touched, and the whole transition runs in a single transaction
// locked on the invoice row, so duplicate or concurrent callbacks for the
// same invoice settle exactly once: a repeat sees is_paid already set and
// short-circuits to the same acknowledgement without further mutation.
func (s *PaymentService) Confirm(ctx context.Context, req ConfirmRequest) (string, error) {
	if !s.rk.VerifyResult(req.InvID, req.OutSum, req.Signature) {
		return "", ErrSignatureMismatch
	}

	var (
		profile     *models.Profile
		alreadyPaid bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := lockForUpdate(tx).First(&inv, req.InvID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return fmt.Errorf("load invoice %d: %w", req.InvID, err)
		}

		if inv.IsPaid {
			alreadyPaid = true
			return nil
		}
		if inv.ProfileID == nil || inv.TariffID == nil {
			return ErrInvoiceUnresolved
		}

		sig := strings.ToLower(req.Signature)
		inv.IsPaid = true
		inv.HashTransaction = &sig
		if err := tx.Save(&inv).Error; err != nil {
			return fmt.Errorf("mark invoice %d paid: %w", inv.ID, err)
		}

		var p models.Profile
		if err := tx.First(&p, "id = ?", *inv.ProfileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return fmt.Errorf("load profile: %w", err)
		}

		var tariff models.Tariff
		if err := tx.First(&tariff, *inv.TariffID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTariffNotFound
			}
			return fmt.Errorf("load tariff: %w", err)
		}

		s.checkAmount(req, &tariff, inv.Provider)

		if req.Email != "" {
			email := strings.ToLower(req.Email)
			if p.Email == nil || *p.Email != email {
				p.Email = &email
			}
		}

		tariff.Apply(&p, time.Now().UTC())
		p.Recurring = s.cfg.RecurringDefault
		if err := tx.Save(&p).Error; err != nil {
			return fmt.Errorf("activate subscription for %s: %w", p.ID, err)
		}

		if err := resetDebitAttempts(tx, p.ID, inv.Provider); err != nil {
			return err
		}

		if p.RefLinkID != nil {
			if err := creditPurchase(tx, *p.RefLinkID, inv.Provider, tariff.Price(inv.Provider)); err != nil {
				return err
			}
		}

		p.Tariff = &tariff
		profile = &p
		return nil
	})
	if err != nil {
		return "", err
	}

	ack := "OK" + strconv.FormatInt(req.InvID, 10)
	if alreadyPaid {
		slog.Info("invoice already settled, acknowledging", "invoice_id", req.InvID)
		return ack, nil
	}

	// The cache is best-effort: entitlement lives in the store, so a failed
	// refresh is logged and the provider still gets its acknowledgement.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()
	if err := s.cache.Put(cctx, profile); err != nil {
		slog.Warn("profile cache refresh failed", "tgid", profile.TGID, "invoice_id", req.InvID, "error", err.Error())
	}

	slog.Info("payment confirmed",
		"invoice_id", req.InvID,
		"tgid", profile.TGID,
		"tariff_id", derefInt64(profile.TariffID),
	)
	return ack, nil
}

// checkAmount compares OutSum with the plan price. The signature already
// binds the amount, so a mismatch means the invoice was issued with a price
// the tariff table no longer agrees with; diagnostic only.
func (s *PaymentService) checkAmount(req ConfirmRequest, tariff *models.Tariff, provider string) {
	paid, err := decimal.NewFromString(req.OutSum)
	if err != nil {
		slog.Warn("unparseable OutSum on signed callback", "invoice_id", req.InvID, "out_sum", req.OutSum)
		return
	}
	want := decimal.NewFromInt(tariff.Price(provider))
	if !paid.Equal(want) {
		slog.Warn("paid amount differs from tariff price",
			"invoice_id", req.InvID,
			"out_sum", req.OutSum,
			"tariff_price", want.String(),
		)
	}
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
