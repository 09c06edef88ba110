package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"neuropay/internal/models"
)

type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// Create mints a new unpaid invoice. The renewal job uses it to produce
// child invoices debited against a mother.
func (s *InvoiceService) Create(ctx context.Context, profileID uuid.UUID, tariffID int64, provider string, isMother bool) (*models.Invoice, error) {
	inv := models.Invoice{
		ProfileID: &profileID,
		TariffID:  &tariffID,
		Provider:  provider,
		IsMother:  isMother,
	}
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &inv, nil
}

// GetWithRelations loads an invoice with its owning profile and target
// tariff joined.
func (s *InvoiceService) GetWithRelations(ctx context.Context, id int64) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Preload("Tariff").
		First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load invoice %d: %w", id, err)
	}
	return &inv, nil
}

// MotherInvoice locates the paid anchor of the recurring-billing chain for
// a profile and provider.
func (s *InvoiceService) MotherInvoice(ctx context.Context, profileID uuid.UUID, provider string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Tariff").
		Where("profile_id = ? AND provider = ? AND is_paid = ? AND is_mother = ?", profileID, provider, true, true).
		Order("id").
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMotherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load mother invoice: %w", err)
	}
	return &inv, nil
}

// IncrementDebitAttempts bumps the failed-attempt counter on a mother
// invoice before a recurring charge is fired, so a crash between the bump
// and the charge can only under-charge, never over-charge.
func (s *InvoiceService) IncrementDebitAttempts(ctx context.Context, invoiceID int64) error {
	err := s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		UpdateColumn("child_attempt_debit", gorm.Expr("child_attempt_debit + 1")).Error
	if err != nil {
		return fmt.Errorf("increment debit attempts: %w", err)
	}
	return nil
}

// resetDebitAttempts re-arms recurring retries after a successful charge by
// zeroing the counter on the profile's paid mother invoice. Runs inside the
// confirmation transaction.
func resetDebitAttempts(tx *gorm.DB, profileID uuid.UUID, provider string) error {
	err := tx.Model(&models.Invoice{}).
		Where("profile_id = ? AND provider = ? AND is_paid = ? AND is_mother = ?", profileID, provider, true, true).
		UpdateColumn("child_attempt_debit", 0).Error
	if err != nil {
		return fmt.Errorf("reset debit attempts: %w", err)
	}
	return nil
}

// lockForUpdate takes a row lock so concurrent duplicate callbacks for the
// same invoice serialize on the database. SQLite (tests) has a single
// writer already and rejects FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
