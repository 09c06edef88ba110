package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuropay/internal/models"
)

func TestMotherInvoiceLookup(t *testing.T) {
	db := openTestDB(t)
	svc := NewInvoiceService(db)
	profile := seedProfile(t, db, 400, nil)

	// Unpaid mother does not anchor a chain yet.
	seedInvoice(t, db, 600, profile.ID, premiumTariffID, func(inv *models.Invoice) {
		inv.IsMother = true
	})
	_, err := svc.MotherInvoice(context.Background(), profile.ID, models.ProviderRobokassa)
	require.ErrorIs(t, err, ErrMotherNotFound)

	seedInvoice(t, db, 601, profile.ID, premiumTariffID, func(inv *models.Invoice) {
		inv.IsMother = true
		inv.IsPaid = true
	})

	mother, err := svc.MotherInvoice(context.Background(), profile.ID, models.ProviderRobokassa)
	require.NoError(t, err)
	assert.Equal(t, int64(601), mother.ID)
	require.NotNil(t, mother.Tariff)
	assert.Equal(t, premiumTariffID, mother.Tariff.ID)

	// Provider is part of the chain identity.
	_, err = svc.MotherInvoice(context.Background(), profile.ID, models.ProviderStars)
	require.ErrorIs(t, err, ErrMotherNotFound)
}

func TestCreateChildInvoiceAndAttemptCounter(t *testing.T) {
	db := openTestDB(t)
	svc := NewInvoiceService(db)
	profile := seedProfile(t, db, 401, nil)
	mother := seedInvoice(t, db, 602, profile.ID, premiumTariffID, func(inv *models.Invoice) {
		inv.IsMother = true
		inv.IsPaid = true
	})

	child, err := svc.Create(context.Background(), profile.ID, premiumTariffID, models.ProviderRobokassa, false)
	require.NoError(t, err)
	assert.False(t, child.IsPaid)
	assert.False(t, child.IsMother)
	require.NotNil(t, child.ProfileID)
	assert.Equal(t, profile.ID, *child.ProfileID)

	require.NoError(t, svc.IncrementDebitAttempts(context.Background(), mother.ID))
	require.NoError(t, svc.IncrementDebitAttempts(context.Background(), mother.ID))

	got, err := svc.GetWithRelations(context.Background(), mother.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ChildAttemptDebit)
	require.NotNil(t, got.Profile)
	assert.Equal(t, int64(401), got.Profile.TGID)
}

func TestGetWithRelationsNotFound(t *testing.T) {
	db := openTestDB(t)
	svc := NewInvoiceService(db)

	_, err := svc.GetWithRelations(context.Background(), 12345)
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}
