package services

import "errors"

var (
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrInvoiceUnresolved = errors.New("invoice has no profile or tariff attached")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrTariffNotFound    = errors.New("tariff not found")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrMotherNotFound    = errors.New("no paid mother invoice for profile")
)
