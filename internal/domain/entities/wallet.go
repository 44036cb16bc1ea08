// Package entities holds the persistent domain types for the wallet ledger
// and the payment orchestrator. Entities validate their own state
// transitions; storage and transport concerns live elsewhere.
package entities

import (
	"time"

	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/money"
)

// WalletStatus is the operational status of a wallet.
type WalletStatus string

const (
	WalletStatusActive WalletStatus = "active"
	WalletStatusFrozen WalletStatus = "frozen"
)

// Wallet is a per-currency balance owned by a user. The stored balance is
// authoritative and must equal the sum of credits minus debits over the
// wallet's ledger entries at any quiescent moment.
type Wallet struct {
	ID          int64
	OwnerUserID int64
	Currency    money.Currency
	Status      WalletStatus
	Balance     money.Money
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewWallet creates an active zero-balance wallet.
func NewWallet(ownerUserID int64, currency money.Currency) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		OwnerUserID: ownerUserID,
		Currency:    currency,
		Status:      WalletStatusActive,
		Balance:     money.Zero(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Credit adds amount to the balance.
func (w *Wallet) Credit(amount money.Money) {
	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = time.Now().UTC()
}

// Debit subtracts amount from the balance. The balance never goes negative.
func (w *Wallet) Debit(amount money.Money) error {
	next, err := w.Balance.Sub(amount)
	if err != nil {
		return apperrors.ErrInsufficientFunds
	}
	w.Balance = next
	w.UpdatedAt = time.Now().UTC()
	return nil
}
