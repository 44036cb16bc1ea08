// Package ports declares the interfaces the application layer depends on.
// Implementations live under internal/infrastructure.
package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

// WalletRepository persists wallets. Lookup methods scope by owner so that
// foreign wallets are indistinguishable from missing ones.
type WalletRepository interface {
	// Create inserts the wallet and fills in ID and timestamps.
	Create(ctx context.Context, w *entities.Wallet) error
	// Get loads a wallet owned by ownerUserID, or apperrors.ErrWalletNotFound.
	Get(ctx context.Context, id, ownerUserID int64) (*entities.Wallet, error)
	// GetForUpdate is Get with a row-level exclusive lock. Must run inside
	// a unit-of-work transaction.
	GetForUpdate(ctx context.Context, id, ownerUserID int64) (*entities.Wallet, error)
	// FindByOwnerAndCurrency returns the first wallet for (owner, currency),
	// or apperrors.ErrWalletNotFound.
	FindByOwnerAndCurrency(ctx context.Context, ownerUserID int64, currency money.Currency) (*entities.Wallet, error)
	// ListByOwner returns all wallets of a user, oldest first.
	ListByOwner(ctx context.Context, ownerUserID int64) ([]*entities.Wallet, error)
	// UpdateBalance persists the wallet's balance and updated_at.
	UpdateBalance(ctx context.Context, w *entities.Wallet) error
}

// LedgerRepository persists append-only ledger entries.
type LedgerRepository interface {
	// Insert appends an entry and fills in ID and CreatedAt.
	Insert(ctx context.Context, e *entities.LedgerEntry) error
	// FindByIdempotencyKey returns a wallet's entry with the given key, or
	// nil when no such entry exists.
	FindByIdempotencyKey(ctx context.Context, walletID int64, key string) (*entities.LedgerEntry, error)
	// ListByWallet returns entries descending by id, at most limit rows,
	// restricted to ids strictly below beforeID when beforeID > 0.
	ListByWallet(ctx context.Context, walletID int64, beforeID int64, limit int) ([]*entities.LedgerEntry, error)
	// Summarize returns sum(credits) - sum(debits) and the entry count for
	// a wallet. The sum is signed: a drifted ledger can net below zero.
	Summarize(ctx context.Context, walletID int64) (decimal.Decimal, int64, error)
}

// HoldRepository persists holds.
type HoldRepository interface {
	Insert(ctx context.Context, h *entities.Hold) error
	// FindByIdempotencyKey returns the wallet's hold with the given key, or
	// nil when absent. Locks the row when forUpdate is set.
	FindByIdempotencyKey(ctx context.Context, walletID int64, key string, forUpdate bool) (*entities.Hold, error)
	// GetForUpdate loads a hold on a wallet owned by ownerUserID with a row
	// lock, or apperrors.ErrHoldNotFound.
	GetForUpdate(ctx context.Context, walletID, holdID, ownerUserID int64) (*entities.Hold, error)
	UpdateStatus(ctx context.Context, h *entities.Hold) error
}

// TransferRepository persists transfers. Idempotency keys are globally
// unique across users.
type TransferRepository interface {
	Insert(ctx context.Context, t *entities.Transfer) error
	// FindByIdempotencyKey returns the transfer with the given key across
	// all users, or nil when absent.
	FindByIdempotencyKey(ctx context.Context, key string) (*entities.Transfer, error)
	Update(ctx context.Context, t *entities.Transfer) error
}

// OutboxRepository appends events inside the surrounding transaction.
type OutboxRepository interface {
	Append(ctx context.Context, eventType string, payload map[string]any) error
}

// IntentRepository persists payment intents.
type IntentRepository interface {
	Create(ctx context.Context, p *entities.PaymentIntent) error
	// Get loads an intent owned by userID, or apperrors.ErrIntentNotFound.
	Get(ctx context.Context, id, userID int64) (*entities.PaymentIntent, error)
	Update(ctx context.Context, p *entities.PaymentIntent) error
}
