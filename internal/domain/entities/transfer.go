package entities

import (
	"time"

	"github.com/meridianpay/meridian/internal/domain/money"
)

// TransferStatus is the lifecycle state of a transfer.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
	TransferStatusReversed  TransferStatus = "reversed"
)

// Transfer is an atomic move of funds between two wallets of the same user
// and currency. A completed transfer points at exactly two ledger entries:
// one debit on the source and one credit on the target, equal amounts.
type Transfer struct {
	ID                int64
	UserID            int64
	SourceWalletID    int64
	TargetWalletID    int64
	Amount            money.Money
	Currency          money.Currency
	Status            TransferStatus
	IdempotencyKey    string
	FailureReason     string
	ExternalReference string
	DebitEntryID      int64 // zero until completed
	CreditEntryID     int64 // zero until completed
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Complete records the two funding ledger entries and marks the transfer
// completed.
func (t *Transfer) Complete(debitEntryID, creditEntryID int64) {
	t.Status = TransferStatusCompleted
	t.DebitEntryID = debitEntryID
	t.CreditEntryID = creditEntryID
	t.UpdatedAt = time.Now().UTC()
}

// Fail marks the transfer failed with a client-visible reason.
func (t *Transfer) Fail(reason string) {
	t.Status = TransferStatusFailed
	t.FailureReason = reason
	t.UpdatedAt = time.Now().UTC()
}
