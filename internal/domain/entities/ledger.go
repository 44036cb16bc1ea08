package entities

import (
	"time"

	"github.com/meridianpay/meridian/internal/domain/money"
)

// EntryType is the direction of a ledger entry.
type EntryType string

const (
	EntryTypeCredit EntryType = "credit"
	EntryTypeDebit  EntryType = "debit"
)

// Details is the opaque JSON blob attached to ledger entries and holds.
// The ledger stores and returns it without interpreting it; derived
// entries carry a "reason" tag for debuggability.
type Details map[string]any

// LedgerEntry is one append-only line of a wallet's ledger. Entries are
// never updated or deleted once inserted. (wallet_id, idempotency_key) is
// unique when a key is present.
type LedgerEntry struct {
	ID             int64
	WalletID       int64
	Type           EntryType
	Amount         money.Money
	IdempotencyKey string // empty means no key
	Details        Details
	CreatedAt      time.Time
}
