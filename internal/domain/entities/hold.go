package entities

import (
	"time"

	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/money"
)

// HoldStatus is the lifecycle state of a hold. Transitions are one-shot:
// active may become captured or released, and terminal states only accept
// their own repeat.
type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "active"
	HoldStatusCaptured HoldStatus = "captured"
	HoldStatusReleased HoldStatus = "released"
)

// Hold reserves funds on a wallet. The funds are withdrawn from the balance
// at creation time by the debit entry referenced in LedgerEntryID; capture
// keeps them withdrawn, release returns them with a compensating credit.
type Hold struct {
	ID             int64
	WalletID       int64
	Amount         money.Money
	Status         HoldStatus
	IdempotencyKey string
	Reference      string
	Details        Details
	LedgerEntryID  int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Capture marks the hold captured. Capturing a captured hold is a no-op;
// a released hold cannot be captured.
func (h *Hold) Capture() error {
	switch h.Status {
	case HoldStatusCaptured:
		return nil
	case HoldStatusReleased:
		return apperrors.New(apperrors.KindConflict, "Hold already released")
	}
	h.Status = HoldStatusCaptured
	h.UpdatedAt = time.Now().UTC()
	return nil
}

// Release marks the hold released. Releasing a released hold is a no-op;
// a captured hold cannot be released.
func (h *Hold) Release() error {
	switch h.Status {
	case HoldStatusReleased:
		return nil
	case HoldStatusCaptured:
		return apperrors.New(apperrors.KindConflict, "Hold already captured")
	}
	h.Status = HoldStatusReleased
	h.UpdatedAt = time.Now().UTC()
	return nil
}
