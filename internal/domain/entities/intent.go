package entities

import (
	"time"

	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/money"
)

// IntentStatus is the state of a payment intent.
//
// pending may move to confirmed, declined, review or canceled. confirmed,
// declined and canceled are terminal. review is soft-terminal: confirm
// replays return the record unchanged, but cancel is still allowed.
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusConfirmed IntentStatus = "confirmed"
	IntentStatusDeclined  IntentStatus = "declined"
	IntentStatusReview    IntentStatus = "review"
	IntentStatusCanceled  IntentStatus = "canceled"
)

// PaymentIntent is a client's recorded desire to move money. Amount and
// currency are immutable after creation. HoldID references a hold on the
// wallet service and is opaque to the orchestrator.
type PaymentIntent struct {
	ID        int64
	UserID    int64
	WalletID  int64
	Amount    money.Money
	Currency  money.Currency
	Status    IntentStatus
	HoldID    *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPaymentIntent creates a pending intent.
func NewPaymentIntent(userID, walletID int64, amount money.Money, currency money.Currency) *PaymentIntent {
	now := time.Now().UTC()
	return &PaymentIntent{
		UserID:    userID,
		WalletID:  walletID,
		Amount:    amount,
		Currency:  currency,
		Status:    IntentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AttachHold records the wallet-service hold funding this intent.
func (p *PaymentIntent) AttachHold(holdID int64) {
	p.HoldID = &holdID
	p.UpdatedAt = time.Now().UTC()
}

// SetStatus moves the intent to the given status.
func (p *PaymentIntent) SetStatus(status IntentStatus) {
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
}

// CanCancel reports whether cancel is a legal transition from the current
// status. Repeat cancels are tolerated by the caller, not here.
func (p *PaymentIntent) CanCancel() error {
	switch p.Status {
	case IntentStatusPending, IntentStatusReview:
		return nil
	case IntentStatusCanceled:
		return nil
	default:
		return apperrors.Newf(apperrors.KindConflict, "Intent cannot be canceled from status %s", p.Status)
	}
}
