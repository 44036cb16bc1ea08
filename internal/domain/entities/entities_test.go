package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/money"
)

func TestWalletDebit(t *testing.T) {
	w := NewWallet(1, "USD")
	w.Credit(money.MustParse("100.00"))

	require.NoError(t, w.Debit(money.MustParse("40.00")))
	assert.Equal(t, "60.00", w.Balance.String())

	err := w.Debit(money.MustParse("60.01"))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.Equal(t, "60.00", w.Balance.String(), "failed debit must not change the balance")
}

func TestHoldTransitions(t *testing.T) {
	t.Run("capture is one-shot and repeatable", func(t *testing.T) {
		h := &Hold{Status: HoldStatusActive}
		require.NoError(t, h.Capture())
		assert.Equal(t, HoldStatusCaptured, h.Status)
		require.NoError(t, h.Capture())
	})

	t.Run("released hold cannot be captured", func(t *testing.T) {
		h := &Hold{Status: HoldStatusReleased}
		err := h.Capture()
		require.Error(t, err)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	})

	t.Run("release is one-shot and repeatable", func(t *testing.T) {
		h := &Hold{Status: HoldStatusActive}
		require.NoError(t, h.Release())
		assert.Equal(t, HoldStatusReleased, h.Status)
		require.NoError(t, h.Release())
	})

	t.Run("captured hold cannot be released", func(t *testing.T) {
		h := &Hold{Status: HoldStatusCaptured}
		err := h.Release()
		require.Error(t, err)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	})
}

func TestTransferLifecycle(t *testing.T) {
	tr := &Transfer{Status: TransferStatusPending}

	tr.Complete(11, 12)
	assert.Equal(t, TransferStatusCompleted, tr.Status)
	assert.Equal(t, int64(11), tr.DebitEntryID)
	assert.Equal(t, int64(12), tr.CreditEntryID)

	failed := &Transfer{Status: TransferStatusPending}
	failed.Fail("Insufficient funds")
	assert.Equal(t, TransferStatusFailed, failed.Status)
	assert.Equal(t, "Insufficient funds", failed.FailureReason)
}

func TestTransferPayload(t *testing.T) {
	tr := &Transfer{
		ID:             7,
		UserID:         1,
		SourceWalletID: 2,
		TargetWalletID: 3,
		Amount:         money.MustParse("25.00"),
		Currency:       "EUR",
		Status:         TransferStatusCompleted,
		IdempotencyKey: "t1",
	}

	payload := TransferPayload(tr)
	assert.Equal(t, "25.00", payload["amount"])
	assert.Equal(t, "completed", payload["status"])
	assert.NotContains(t, payload, "failure_reason")

	tr.Fail("Insufficient funds")
	payload = TransferPayload(tr)
	assert.Equal(t, "Insufficient funds", payload["failure_reason"])
}

func TestIntentCanCancel(t *testing.T) {
	for _, status := range []IntentStatus{IntentStatusPending, IntentStatusReview, IntentStatusCanceled} {
		p := &PaymentIntent{Status: status}
		assert.NoError(t, p.CanCancel(), "status %s", status)
	}
	for _, status := range []IntentStatus{IntentStatusConfirmed, IntentStatusDeclined} {
		p := &PaymentIntent{Status: status}
		err := p.CanCancel()
		require.Error(t, err, "status %s", status)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	}
}
