package walletsvc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

// HoldInput carries a hold creation request. The idempotency key is
// mandatory: holds exist to be retried safely.
type HoldInput struct {
	WalletID       int64
	Amount         money.Money
	IdempotencyKey string
	Reference      string
	Details        entities.Details
}

// CreateHold reserves funds by debiting the wallet immediately. The hold
// row and its funding debit entry share the client's idempotency key, so a
// retry returns the existing hold without touching the balance.
func (s *Service) CreateHold(ctx context.Context, userID int64, in HoldInput) (*entities.Hold, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.New(apperrors.KindValidation, "Amount must be positive")
	}
	if in.IdempotencyKey == "" {
		return nil, apperrors.New(apperrors.KindValidation, "Idempotency key is required")
	}

	var out *entities.Hold
	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		w, err := s.wallets.GetForUpdate(ctx, in.WalletID, userID)
		if err != nil {
			return err
		}

		existing, err := s.holds.FindByIdempotencyKey(ctx, w.ID, in.IdempotencyKey, true)
		if err != nil {
			return err
		}
		if existing != nil {
			idempotencyReplayTotal.WithLabelValues(w.Currency.String(), "hold").Inc()
			out = existing
			return nil
		}

		details := entities.Details{"type": "hold"}
		for k, v := range in.Details {
			details[k] = v
		}
		if in.Reference != "" {
			details["reference"] = in.Reference
		}

		entry, _, err := s.applyLocked(ctx, w, entities.EntryTypeDebit, in.Amount, in.IdempotencyKey, details)
		if err != nil {
			return err
		}

		h := &entities.Hold{
			WalletID:       w.ID,
			Amount:         in.Amount,
			Status:         entities.HoldStatusActive,
			IdempotencyKey: in.IdempotencyKey,
			Reference:      in.Reference,
			Details:        in.Details,
			LedgerEntryID:  entry.ID,
		}
		if err := s.holds.Insert(ctx, h); err != nil {
			return err
		}

		s.log.InfoContext(ctx, "hold created",
			slog.Int64("wallet_id", w.ID),
			slog.Int64("hold_id", h.ID),
			slog.String("amount", in.Amount.String()),
		)
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReleaseHold returns held funds with a compensating credit and marks the
// hold released. Releasing a released hold is a no-op; a captured hold
// cannot be released. Without a client key the credit entry derives its
// idempotency key from the hold id, so a crashed release cannot credit
// twice on retry.
func (s *Service) ReleaseHold(ctx context.Context, userID, walletID, holdID int64, idempotencyKey string) (*entities.Hold, error) {
	var out *entities.Hold
	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		w, err := s.wallets.GetForUpdate(ctx, walletID, userID)
		if err != nil {
			return err
		}
		h, err := s.holds.GetForUpdate(ctx, walletID, holdID, userID)
		if err != nil {
			return err
		}
		if h.Status == entities.HoldStatusReleased {
			out = h
			return nil
		}
		if err := h.Release(); err != nil {
			return err
		}

		key := idempotencyKey
		if key == "" {
			key = fmt.Sprintf("hold-release-%d", h.ID)
		}
		details := entities.Details{"type": "hold_release", "hold_id": h.ID}
		if _, _, err := s.applyLocked(ctx, w, entities.EntryTypeCredit, h.Amount, key, details); err != nil {
			return err
		}
		if err := s.holds.UpdateStatus(ctx, h); err != nil {
			return err
		}

		s.log.InfoContext(ctx, "hold released",
			slog.Int64("wallet_id", w.ID),
			slog.Int64("hold_id", h.ID),
		)
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CaptureHold finalizes a hold. The funds were withdrawn at creation time,
// so capture is a status flip with no ledger entry. Capturing a captured
// hold is a no-op; a released hold cannot be captured.
func (s *Service) CaptureHold(ctx context.Context, userID, walletID, holdID int64) (*entities.Hold, error) {
	var out *entities.Hold
	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		if _, err := s.wallets.GetForUpdate(ctx, walletID, userID); err != nil {
			return err
		}
		h, err := s.holds.GetForUpdate(ctx, walletID, holdID, userID)
		if err != nil {
			return err
		}
		if h.Status == entities.HoldStatusCaptured {
			out = h
			return nil
		}
		if err := h.Capture(); err != nil {
			return err
		}
		if err := s.holds.UpdateStatus(ctx, h); err != nil {
			return err
		}

		s.log.InfoContext(ctx, "hold captured",
			slog.Int64("wallet_id", walletID),
			slog.Int64("hold_id", h.ID),
		)
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
