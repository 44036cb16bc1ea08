package walletsvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

// TransferInput carries an internal transfer request. Currency is optional
// redundancy: when present it must match the source wallet.
type TransferInput struct {
	SourceWalletID    int64
	TargetWalletID    int64
	Amount            money.Money
	Currency          money.Currency
	IdempotencyKey    string
	Description       string
	ExternalReference string
}

// TransferResult is the transfer plus post-transfer wallet snapshots.
type TransferResult struct {
	Transfer     *entities.Transfer
	SourceWallet *entities.Wallet
	TargetWallet *entities.Wallet
}

// Transfer atomically moves funds between two wallets of the same user.
// Both wallets are locked in ascending id order to rule out lock cycles
// with a concurrent opposite-direction transfer. A failed transfer is
// committed with its failure reason even though the call itself errors, so
// a replay of the same key reports the original failure.
func (s *Service) Transfer(ctx context.Context, userID int64, in TransferInput) (*TransferResult, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.New(apperrors.KindValidation, "Amount must be positive")
	}
	if in.IdempotencyKey == "" {
		return nil, apperrors.New(apperrors.KindValidation, "Idempotency key is required")
	}
	if in.SourceWalletID == in.TargetWalletID {
		return nil, apperrors.New(apperrors.KindValidation, "Source and target wallets must differ")
	}

	start := time.Now()
	var (
		res   *TransferResult
		opErr error
	)
	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		existing, err := s.transfers.FindByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			res, opErr = s.replayTransfer(ctx, userID, existing)
			return nil
		}

		src, tgt, err := s.lockTransferWallets(ctx, userID, in.SourceWalletID, in.TargetWalletID)
		if err != nil {
			return err
		}
		if err := validateTransfer(src, tgt, in); err != nil {
			return err
		}

		t := &entities.Transfer{
			UserID:            userID,
			SourceWalletID:    src.ID,
			TargetWalletID:    tgt.ID,
			Amount:            in.Amount,
			Currency:          src.Currency,
			Status:            entities.TransferStatusPending,
			IdempotencyKey:    in.IdempotencyKey,
			ExternalReference: in.ExternalReference,
		}
		if err := s.transfers.Insert(ctx, t); err != nil {
			return err
		}
		if err := s.outbox.Append(ctx, entities.EventTransferCreated, entities.TransferPayload(t)); err != nil {
			return err
		}
		transferCreatedTotal.WithLabelValues(t.Currency.String()).Inc()

		details := entities.Details{"type": "transfer", "transfer_id": t.ID}
		if in.Description != "" {
			details["description"] = in.Description
		}

		if err := src.Debit(in.Amount); err != nil {
			// Keep the failed transfer on record: the transaction commits
			// with the failure while the call itself reports it.
			insufficientFundsTotal.WithLabelValues(src.Currency.String()).Inc()
			t.Fail(apperrors.MessageOf(err))
			if uerr := s.transfers.Update(ctx, t); uerr != nil {
				return uerr
			}
			if uerr := s.outbox.Append(ctx, entities.EventTransferFailed, entities.TransferPayload(t)); uerr != nil {
				return uerr
			}
			transferFailedTotal.WithLabelValues(t.Currency.String(), "insufficient_funds").Inc()
			s.log.WarnContext(ctx, "transfer failed",
				slog.Int64("transfer_id", t.ID),
				slog.String("reason", t.FailureReason),
			)
			opErr = err
			return nil
		}

		debitEntry := &entities.LedgerEntry{
			WalletID:       src.ID,
			Type:           entities.EntryTypeDebit,
			Amount:         in.Amount,
			IdempotencyKey: fmt.Sprintf("wallet-transfer-debit-%d", t.ID),
			Details:        details,
		}
		if err := s.ledger.Insert(ctx, debitEntry); err != nil {
			return err
		}
		if err := s.wallets.UpdateBalance(ctx, src); err != nil {
			return err
		}

		tgt.Credit(in.Amount)
		creditEntry := &entities.LedgerEntry{
			WalletID:       tgt.ID,
			Type:           entities.EntryTypeCredit,
			Amount:         in.Amount,
			IdempotencyKey: fmt.Sprintf("wallet-transfer-credit-%d", t.ID),
			Details:        details,
		}
		if err := s.ledger.Insert(ctx, creditEntry); err != nil {
			return err
		}
		if err := s.wallets.UpdateBalance(ctx, tgt); err != nil {
			return err
		}

		t.Complete(debitEntry.ID, creditEntry.ID)
		if err := s.transfers.Update(ctx, t); err != nil {
			return err
		}
		if err := s.outbox.Append(ctx, entities.EventTransferCompleted, entities.TransferPayload(t)); err != nil {
			return err
		}
		transferCompletedTotal.WithLabelValues(t.Currency.String()).Inc()

		s.log.InfoContext(ctx, "transfer completed",
			slog.Int64("transfer_id", t.ID),
			slog.Int64("source_wallet_id", src.ID),
			slog.Int64("target_wallet_id", tgt.ID),
			slog.String("amount", in.Amount.String()),
		)
		res = &TransferResult{Transfer: t, SourceWallet: src, TargetWallet: tgt}
		return nil
	})
	transferLatencySeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	return res, nil
}

// replayTransfer resolves a request whose idempotency key already exists.
// The result never mutates state: completed transfers answer with current
// snapshots, failed ones report their stored reason.
func (s *Service) replayTransfer(ctx context.Context, userID int64, t *entities.Transfer) (*TransferResult, error) {
	if t.UserID != userID {
		return nil, apperrors.New(apperrors.KindForbidden, "Idempotency key already used")
	}

	switch t.Status {
	case entities.TransferStatusCompleted:
		src, err := s.wallets.Get(ctx, t.SourceWalletID, userID)
		if err != nil {
			return nil, err
		}
		tgt, err := s.wallets.Get(ctx, t.TargetWalletID, userID)
		if err != nil {
			return nil, err
		}
		transferIdempotentTotal.WithLabelValues(t.Currency.String()).Inc()
		return &TransferResult{Transfer: t, SourceWallet: src, TargetWallet: tgt}, nil
	case entities.TransferStatusFailed:
		reason := t.FailureReason
		if reason == "" {
			reason = "Transfer failed"
		}
		return nil, apperrors.New(apperrors.KindConflict, reason)
	case entities.TransferStatusPending:
		return nil, apperrors.New(apperrors.KindConflict, "Transfer is still processing")
	default:
		return nil, apperrors.Newf(apperrors.KindConflict, "Transfer is %s", t.Status)
	}
}

// lockTransferWallets locks both wallets in ascending id order and returns
// them as (source, target).
func (s *Service) lockTransferWallets(ctx context.Context, userID, sourceID, targetID int64) (*entities.Wallet, *entities.Wallet, error) {
	first, second := sourceID, targetID
	if first > second {
		first, second = second, first
	}

	w1, err := s.wallets.GetForUpdate(ctx, first, userID)
	if err != nil {
		return nil, nil, err
	}
	w2, err := s.wallets.GetForUpdate(ctx, second, userID)
	if err != nil {
		return nil, nil, err
	}

	if w1.ID == sourceID {
		return w1, w2, nil
	}
	return w2, w1, nil
}

func validateTransfer(src, tgt *entities.Wallet, in TransferInput) error {
	if err := ensureActive(src); err != nil {
		return err
	}
	if err := ensureActive(tgt); err != nil {
		return err
	}
	if src.Currency != tgt.Currency {
		return apperrors.New(apperrors.KindValidation, "Currency mismatch between wallets")
	}
	if in.Currency != "" && in.Currency != src.Currency {
		return apperrors.New(apperrors.KindValidation, "Currency does not match source wallet")
	}
	return nil
}
