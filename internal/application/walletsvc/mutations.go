package walletsvc

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/meridianpay/meridian/internal/application/ports"
	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

// ChangeInput carries a single credit or debit request.
type ChangeInput struct {
	WalletID       int64
	Amount         money.Money
	IdempotencyKey string
	Details        entities.Details

	// BearerToken and RiskMetadata feed the debit risk gate; both are
	// ignored for credits.
	BearerToken  string
	RiskMetadata map[string]string
}

// Credit adds funds to a wallet and returns the updated wallet. A repeated
// idempotency key returns the wallet unchanged.
func (s *Service) Credit(ctx context.Context, userID int64, in ChangeInput) (*entities.Wallet, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.New(apperrors.KindValidation, "Amount must be positive")
	}
	return s.applyChange(ctx, userID, entities.EntryTypeCredit, in)
}

// Debit withdraws funds from a wallet. When the risk gate is enabled the
// debit is evaluated before any lock is taken; declined debits never reach
// the ledger. A repeated idempotency key returns the wallet unchanged.
func (s *Service) Debit(ctx context.Context, userID int64, in ChangeInput) (*entities.Wallet, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.New(apperrors.KindValidation, "Amount must be positive")
	}

	if s.risk != nil {
		replayed, err := s.changeAlreadyApplied(ctx, userID, in)
		if err != nil {
			return nil, err
		}
		if !replayed {
			if err := s.evaluateDebitRisk(ctx, userID, in); err != nil {
				return nil, err
			}
		}
	}

	return s.applyChange(ctx, userID, entities.EntryTypeDebit, in)
}

// changeAlreadyApplied reports whether the idempotency key was already
// consumed on the wallet. Used to skip the risk gate on replays; the
// authoritative check happens again under the row lock.
func (s *Service) changeAlreadyApplied(ctx context.Context, userID int64, in ChangeInput) (bool, error) {
	if in.IdempotencyKey == "" {
		return false, nil
	}
	if _, err := s.wallets.Get(ctx, in.WalletID, userID); err != nil {
		return false, err
	}
	entry, err := s.ledger.FindByIdempotencyKey(ctx, in.WalletID, in.IdempotencyKey)
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

func (s *Service) evaluateDebitRisk(ctx context.Context, userID int64, in ChangeInput) error {
	w, err := s.wallets.Get(ctx, in.WalletID, userID)
	if err != nil {
		return err
	}

	decision, err := s.risk.Evaluate(ctx, ports.RiskEvent{
		EventType:      "wallet_transaction",
		SubjectID:      "wallet-" + strconv.FormatInt(w.ID, 10),
		UserID:         strconv.FormatInt(userID, 10),
		Amount:         in.Amount,
		Currency:       w.Currency,
		Metadata:       in.RiskMetadata,
		IdempotencyKey: in.IdempotencyKey,
		BearerToken:    in.BearerToken,
	})
	if err != nil {
		return err
	}

	switch decision {
	case ports.RiskDecisionApprove:
		return nil
	case ports.RiskDecisionReview:
		return apperrors.New(apperrors.KindConflict, "Debit pending risk review")
	case ports.RiskDecisionDecline:
		return apperrors.New(apperrors.KindForbidden, "Debit declined by risk engine")
	default:
		return apperrors.Newf(apperrors.KindUpstreamUnavailable, "Unexpected risk decision %q", decision)
	}
}

func (s *Service) applyChange(ctx context.Context, userID int64, typ entities.EntryType, in ChangeInput) (*entities.Wallet, error) {
	var out *entities.Wallet
	err := s.uow.Execute(ctx, func(ctx context.Context) error {
		w, err := s.wallets.GetForUpdate(ctx, in.WalletID, userID)
		if err != nil {
			return err
		}
		_, replayed, err := s.applyLocked(ctx, w, typ, in.Amount, in.IdempotencyKey, in.Details)
		if err != nil {
			return err
		}

		currency := w.Currency.String()
		switch {
		case replayed:
			idempotencyReplayTotal.WithLabelValues(currency, string(typ)).Inc()
			s.log.InfoContext(ctx, "idempotent replay",
				slog.Int64("wallet_id", w.ID),
				slog.String("type", string(typ)),
				slog.String("idempotency_key", in.IdempotencyKey),
			)
		case typ == entities.EntryTypeCredit:
			creditTotal.WithLabelValues(currency).Inc()
		default:
			debitTotal.WithLabelValues(currency).Inc()
		}

		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// applyLocked mutates an already-locked wallet and appends the matching
// ledger entry. When the idempotency key is already consumed the existing
// entry is returned and nothing changes.
func (s *Service) applyLocked(ctx context.Context, w *entities.Wallet, typ entities.EntryType, amount money.Money, key string, details entities.Details) (*entities.LedgerEntry, bool, error) {
	if key != "" {
		existing, err := s.ledger.FindByIdempotencyKey(ctx, w.ID, key)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, true, nil
		}
	}

	if err := ensureActive(w); err != nil {
		return nil, false, err
	}

	if typ == entities.EntryTypeDebit {
		if err := w.Debit(amount); err != nil {
			insufficientFundsTotal.WithLabelValues(w.Currency.String()).Inc()
			return nil, false, err
		}
	} else {
		w.Credit(amount)
	}

	entry := &entities.LedgerEntry{
		WalletID:       w.ID,
		Type:           typ,
		Amount:         amount,
		IdempotencyKey: key,
		Details:        details,
	}
	if err := s.ledger.Insert(ctx, entry); err != nil {
		return nil, false, err
	}
	if err := s.wallets.UpdateBalance(ctx, w); err != nil {
		return nil, false, err
	}
	return entry, false, nil
}
