// Package walletsvc implements the wallet ledger use cases: wallet
// creation, balance mutations, the hold lifecycle, internal transfers,
// statements and reconciliation. All multi-step mutations run inside a
// unit of work so the balance, ledger and outbox move together.
package walletsvc

import (
	"context"
	"log/slog"

	"github.com/meridianpay/meridian/internal/application/ports"
	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

// Service wires the ledger use cases to their repositories. A nil risk
// evaluator disables the debit risk gate.
type Service struct {
	wallets   ports.WalletRepository
	ledger    ports.LedgerRepository
	holds     ports.HoldRepository
	transfers ports.TransferRepository
	outbox    ports.OutboxRepository
	uow       ports.UnitOfWork
	risk      ports.RiskEvaluator
	log       *slog.Logger
}

func New(
	wallets ports.WalletRepository,
	ledger ports.LedgerRepository,
	holds ports.HoldRepository,
	transfers ports.TransferRepository,
	outbox ports.OutboxRepository,
	uow ports.UnitOfWork,
	risk ports.RiskEvaluator,
	log *slog.Logger,
) *Service {
	return &Service{
		wallets:   wallets,
		ledger:    ledger,
		holds:     holds,
		transfers: transfers,
		outbox:    outbox,
		uow:       uow,
		risk:      risk,
		log:       log,
	}
}

// CreateWallet returns the user's existing wallet for the currency unless
// allowAdditional is set, in which case it always creates a new one. The
// second return value reports whether a wallet was created.
func (s *Service) CreateWallet(ctx context.Context, userID int64, currency money.Currency, allowAdditional bool) (*entities.Wallet, bool, error) {
	if !allowAdditional {
		existing, err := s.wallets.FindByOwnerAndCurrency(ctx, userID, currency)
		if err == nil {
			return existing, false, nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, false, err
		}
	}

	w := entities.NewWallet(userID, currency)
	if err := s.wallets.Create(ctx, w); err != nil {
		return nil, false, err
	}
	s.log.InfoContext(ctx, "wallet created",
		slog.Int64("wallet_id", w.ID),
		slog.String("currency", currency.String()),
	)
	return w, true, nil
}

// GetBalance loads a wallet owned by the user.
func (s *Service) GetBalance(ctx context.Context, userID, walletID int64) (*entities.Wallet, error) {
	return s.wallets.Get(ctx, walletID, userID)
}

// ListWallets returns all wallets of the user, oldest first.
func (s *Service) ListWallets(ctx context.Context, userID int64) ([]*entities.Wallet, error) {
	return s.wallets.ListByOwner(ctx, userID)
}

func ensureActive(w *entities.Wallet) error {
	if w.Status != entities.WalletStatusActive {
		return apperrors.New(apperrors.KindConflict, "Wallet is frozen")
	}
	return nil
}
