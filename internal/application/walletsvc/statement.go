package walletsvc

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/meridian/internal/domain/entities"
)

const (
	defaultStatementLimit = 50
	maxStatementLimit     = 200
)

// Statement is a newest-first page of ledger entries. NextCursor is set
// only when another page may exist; pass it back as the cursor to continue.
type Statement struct {
	Entries    []*entities.LedgerEntry
	NextCursor *int64
}

// GetStatement returns a page of the wallet's ledger, newest first.
// cursor restricts the page to entry ids strictly below it; zero means
// start from the top. limit is clamped to [1, 200], zero takes the default.
func (s *Service) GetStatement(ctx context.Context, userID, walletID int64, limit int, cursor int64) (*Statement, error) {
	if limit <= 0 {
		limit = defaultStatementLimit
	}
	if limit > maxStatementLimit {
		limit = maxStatementLimit
	}

	if _, err := s.wallets.Get(ctx, walletID, userID); err != nil {
		return nil, err
	}

	entries, err := s.ledger.ListByWallet(ctx, walletID, cursor, limit)
	if err != nil {
		return nil, err
	}

	st := &Statement{Entries: entries}
	if len(entries) == limit {
		last := entries[len(entries)-1].ID
		st.NextCursor = &last
	}
	return st, nil
}

// Reconciliation compares a wallet's stored balance against its replayed
// ledger. Delta is ledger minus stored; a balanced wallet has a zero delta.
type Reconciliation struct {
	Wallet     *entities.Wallet
	LedgerSum  decimal.Decimal
	EntryCount int64
	Delta      decimal.Decimal
	Balanced   bool
}

// Reconcile replays the wallet's ledger and reports any drift from the
// stored balance. Read-only; drift is reported, never repaired.
func (s *Service) Reconcile(ctx context.Context, userID, walletID int64) (*Reconciliation, error) {
	w, err := s.wallets.Get(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}

	sum, count, err := s.ledger.Summarize(ctx, walletID)
	if err != nil {
		return nil, err
	}

	delta := sum.Sub(w.Balance.Decimal())
	return &Reconciliation{
		Wallet:     w,
		LedgerSum:  sum,
		EntryCount: count,
		Delta:      delta,
		Balanced:   delta.IsZero(),
	}, nil
}
