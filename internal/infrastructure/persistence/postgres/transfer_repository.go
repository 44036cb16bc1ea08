package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridianpay/meridian/internal/application/ports"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

var _ ports.TransferRepository = (*TransferRepository)(nil)

// TransferRepository stores transfers. The idempotency key is globally
// unique, which is what lets a replay detect a key that belongs to another
// user.
type TransferRepository struct {
	pool *pgxpool.Pool
}

func NewTransferRepository(pool *pgxpool.Pool) *TransferRepository {
	return &TransferRepository{pool: pool}
}

const transferColumns = `id, user_id, source_wallet_id, target_wallet_id, amount::text, currency, status,
	idempotency_key, COALESCE(failure_reason, ''), COALESCE(external_reference, ''),
	COALESCE(ledger_debit_entry_id, 0), COALESCE(ledger_credit_entry_id, 0), created_at, updated_at`

func (r *TransferRepository) Insert(ctx context.Context, t *entities.Transfer) error {
	q := querierFor(ctx, r.pool)

	query := `
		INSERT INTO wallet_transfers (user_id, source_wallet_id, target_wallet_id, amount, currency,
			status, idempotency_key, external_reference)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, NULLIF($8, ''))
		RETURNING id, created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		t.UserID,
		t.SourceWalletID,
		t.TargetWalletID,
		t.Amount.String(),
		t.Currency.String(),
		string(t.Status),
		t.IdempotencyKey,
		t.ExternalReference,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "uq_wallet_transfer_idem") {
			return fmt.Errorf("duplicate transfer idempotency key %q: %w", t.IdempotencyKey, err)
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (r *TransferRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entities.Transfer, error) {
	q := querierFor(ctx, r.pool)

	query := `SELECT ` + transferColumns + ` FROM wallet_transfers WHERE idempotency_key = $1`
	t, err := scanTransfer(q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *TransferRepository) Update(ctx context.Context, t *entities.Transfer) error {
	q := querierFor(ctx, r.pool)

	query := `
		UPDATE wallet_transfers
		SET status = $2,
		    failure_reason = NULLIF($3, ''),
		    ledger_debit_entry_id = NULLIF($4, 0),
		    ledger_credit_entry_id = NULLIF($5, 0),
		    updated_at = $6
		WHERE id = $1
	`
	tag, err := q.Exec(ctx, query, t.ID, string(t.Status), t.FailureReason, t.DebitEntryID, t.CreditEntryID, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transfer %d not found", t.ID)
	}
	return nil
}

func scanTransfer(row pgx.Row) (*entities.Transfer, error) {
	var (
		t          entities.Transfer
		amountText string
		currency   string
		status     string
		createdAt  time.Time
		updatedAt  time.Time
	)
	err := row.Scan(&t.ID, &t.UserID, &t.SourceWalletID, &t.TargetWalletID, &amountText, &currency, &status,
		&t.IdempotencyKey, &t.FailureReason, &t.ExternalReference,
		&t.DebitEntryID, &t.CreditEntryID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan transfer: %w", err)
	}

	amount, err := money.Parse(amountText)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer amount in database: %w", err)
	}
	cur, err := money.ParseCurrency(currency)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer currency in database: %w", err)
	}

	t.Amount = amount
	t.Currency = cur
	t.Status = entities.TransferStatus(status)
	t.CreatedAt = createdAt
	t.UpdatedAt = updatedAt
	return &t, nil
}
