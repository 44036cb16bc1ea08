package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridianpay/meridian/internal/application/ports"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

var _ ports.LedgerRepository = (*LedgerRepository)(nil)

// LedgerRepository stores append-only ledger entries. The unique index on
// (wallet_id, idempotency_key) backstops the in-transaction idempotency
// pre-check against concurrent duplicate submissions.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) Insert(ctx context.Context, e *entities.LedgerEntry) error {
	q := querierFor(ctx, r.pool)

	details, err := marshalDetails(e.Details)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ledger_entries (wallet_id, type, amount, idempotency_key, details)
		VALUES ($1, $2, $3::numeric, NULLIF($4, ''), $5)
		RETURNING id, created_at
	`
	err = q.QueryRow(ctx, query,
		e.WalletID,
		string(e.Type),
		e.Amount.String(),
		e.IdempotencyKey,
		details,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "uq_ledger_wallet_idem") {
			return fmt.Errorf("duplicate ledger idempotency key %q: %w", e.IdempotencyKey, err)
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

const ledgerColumns = `id, wallet_id, type, amount::text, COALESCE(idempotency_key, ''), details, created_at`

func (r *LedgerRepository) FindByIdempotencyKey(ctx context.Context, walletID int64, key string) (*entities.LedgerEntry, error) {
	q := querierFor(ctx, r.pool)
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE wallet_id = $1 AND idempotency_key = $2
		LIMIT 1
	`
	entry, err := scanLedgerEntry(q.QueryRow(ctx, query, walletID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

func (r *LedgerRepository) ListByWallet(ctx context.Context, walletID int64, beforeID int64, limit int) ([]*entities.LedgerEntry, error) {
	q := querierFor(ctx, r.pool)

	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE wallet_id = $1 AND ($2::bigint = 0 OR id < $2)
		ORDER BY id DESC
		LIMIT $3
	`
	rows, err := q.Query(ctx, query, walletID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*entities.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepository) Summarize(ctx context.Context, walletID int64) (decimal.Decimal, int64, error) {
	q := querierFor(ctx, r.pool)

	query := `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'credit' THEN amount ELSE -amount END), 0)::text,
			COUNT(id)
		FROM ledger_entries
		WHERE wallet_id = $1
	`
	var (
		sumText string
		count   int64
	)
	if err := q.QueryRow(ctx, query, walletID).Scan(&sumText, &count); err != nil {
		return decimal.Zero, 0, fmt.Errorf("summarize ledger: %w", err)
	}

	// Signed on purpose: a drifted ledger can net below zero.
	sum, err := decimal.NewFromString(sumText)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("invalid ledger sum in database: %w", err)
	}
	return sum, count, nil
}

func scanLedgerEntry(row pgx.Row) (*entities.LedgerEntry, error) {
	var (
		e          entities.LedgerEntry
		entryType  string
		amountText string
		details    []byte
		createdAt  time.Time
	)
	if err := row.Scan(&e.ID, &e.WalletID, &entryType, &amountText, &e.IdempotencyKey, &details, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}

	amount, err := money.Parse(amountText)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in database: %w", err)
	}
	e.Type = entities.EntryType(entryType)
	e.Amount = amount
	e.CreatedAt = createdAt

	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode entry details: %w", err)
		}
	}
	return &e, nil
}

func marshalDetails(d entities.Details) ([]byte, error) {
	if len(d) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}
	return b, nil
}
