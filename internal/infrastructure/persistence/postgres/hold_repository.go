package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridianpay/meridian/internal/application/ports"
	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

var _ ports.HoldRepository = (*HoldRepository)(nil)

// HoldRepository stores holds. (wallet_id, idempotency_key) is unique so
// concurrent duplicate creates converge on one hold.
type HoldRepository struct {
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

const holdColumns = `id, wallet_id, amount::text, status, idempotency_key, COALESCE(reference, ''), details, COALESCE(ledger_entry_id, 0), created_at, updated_at`

func (r *HoldRepository) Insert(ctx context.Context, h *entities.Hold) error {
	q := querierFor(ctx, r.pool)

	details, err := marshalDetails(h.Details)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO wallet_holds (wallet_id, amount, status, idempotency_key, reference, details, ledger_entry_id)
		VALUES ($1, $2::numeric, $3, $4, NULLIF($5, ''), $6, NULLIF($7, 0))
		RETURNING id, created_at, updated_at
	`
	err = q.QueryRow(ctx, query,
		h.WalletID,
		h.Amount.String(),
		string(h.Status),
		h.IdempotencyKey,
		h.Reference,
		details,
		h.LedgerEntryID,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "uq_wallet_hold_idem") {
			return fmt.Errorf("duplicate hold idempotency key %q: %w", h.IdempotencyKey, err)
		}
		return fmt.Errorf("insert hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) FindByIdempotencyKey(ctx context.Context, walletID int64, key string, forUpdate bool) (*entities.Hold, error) {
	q := querierFor(ctx, r.pool)

	query := `SELECT ` + holdColumns + ` FROM wallet_holds WHERE wallet_id = $1 AND idempotency_key = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	hold, err := scanHold(q.QueryRow(ctx, query, walletID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return hold, nil
}

func (r *HoldRepository) GetForUpdate(ctx context.Context, walletID, holdID, ownerUserID int64) (*entities.Hold, error) {
	q := querierFor(ctx, r.pool)

	query := `
		SELECT h.id, h.wallet_id, h.amount::text, h.status, h.idempotency_key,
		       COALESCE(h.reference, ''), h.details, COALESCE(h.ledger_entry_id, 0),
		       h.created_at, h.updated_at
		FROM wallet_holds h
		JOIN wallets w ON w.id = h.wallet_id
		WHERE h.id = $1 AND h.wallet_id = $2 AND w.owner_user_id = $3
		FOR UPDATE OF h
	`
	hold, err := scanHold(q.QueryRow(ctx, query, holdID, walletID, ownerUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrHoldNotFound
		}
		return nil, err
	}
	return hold, nil
}

func (r *HoldRepository) UpdateStatus(ctx context.Context, h *entities.Hold) error {
	q := querierFor(ctx, r.pool)

	query := `UPDATE wallet_holds SET status = $2, updated_at = $3 WHERE id = $1`
	tag, err := q.Exec(ctx, query, h.ID, string(h.Status), h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update hold status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrHoldNotFound
	}
	return nil
}

func scanHold(row pgx.Row) (*entities.Hold, error) {
	var (
		h          entities.Hold
		amountText string
		status     string
		details    []byte
		createdAt  time.Time
		updatedAt  time.Time
	)
	err := row.Scan(&h.ID, &h.WalletID, &amountText, &status, &h.IdempotencyKey,
		&h.Reference, &details, &h.LedgerEntryID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan hold: %w", err)
	}

	amount, err := money.Parse(amountText)
	if err != nil {
		return nil, fmt.Errorf("invalid hold amount in database: %w", err)
	}
	h.Amount = amount
	h.Status = entities.HoldStatus(status)
	h.CreatedAt = createdAt
	h.UpdatedAt = updatedAt

	if len(details) > 0 {
		if err := json.Unmarshal(details, &h.Details); err != nil {
			return nil, fmt.Errorf("decode hold details: %w", err)
		}
	}
	return &h, nil
}
