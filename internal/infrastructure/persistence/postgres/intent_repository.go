package postgres

import (
	"context"
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

var _ ports.IntentRepository = (*IntentRepository)(nil)

// IntentRepository stores payment intents for the orchestrator. It lives
// in the payments service database, not the wallet one; hold_id is an
// opaque reference into the wallet service.
type IntentRepository struct {
	pool *pgxpool.Pool
}

func NewIntentRepository(pool *pgxpool.Pool) *IntentRepository {
	return &IntentRepository{pool: pool}
}

const intentColumns = `id, user_id, wallet_id, amount::text, currency, status, hold_id, created_at, updated_at`

func (r *IntentRepository) Create(ctx context.Context, p *entities.PaymentIntent) error {
	q := querierFor(ctx, r.pool)

	query := `
		INSERT INTO payment_intents (user_id, wallet_id, amount, currency, status)
		VALUES ($1, $2, $3::numeric, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		p.UserID,
		p.WalletID,
		p.Amount.String(),
		p.Currency.String(),
		string(p.Status),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment intent: %w", err)
	}
	return nil
}

func (r *IntentRepository) Get(ctx context.Context, id, userID int64) (*entities.PaymentIntent, error) {
	q := querierFor(ctx, r.pool)

	query := `SELECT ` + intentColumns + ` FROM payment_intents WHERE id = $1 AND user_id = $2`
	p, err := scanIntent(q.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrIntentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *IntentRepository) Update(ctx context.Context, p *entities.PaymentIntent) error {
	q := querierFor(ctx, r.pool)

	query := `UPDATE payment_intents SET status = $2, hold_id = $3, updated_at = $4 WHERE id = $1`
	tag, err := q.Exec(ctx, query, p.ID, string(p.Status), p.HoldID, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update payment intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrIntentNotFound
	}
	return nil
}

func scanIntent(row pgx.Row) (*entities.PaymentIntent, error) {
	var (
		p          entities.PaymentIntent
		amountText string
		currency   string
		status     string
		holdID     *int64
		createdAt  time.Time
		updatedAt  time.Time
	)
	err := row.Scan(&p.ID, &p.UserID, &p.WalletID, &amountText, &currency, &status, &holdID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan payment intent: %w", err)
	}

	amount, err := money.Parse(amountText)
	if err != nil {
		return nil, fmt.Errorf("invalid intent amount in database: %w", err)
	}
	cur, err := money.ParseCurrency(currency)
	if err != nil {
		return nil, fmt.Errorf("invalid intent currency in database: %w", err)
	}

	p.Amount = amount
	p.Currency = cur
	p.Status = entities.IntentStatus(status)
	p.HoldID = holdID
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	return &p, nil
}
