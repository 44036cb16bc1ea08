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

var _ ports.WalletRepository = (*WalletRepository)(nil)

// WalletRepository stores wallets. Balances are NUMERIC(18,2) and travel
// through SQL as decimal strings to avoid float conversions.
type WalletRepository struct {
	pool *pgxpool.Pool
}

func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

const walletColumns = `id, owner_user_id, currency, status, balance::text, created_at, updated_at`

func (r *WalletRepository) Create(ctx context.Context, w *entities.Wallet) error {
	q := querierFor(ctx, r.pool)

	query := `
		INSERT INTO wallets (owner_user_id, currency, status, balance)
		VALUES ($1, $2, $3, $4::numeric)
		RETURNING id, created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		w.OwnerUserID,
		w.Currency.String(),
		string(w.Status),
		w.Balance.String(),
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (r *WalletRepository) Get(ctx context.Context, id, ownerUserID int64) (*entities.Wallet, error) {
	q := querierFor(ctx, r.pool)
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 AND owner_user_id = $2`
	return scanWallet(q.QueryRow(ctx, query, id, ownerUserID))
}

func (r *WalletRepository) GetForUpdate(ctx context.Context, id, ownerUserID int64) (*entities.Wallet, error) {
	q := querierFor(ctx, r.pool)
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 AND owner_user_id = $2 FOR UPDATE`
	return scanWallet(q.QueryRow(ctx, query, id, ownerUserID))
}

func (r *WalletRepository) FindByOwnerAndCurrency(ctx context.Context, ownerUserID int64, currency money.Currency) (*entities.Wallet, error) {
	q := querierFor(ctx, r.pool)
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE owner_user_id = $1 AND currency = $2
		ORDER BY id ASC
		LIMIT 1
	`
	return scanWallet(q.QueryRow(ctx, query, ownerUserID, currency.String()))
}

func (r *WalletRepository) ListByOwner(ctx context.Context, ownerUserID int64) ([]*entities.Wallet, error) {
	q := querierFor(ctx, r.pool)
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_user_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := q.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*entities.Wallet
	for rows.Next() {
		w, err := scanWalletValues(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, nil
}

func (r *WalletRepository) UpdateBalance(ctx context.Context, w *entities.Wallet) error {
	q := querierFor(ctx, r.pool)
	query := `UPDATE wallets SET balance = $2::numeric, updated_at = $3 WHERE id = $1`

	tag, err := q.Exec(ctx, query, w.ID, w.Balance.String(), w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrWalletNotFound
	}
	return nil
}

func scanWallet(row pgx.Row) (*entities.Wallet, error) {
	w, err := scanWalletValues(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, err
	}
	return w, nil
}

func scanWalletValues(row pgx.Row) (*entities.Wallet, error) {
	var (
		w           entities.Wallet
		currency    string
		status      string
		balanceText string
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := row.Scan(&w.ID, &w.OwnerUserID, &currency, &status, &balanceText, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}

	cur, err := money.ParseCurrency(currency)
	if err != nil {
		return nil, fmt.Errorf("invalid currency in database: %w", err)
	}
	balance, err := money.Parse(balanceText)
	if err != nil {
		return nil, fmt.Errorf("invalid balance in database: %w", err)
	}

	w.Currency = cur
	w.Status = entities.WalletStatus(status)
	w.Balance = balance
	w.CreatedAt = createdAt
	w.UpdatedAt = updatedAt
	return &w, nil
}
