package walletapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/meridian/internal/application/walletsvc"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

type createWalletRequest struct {
	Currency        string `json:"currency" binding:"required,currency"`
	AllowAdditional bool   `json:"allow_additional"`
}

// changeRequest covers credit and debit. metadata is accepted as an alias
// for details; details wins when both are present.
type changeRequest struct {
	Amount         money.Money      `json:"amount"`
	IdempotencyKey string           `json:"idempotency_key"`
	Details        entities.Details `json:"details"`
	Metadata       entities.Details `json:"metadata"`
}

func (r *changeRequest) details() entities.Details {
	if r.Details != nil {
		return r.Details
	}
	return r.Metadata
}

type transferRequest struct {
	TargetWalletID    int64            `json:"target_wallet_id" binding:"required"`
	Amount            money.Money      `json:"amount"`
	Currency          string           `json:"currency"`
	IdempotencyKey    string           `json:"idempotency_key" binding:"required"`
	Description       string           `json:"description"`
	ExternalReference string           `json:"external_reference"`
	Details           entities.Details `json:"details"`
}

type holdRequest struct {
	Amount         money.Money      `json:"amount"`
	IdempotencyKey string           `json:"idempotency_key" binding:"required"`
	Reference      string           `json:"reference"`
	Details        entities.Details `json:"details"`
}

type releaseRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

type walletResponse struct {
	ID          int64     `json:"id"`
	OwnerUserID int64     `json:"owner_user_id"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Balance     string    `json:"balance"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toWalletResponse(w *entities.Wallet) walletResponse {
	return walletResponse{
		ID:          w.ID,
		OwnerUserID: w.OwnerUserID,
		Currency:    w.Currency.String(),
		Status:      string(w.Status),
		Balance:     w.Balance.String(),
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

type balanceResponse struct {
	ID       int64  `json:"id"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

type holdResponse struct {
	ID             int64            `json:"id"`
	WalletID       int64            `json:"wallet_id"`
	Amount         string           `json:"amount"`
	Status         string           `json:"status"`
	IdempotencyKey string           `json:"idempotency_key"`
	Reference      string           `json:"reference,omitempty"`
	Details        entities.Details `json:"details,omitempty"`
	LedgerEntryID  int64            `json:"ledger_entry_id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func toHoldResponse(h *entities.Hold) holdResponse {
	return holdResponse{
		ID:             h.ID,
		WalletID:       h.WalletID,
		Amount:         h.Amount.String(),
		Status:         string(h.Status),
		IdempotencyKey: h.IdempotencyKey,
		Reference:      h.Reference,
		Details:        h.Details,
		LedgerEntryID:  h.LedgerEntryID,
		CreatedAt:      h.CreatedAt,
		UpdatedAt:      h.UpdatedAt,
	}
}

type transferResponse struct {
	ID                int64     `json:"id"`
	SourceWalletID    int64     `json:"source_wallet_id"`
	TargetWalletID    int64     `json:"target_wallet_id"`
	Amount            string    `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	IdempotencyKey    string    `json:"idempotency_key"`
	ExternalReference string    `json:"external_reference,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type transferResultResponse struct {
	Transfer     transferResponse `json:"transfer"`
	SourceWallet walletResponse   `json:"source_wallet"`
	TargetWallet walletResponse   `json:"target_wallet"`
}

func toTransferResultResponse(r *walletsvc.TransferResult) transferResultResponse {
	t := r.Transfer
	return transferResultResponse{
		Transfer: transferResponse{
			ID:                t.ID,
			SourceWalletID:    t.SourceWalletID,
			TargetWalletID:    t.TargetWalletID,
			Amount:            t.Amount.String(),
			Currency:          t.Currency.String(),
			Status:            string(t.Status),
			IdempotencyKey:    t.IdempotencyKey,
			ExternalReference: t.ExternalReference,
			CreatedAt:         t.CreatedAt,
			UpdatedAt:         t.UpdatedAt,
		},
		SourceWallet: toWalletResponse(r.SourceWallet),
		TargetWallet: toWalletResponse(r.TargetWallet),
	}
}

type entryResponse struct {
	ID             int64            `json:"id"`
	WalletID       int64            `json:"wallet_id"`
	Type           string           `json:"type"`
	Amount         string           `json:"amount"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
	Details        entities.Details `json:"details,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

type statementResponse struct {
	WalletID   int64           `json:"wallet_id"`
	Entries    []entryResponse `json:"entries"`
	NextCursor *int64          `json:"next_cursor"`
}

func toStatementResponse(walletID int64, st *walletsvc.Statement) statementResponse {
	entries := make([]entryResponse, 0, len(st.Entries))
	for _, e := range st.Entries {
		entries = append(entries, entryResponse{
			ID:             e.ID,
			WalletID:       e.WalletID,
			Type:           string(e.Type),
			Amount:         e.Amount.String(),
			IdempotencyKey: e.IdempotencyKey,
			Details:        e.Details,
			CreatedAt:      e.CreatedAt,
		})
	}
	return statementResponse{WalletID: walletID, Entries: entries, NextCursor: st.NextCursor}
}

type reconciliationResponse struct {
	WalletID      int64  `json:"wallet_id"`
	StoredBalance string `json:"stored_balance"`
	LedgerBalance string `json:"ledger_balance"`
	Delta         string `json:"delta"`
	EntryCount    int64  `json:"entry_count"`
	Status        string `json:"status"`
}

func toReconciliationResponse(rec *walletsvc.Reconciliation) reconciliationResponse {
	status := "balanced"
	if !rec.Balanced {
		status = "drift_detected"
	}
	return reconciliationResponse{
		WalletID:      rec.Wallet.ID,
		StoredBalance: rec.Wallet.Balance.String(),
		LedgerBalance: fixed(rec.LedgerSum),
		Delta:         fixed(rec.Delta),
		EntryCount:    rec.EntryCount,
		Status:        status,
	}
}

func fixed(d decimal.Decimal) string { return d.StringFixed(money.Scale) }
