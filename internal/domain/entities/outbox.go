package entities

import "time"

// Outbox event types produced by the wallet ledger.
const (
	EventTransferCreated   = "wallet.transfer.created"
	EventTransferCompleted = "wallet.transfer.completed"
	EventTransferFailed    = "wallet.transfer.failed"
)

// OutboxEvent is written in the same database transaction as the state
// change it describes. An external relay delivers events at least once and
// stamps ProcessedAt; the ledger core only produces them.
type OutboxEvent struct {
	ID          int64
	EventType   string
	Payload     map[string]any
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// TransferPayload is the outbox payload for transfer lifecycle events.
func TransferPayload(t *Transfer) map[string]any {
	payload := map[string]any{
		"transfer_id":        t.ID,
		"user_id":            t.UserID,
		"source_wallet_id":   t.SourceWalletID,
		"target_wallet_id":   t.TargetWalletID,
		"status":             string(t.Status),
		"amount":             t.Amount.String(),
		"currency":           t.Currency.String(),
		"idempotency_key":    t.IdempotencyKey,
		"external_reference": t.ExternalReference,
	}
	if t.FailureReason != "" {
		payload["failure_reason"] = t.FailureReason
	}
	return payload
}
