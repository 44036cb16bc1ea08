package ports

import (
	"context"

	"github.com/meridianpay/meridian/internal/domain/money"
)

// RiskDecision is the closed set of outcomes the risk engine returns.
// Unknown values are treated as upstream unavailability, never as approval.
type RiskDecision string

const (
	RiskDecisionApprove RiskDecision = "approve"
	RiskDecisionReview  RiskDecision = "review"
	RiskDecisionDecline RiskDecision = "decline"
)

// RiskEvent is the evaluation request sent to the risk engine.
type RiskEvent struct {
	EventType      string
	SubjectID      string
	UserID         string
	Amount         money.Money
	Currency       money.Currency
	Metadata       map[string]string
	IdempotencyKey string
	BearerToken    string
}

// RiskEvaluator calls the external risk engine.
//
// Error kinds: UpstreamTimeout on deadline, UpstreamUnavailable on
// transport errors, 5xx and unknown decisions, Conflict on 4xx.
type RiskEvaluator interface {
	Evaluate(ctx context.Context, event RiskEvent) (RiskDecision, error)
}

// HoldSnapshot is the orchestrator's view of a wallet-service hold.
type HoldSnapshot struct {
	ID       int64  `json:"id"`
	WalletID int64  `json:"wallet_id"`
	Amount   string `json:"amount"`
	Status   string `json:"status"`
}

// WalletGateway drives the two-phase hold lifecycle on the wallet service.
// Calls are retried internally with a fixed idempotency key; the caller's
// bearer token is forwarded so the wallet service enforces ownership.
type WalletGateway interface {
	CreateHold(ctx context.Context, bearer string, walletID int64, amount money.Money, idempotencyKey string) (*HoldSnapshot, error)
	CaptureHold(ctx context.Context, bearer string, walletID, holdID int64, idempotencyKey string) (*HoldSnapshot, error)
	ReleaseHold(ctx context.Context, bearer string, walletID, holdID int64, idempotencyKey string) (*HoldSnapshot, error)
}
