// Package paymentsvc implements the payment intent orchestrator: a state
// machine that settles an intent by coordinating the risk engine and a
// two-phase hold on the wallet service. The orchestrator never touches
// balances directly; all money movement happens behind the wallet API.
package paymentsvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridianpay/meridian/internal/application/ports"
	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

// Service drives payment intents through their lifecycle.
type Service struct {
	intents ports.IntentRepository
	risk    ports.RiskEvaluator
	wallets ports.WalletGateway
	log     *slog.Logger
}

func New(intents ports.IntentRepository, risk ports.RiskEvaluator, wallets ports.WalletGateway, log *slog.Logger) *Service {
	return &Service{intents: intents, risk: risk, wallets: wallets, log: log}
}

// CreateIntent records a pending intent. No upstream calls happen here;
// money moves only on confirm.
func (s *Service) CreateIntent(ctx context.Context, userID, walletID int64, amount money.Money, currency money.Currency) (*entities.PaymentIntent, error) {
	if !amount.IsPositive() {
		return nil, apperrors.New(apperrors.KindValidation, "Amount must be positive")
	}

	p := entities.NewPaymentIntent(userID, walletID, amount, currency)
	if err := s.intents.Create(ctx, p); err != nil {
		return nil, err
	}
	intentCreatedTotal.WithLabelValues(currency.String()).Inc()
	s.log.InfoContext(ctx, "intent created",
		slog.Int64("intent_id", p.ID),
		slog.Int64("wallet_id", walletID),
		slog.String("amount", amount.String()),
	)
	return p, nil
}

// GetIntent loads an intent owned by the user.
func (s *Service) GetIntent(ctx context.Context, intentID, userID int64) (*entities.PaymentIntent, error) {
	return s.intents.Get(ctx, intentID, userID)
}

// Confirm settles a pending intent: risk evaluation, then ensure-hold,
// then capture. Each step is idempotent under a key derived from the
// intent id, so a crashed or timed-out confirm re-enters safely: an
// already-attached hold is reused and a replayed capture is a no-op on the
// wallet side. Confirm of a non-pending intent returns the record
// unchanged.
//
// riskMetadata carries the client context headers the risk engine scores
// on; bearer is the caller's token, forwarded to both upstreams.
func (s *Service) Confirm(ctx context.Context, intentID, userID int64, bearer string, riskMetadata map[string]string) (*entities.PaymentIntent, error) {
	start := time.Now()
	defer func() { confirmLatencySeconds.Observe(time.Since(start).Seconds()) }()

	p, err := s.intents.Get(ctx, intentID, userID)
	if err != nil {
		return nil, err
	}
	if p.Status != entities.IntentStatusPending {
		return p, nil
	}

	if err := s.evaluateRisk(ctx, p, bearer, riskMetadata); err != nil {
		return nil, err
	}

	if p.HoldID == nil {
		snapshot, err := s.wallets.CreateHold(ctx, bearer, p.WalletID, p.Amount,
			fmt.Sprintf("pi-hold-%d", p.ID))
		if err != nil {
			return nil, err
		}
		p.AttachHold(snapshot.ID)
		if err := s.intents.Update(ctx, p); err != nil {
			return nil, err
		}
	}

	snapshot, err := s.wallets.CaptureHold(ctx, bearer, p.WalletID, *p.HoldID,
		fmt.Sprintf("pi-hold-capture-%d", p.ID))
	if err != nil {
		return nil, err
	}
	// A released hold means a cancel won a race earlier; the capture
	// attempt still closes cleanly.
	if snapshot.Status != string(entities.HoldStatusCaptured) && snapshot.Status != string(entities.HoldStatusReleased) {
		return nil, apperrors.Newf(apperrors.KindUpstreamUnavailable, "Unexpected hold status %q", snapshot.Status)
	}

	p.SetStatus(entities.IntentStatusConfirmed)
	if err := s.intents.Update(ctx, p); err != nil {
		return nil, err
	}
	intentOutcomeTotal.WithLabelValues(string(p.Status)).Inc()
	s.log.InfoContext(ctx, "intent confirmed",
		slog.Int64("intent_id", p.ID),
		slog.Int64("hold_id", *p.HoldID),
	)
	return p, nil
}

// evaluateRisk runs the intent through the risk engine. Decline and review
// are persisted before the error returns; upstream failures leave the
// intent untouched so confirm can be retried.
func (s *Service) evaluateRisk(ctx context.Context, p *entities.PaymentIntent, bearer string, metadata map[string]string) error {
	decision, err := s.risk.Evaluate(ctx, ports.RiskEvent{
		EventType:      "payment_intent",
		SubjectID:      fmt.Sprintf("intent-%d", p.ID),
		UserID:         fmt.Sprintf("%d", p.UserID),
		Amount:         p.Amount,
		Currency:       p.Currency,
		Metadata:       metadata,
		IdempotencyKey: fmt.Sprintf("pi-risk-%d", p.ID),
		BearerToken:    bearer,
	})
	if err != nil {
		return err
	}

	switch decision {
	case ports.RiskDecisionApprove:
		return nil
	case ports.RiskDecisionDecline:
		p.SetStatus(entities.IntentStatusDeclined)
		if uerr := s.intents.Update(ctx, p); uerr != nil {
			return uerr
		}
		intentOutcomeTotal.WithLabelValues(string(p.Status)).Inc()
		return apperrors.New(apperrors.KindForbidden, "Payment declined by risk engine")
	case ports.RiskDecisionReview:
		p.SetStatus(entities.IntentStatusReview)
		if uerr := s.intents.Update(ctx, p); uerr != nil {
			return uerr
		}
		intentOutcomeTotal.WithLabelValues(string(p.Status)).Inc()
		return apperrors.New(apperrors.KindConflict, "Payment intent requires manual review")
	default:
		return apperrors.Newf(apperrors.KindUpstreamUnavailable, "Unexpected risk decision %q", decision)
	}
}

// Cancel aborts an intent from pending or review. An attached hold is
// released before the intent moves to canceled; repeating a cancel returns
// the canceled record unchanged.
func (s *Service) Cancel(ctx context.Context, intentID, userID int64, bearer string) (*entities.PaymentIntent, error) {
	p, err := s.intents.Get(ctx, intentID, userID)
	if err != nil {
		return nil, err
	}
	if p.Status == entities.IntentStatusCanceled {
		return p, nil
	}
	if err := p.CanCancel(); err != nil {
		return nil, err
	}

	if p.HoldID != nil {
		snapshot, err := s.wallets.ReleaseHold(ctx, bearer, p.WalletID, *p.HoldID,
			fmt.Sprintf("pi-hold-release-%d", p.ID))
		if err != nil {
			return nil, err
		}
		if snapshot.Status != string(entities.HoldStatusReleased) {
			return nil, apperrors.Newf(apperrors.KindUpstreamUnavailable, "Unexpected hold status %q", snapshot.Status)
		}
	}

	p.SetStatus(entities.IntentStatusCanceled)
	if err := s.intents.Update(ctx, p); err != nil {
		return nil, err
	}
	intentOutcomeTotal.WithLabelValues(string(p.Status)).Inc()
	s.log.InfoContext(ctx, "intent canceled", slog.Int64("intent_id", p.ID))
	return p, nil
}
