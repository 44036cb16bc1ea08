// Package riskclient implements the ports.RiskEvaluator against the
// external risk engine's HTTP API.
package riskclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meridianpay/meridian/internal/application/ports"
	"github.com/meridianpay/meridian/internal/domain/apperrors"
)

var _ ports.RiskEvaluator = (*Client)(nil)

// Client talks to the risk engine. One evaluation is one POST; the caller
// decides whether an evaluation may be repeated and pins it with an
// idempotency key.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type evaluationRequest struct {
	EventType string            `json:"event_type"`
	SubjectID string            `json:"subject_id"`
	UserID    string            `json:"user_id"`
	Amount    string            `json:"amount"`
	Currency  string            `json:"currency"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type evaluationResponse struct {
	ID             int64    `json:"id"`
	Decision       string   `json:"decision"`
	RiskScore      float64  `json:"risk_score"`
	TriggeredRules []string `json:"triggered_rules"`
}

// Evaluate submits the event and returns the engine's decision.
//
// A deadline maps to UpstreamTimeout, transport failures and 5xx to
// UpstreamUnavailable, 4xx to Conflict. Unknown decisions are upstream
// failures, never approvals.
func (c *Client) Evaluate(ctx context.Context, event ports.RiskEvent) (ports.RiskDecision, error) {
	body, err := json.Marshal(evaluationRequest{
		EventType: event.EventType,
		SubjectID: event.SubjectID,
		UserID:    event.UserID,
		Amount:    event.Amount.String(),
		Currency:  event.Currency.String(),
		Metadata:  event.Metadata,
	})
	if err != nil {
		return "", fmt.Errorf("encode risk request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/evaluations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build risk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if event.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", event.IdempotencyKey)
	}
	if event.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+event.BearerToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", apperrors.Wrap(apperrors.KindUpstreamTimeout, "Risk evaluation timed out", err)
		}
		return "", apperrors.Wrap(apperrors.KindUpstreamUnavailable, "Risk service unavailable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return "", apperrors.Newf(apperrors.KindUpstreamUnavailable, "Risk service unavailable")
	case resp.StatusCode >= 400:
		io.Copy(io.Discard, resp.Body)
		return "", apperrors.Newf(apperrors.KindConflict, "Risk evaluation failed")
	}

	var out evaluationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperrors.Wrap(apperrors.KindUpstreamUnavailable, "Invalid risk response", err)
	}

	decision := ports.RiskDecision(out.Decision)
	switch decision {
	case ports.RiskDecisionApprove, ports.RiskDecisionReview, ports.RiskDecisionDecline:
		return decision, nil
	default:
		return "", apperrors.Newf(apperrors.KindUpstreamUnavailable, "Unknown risk decision %q", out.Decision)
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	var t timeouter
	return errors.As(err, &t) && t.Timeout()
}
