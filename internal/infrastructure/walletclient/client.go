// Package walletclient implements the ports.WalletGateway over the wallet
// service's HTTP API. Every call carries a fixed idempotency key, which is
// what makes the retry loop safe: a retried create lands on the same hold.
package walletclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/meridianpay/meridian/internal/application/ports"
	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/money"
)

var _ ports.WalletGateway = (*Client)(nil)

// Client drives the wallet service's hold endpoints with bounded retries
// and linear backoff. Transport errors, timeouts and 5xx are retried; any
// 4xx is final and surfaces the wallet service's own error kind.
type Client struct {
	baseURL  string
	http     *http.Client
	attempts uint
	backoff  time.Duration
}

func New(baseURL string, timeout time.Duration, attempts uint, backoff time.Duration) *Client {
	if attempts == 0 {
		attempts = 1
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		attempts: attempts,
		backoff:  backoff,
	}
}

type createHoldRequest struct {
	Amount         string `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

type releaseHoldRequest struct {
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (c *Client) CreateHold(ctx context.Context, bearer string, walletID int64, amount money.Money, idempotencyKey string) (*ports.HoldSnapshot, error) {
	body, err := json.Marshal(createHoldRequest{Amount: amount.String(), IdempotencyKey: idempotencyKey})
	if err != nil {
		return nil, fmt.Errorf("encode hold request: %w", err)
	}
	url := fmt.Sprintf("%s/api/v1/wallets/%d/holds", c.baseURL, walletID)
	return c.call(ctx, "hold create", url, body, bearer, idempotencyKey)
}

func (c *Client) CaptureHold(ctx context.Context, bearer string, walletID, holdID int64, idempotencyKey string) (*ports.HoldSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/wallets/%d/holds/%d/capture", c.baseURL, walletID, holdID)
	return c.call(ctx, "hold capture", url, nil, bearer, idempotencyKey)
}

func (c *Client) ReleaseHold(ctx context.Context, bearer string, walletID, holdID int64, idempotencyKey string) (*ports.HoldSnapshot, error) {
	body, err := json.Marshal(releaseHoldRequest{IdempotencyKey: idempotencyKey})
	if err != nil {
		return nil, fmt.Errorf("encode release request: %w", err)
	}
	url := fmt.Sprintf("%s/api/v1/wallets/%d/holds/%d/release", c.baseURL, walletID, holdID)
	return c.call(ctx, "hold release", url, body, bearer, idempotencyKey)
}

// call POSTs once per attempt until success, an unrecoverable response or
// retry exhaustion.
func (c *Client) call(ctx context.Context, op, url string, body []byte, bearer, idempotencyKey string) (*ports.HoldSnapshot, error) {
	var snapshot *ports.HoldSnapshot

	err := retry.Do(
		func() error {
			s, err := c.attempt(ctx, url, body, bearer, idempotencyKey)
			if err != nil {
				return err
			}
			snapshot = s
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return c.backoff * time.Duration(n+1)
		}),
	)
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && !retry.IsRecoverable(err) {
			return nil, appErr
		}
		return nil, apperrors.Wrap(apperrors.KindConflict,
			fmt.Sprintf("Wallet %s failed (%s)", op, apperrors.MessageOf(err)), err)
	}
	return snapshot, nil
}

func (c *Client) attempt(ctx context.Context, url string, body []byte, bearer, idempotencyKey string) (*ports.HoldSnapshot, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("build wallet request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, apperrors.Wrap(apperrors.KindUpstreamTimeout, "wallet request timed out", err)
		}
		return nil, apperrors.Wrap(apperrors.KindUpstreamUnavailable, "wallet service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, apperrors.Newf(apperrors.KindUpstreamUnavailable, "wallet service returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, retry.Unrecoverable(decodeError(resp))
	}

	var s ports.HoldSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, apperrors.Wrap(apperrors.KindUpstreamUnavailable, "invalid wallet response", err)
	}
	return &s, nil
}

// decodeError lifts the wallet service's uniform error body into the
// matching local error kind so the orchestrator's HTTP layer maps it back
// to the same status.
func decodeError(resp *http.Response) error {
	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	message := eb.Detail
	if message == "" {
		message = fmt.Sprintf("Wallet request rejected (%d)", resp.StatusCode)
	}

	kind := apperrors.KindConflict
	switch resp.StatusCode {
	case http.StatusNotFound:
		kind = apperrors.KindNotFound
	case http.StatusForbidden:
		kind = apperrors.KindForbidden
	case http.StatusUnauthorized:
		kind = apperrors.KindUnauthenticated
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = apperrors.KindValidation
	}
	return apperrors.New(kind, message)
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	var t timeouter
	return errors.As(err, &t) && t.Timeout()
}
