package paymentsvc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianpay/meridian/internal/application/ports"
	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/entities"
	"github.com/meridianpay/meridian/internal/domain/money"
)

type fakeIntentRepo struct {
	intents map[int64]*entities.PaymentIntent
	nextID  int64
}

func newFakeIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{intents: map[int64]*entities.PaymentIntent{}}
}

func (r *fakeIntentRepo) Create(_ context.Context, p *entities.PaymentIntent) error {
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.intents[p.ID] = &cp
	return nil
}

func (r *fakeIntentRepo) Get(_ context.Context, id, userID int64) (*entities.PaymentIntent, error) {
	p, ok := r.intents[id]
	if !ok || p.UserID != userID {
		return nil, apperrors.ErrIntentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeIntentRepo) Update(_ context.Context, p *entities.PaymentIntent) error {
	stored, ok := r.intents[p.ID]
	if !ok {
		return apperrors.ErrIntentNotFound
	}
	*stored = *p
	return nil
}

type fakeRisk struct {
	decision ports.RiskDecision
	err      error
	events   []ports.RiskEvent
}

func (r *fakeRisk) Evaluate(_ context.Context, event ports.RiskEvent) (ports.RiskDecision, error) {
	r.events = append(r.events, event)
	if r.err != nil {
		return "", r.err
	}
	return r.decision, nil
}

// gatewayCall records one wallet gateway invocation for assertions.
type gatewayCall struct {
	Op             string
	WalletID       int64
	HoldID         int64
	IdempotencyKey string
	Bearer         string
}

type fakeWalletGateway struct {
	calls []gatewayCall

	createErr     error
	captureErr    error
	releaseErr    error
	captureStatus string
	releaseStatus string
	nextHoldID    int64
}

func newFakeWalletGateway() *fakeWalletGateway {
	return &fakeWalletGateway{captureStatus: "captured", releaseStatus: "released", nextHoldID: 100}
}

func (g *fakeWalletGateway) CreateHold(_ context.Context, bearer string, walletID int64, amount money.Money, key string) (*ports.HoldSnapshot, error) {
	g.calls = append(g.calls, gatewayCall{Op: "create", WalletID: walletID, IdempotencyKey: key, Bearer: bearer})
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextHoldID++
	return &ports.HoldSnapshot{ID: g.nextHoldID, WalletID: walletID, Amount: amount.String(), Status: "active"}, nil
}

func (g *fakeWalletGateway) CaptureHold(_ context.Context, bearer string, walletID, holdID int64, key string) (*ports.HoldSnapshot, error) {
	g.calls = append(g.calls, gatewayCall{Op: "capture", WalletID: walletID, HoldID: holdID, IdempotencyKey: key, Bearer: bearer})
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	return &ports.HoldSnapshot{ID: holdID, WalletID: walletID, Status: g.captureStatus}, nil
}

func (g *fakeWalletGateway) ReleaseHold(_ context.Context, bearer string, walletID, holdID int64, key string) (*ports.HoldSnapshot, error) {
	g.calls = append(g.calls, gatewayCall{Op: "release", WalletID: walletID, HoldID: holdID, IdempotencyKey: key, Bearer: bearer})
	if g.releaseErr != nil {
		return nil, g.releaseErr
	}
	return &ports.HoldSnapshot{ID: holdID, WalletID: walletID, Status: g.releaseStatus}, nil
}

func (g *fakeWalletGateway) ops() []string {
	out := make([]string, 0, len(g.calls))
	for _, c := range g.calls {
		out = append(out, c.Op)
	}
	return out
}

type env struct {
	intents *fakeIntentRepo
	risk    *fakeRisk
	gateway *fakeWalletGateway
	svc     *Service
}

func newEnv() *env {
	intents := newFakeIntentRepo()
	risk := &fakeRisk{decision: ports.RiskDecisionApprove}
	gateway := newFakeWalletGateway()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &env{
		intents: intents,
		risk:    risk,
		gateway: gateway,
		svc:     New(intents, risk, gateway, log),
	}
}

func (e *env) addIntent(userID, walletID int64, amount string) *entities.PaymentIntent {
	p := entities.NewPaymentIntent(userID, walletID, money.MustParse(amount), "USD")
	_ = e.intents.Create(context.Background(), p)
	return p
}

func TestCreateIntent(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	p, err := e.svc.CreateIntent(ctx, 1, 7, money.MustParse("49.99"), "USD")
	require.NoError(t, err)
	assert.Equal(t, entities.IntentStatusPending, p.Status)
	assert.Nil(t, p.HoldID)

	_, err = e.svc.CreateIntent(ctx, 1, 7, money.Money{}, "USD")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("settles via hold then capture", func(t *testing.T) {
		e := newEnv()
		p := e.addIntent(1, 7, "49.99")

		got, err := e.svc.Confirm(ctx, p.ID, 1, "tok", map[string]string{"client_ip": "10.0.0.1"})
		require.NoError(t, err)
		assert.Equal(t, entities.IntentStatusConfirmed, got.Status)
		require.NotNil(t, got.HoldID)

		require.Len(t, e.risk.events, 1)
		event := e.risk.events[0]
		assert.Equal(t, "payment_intent", event.EventType)
		assert.Equal(t, fmt.Sprintf("intent-%d", p.ID), event.SubjectID)
		assert.Equal(t, fmt.Sprintf("pi-risk-%d", p.ID), event.IdempotencyKey)
		assert.Equal(t, "tok", event.BearerToken)

		require.Equal(t, []string{"create", "capture"}, e.gateway.ops())
		assert.Equal(t, fmt.Sprintf("pi-hold-%d", p.ID), e.gateway.calls[0].IdempotencyKey)
		assert.Equal(t, fmt.Sprintf("pi-hold-capture-%d", p.ID), e.gateway.calls[1].IdempotencyKey)
		assert.Equal(t, *got.HoldID, e.gateway.calls[1].HoldID)

		stored, _ := e.intents.Get(ctx, p.ID, 1)
		assert.Equal(t, entities.IntentStatusConfirmed, stored.Status)
	})

	t.Run("non-pending intent returns unchanged", func(t *testing.T) {
		for _, status := range []entities.IntentStatus{
			entities.IntentStatusConfirmed,
			entities.IntentStatusDeclined,
			entities.IntentStatusCanceled,
			entities.IntentStatusReview,
		} {
			e := newEnv()
			p := e.addIntent(1, 7, "49.99")
			e.intents.intents[p.ID].Status = status

			got, err := e.svc.Confirm(ctx, p.ID, 1, "tok", nil)
			require.NoError(t, err, "status %s", status)
			assert.Equal(t, status, got.Status)
			assert.Empty(t, e.gateway.calls, "status %s must not reach the wallet", status)
			assert.Empty(t, e.risk.events, "status %s must not be re-scored", status)
		}
	})

	t.Run("decline persists and forbids", func(t *testing.T) {
		e := newEnv()
		e.risk.decision = ports.RiskDecisionDecline
		p := e.addIntent(1, 7, "49.99")

		_, err := e.svc.Confirm(ctx, p.ID, 1, "tok", nil)
		assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
		assert.Empty(t, e.gateway.calls, "declined intents never touch the wallet")

		stored, _ := e.intents.Get(ctx, p.ID, 1)
		assert.Equal(t, entities.IntentStatusDeclined, stored.Status)
	})

	t.Run("review persists and conflicts", func(t *testing.T) {
		e := newEnv()
		e.risk.decision = ports.RiskDecisionReview
		p := e.addIntent(1, 7, "49.99")

		_, err := e.svc.Confirm(ctx, p.ID, 1, "tok", nil)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
		assert.Empty(t, e.gateway.calls)

		stored, _ := e.intents.Get(ctx, p.ID, 1)
		assert.Equal(t, entities.IntentStatusReview, stored.Status)
	})

	t.Run("risk outage leaves the intent retryable", func(t *testing.T) {
		e := newEnv()
		e.risk.err = apperrors.New(apperrors.KindUpstreamTimeout, "Risk evaluation timed out")
		p := e.addIntent(1, 7, "49.99")

		_, err := e.svc.Confirm(ctx, p.ID, 1, "tok", nil)
		assert.Equal(t, apperrors.KindUpstreamTimeout, apperrors.KindOf(err))

		stored, _ := e.intents.Get(ctx, p.ID, 1)
		assert.Equal(t, entities.IntentStatusPending, stored.Status)
	})

	t.Run("re-entry reuses the attached hold", func(t *testing.T) {
		e := newEnv()
		e.captureFailsOnce()
		p := e.addIntent(1, 7, "49.99")

		_, err := e.svc.Confirm(ctx, p.ID, 1, "tok", nil)
		require.Error(t, err)

		stored, _ := e.intents.Get(ctx, p.ID, 1)
		assert.Equal(t, entities.IntentStatusPending, stored.Status)
		require.NotNil(t, stored.HoldID, "hold attachment survives the failed capture")
		attached := *stored.HoldID

		got, err := e.svc.Confirm(ctx, p.ID, 1, "tok", nil)
		require.NoError(t, err)
		assert.Equal(t, entities.IntentStatusConfirmed, got.Status)
		assert.Equal(t, attached, *got.HoldID)
		assert.Equal(t, []string{"create", "capture", "capture"}, e.gateway.ops(), "no second hold on re-entry")
	})

	t.Run("released hold still confirms", func(t *testing.T) {
		// A capture replayed after a lost race reports released; the
		// intent closes rather than erroring forever.
		e := newEnv()
		e.gateway.captureStatus = "released"
		p := e.addIntent(1, 7, "49.99")

		got, err := e.svc.Confirm(ctx, p.ID, 1, "tok", nil)
		require.NoError(t, err)
		assert.Equal(t, entities.IntentStatusConfirmed, got.Status)
	})

	t.Run("unexpected hold status is an upstream fault", func(t *testing.T) {
		e := newEnv()
		e.gateway.captureStatus = "active"
		p := e.addIntent(1, 7, "49.99")

		_, err := e.svc.Confirm(ctx, p.ID, 1, "tok", nil)
		assert.Equal(t, apperrors.KindUpstreamUnavailable, apperrors.KindOf(err))

		stored, _ := e.intents.Get(ctx, p.ID, 1)
		assert.Equal(t, entities.IntentStatusPending, stored.Status)
	})

	t.Run("foreign intent reads as missing", func(t *testing.T) {
		e := newEnv()
		p := e.addIntent(1, 7, "49.99")

		_, err := e.svc.Confirm(ctx, p.ID, 2, "tok", nil)
		assert.ErrorIs(t, err, apperrors.ErrIntentNotFound)
	})
}

// captureFailsOnce makes the first capture attempt fail with a timeout and
// subsequent ones succeed.
func (e *env) captureFailsOnce() {
	failed := false
	inner := e.gateway
	e.svc.wallets = gatewayFunc{
		create: inner.CreateHold,
		capture: func(ctx context.Context, bearer string, walletID, holdID int64, key string) (*ports.HoldSnapshot, error) {
			if !failed {
				failed = true
				inner.calls = append(inner.calls, gatewayCall{Op: "capture", WalletID: walletID, HoldID: holdID, IdempotencyKey: key, Bearer: bearer})
				return nil, apperrors.New(apperrors.KindUpstreamTimeout, "Wallet capture failed")
			}
			return inner.CaptureHold(ctx, bearer, walletID, holdID, key)
		},
		release: inner.ReleaseHold,
	}
}

type gatewayFunc struct {
	create  func(context.Context, string, int64, money.Money, string) (*ports.HoldSnapshot, error)
	capture func(context.Context, string, int64, int64, string) (*ports.HoldSnapshot, error)
	release func(context.Context, string, int64, int64, string) (*ports.HoldSnapshot, error)
}

func (g gatewayFunc) CreateHold(ctx context.Context, bearer string, walletID int64, amount money.Money, key string) (*ports.HoldSnapshot, error) {
	return g.create(ctx, bearer, walletID, amount, key)
}

func (g gatewayFunc) CaptureHold(ctx context.Context, bearer string, walletID, holdID int64, key string) (*ports.HoldSnapshot, error) {
	return g.capture(ctx, bearer, walletID, holdID, key)
}

func (g gatewayFunc) ReleaseHold(ctx context.Context, bearer string, walletID, holdID int64, key string) (*ports.HoldSnapshot, error) {
	return g.release(ctx, bearer, walletID, holdID, key)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending intent without a hold cancels directly", func(t *testing.T) {
		e := newEnv()
		p := e.addIntent(1, 7, "49.99")

		got, err := e.svc.Cancel(ctx, p.ID, 1, "tok")
		require.NoError(t, err)
		assert.Equal(t, entities.IntentStatusCanceled, got.Status)
		assert.Empty(t, e.gateway.calls)
	})

	t.Run("attached hold is released first", func(t *testing.T) {
		e := newEnv()
		e.captureFailsOnce()
		p := e.addIntent(1, 7, "49.99")

		_, err := e.svc.Confirm(ctx, p.ID, 1, "tok", nil)
		require.Error(t, err)

		got, err := e.svc.Cancel(ctx, p.ID, 1, "tok")
		require.NoError(t, err)
		assert.Equal(t, entities.IntentStatusCanceled, got.Status)

		last := e.gateway.calls[len(e.gateway.calls)-1]
		assert.Equal(t, "release", last.Op)
		assert.Equal(t, fmt.Sprintf("pi-hold-release-%d", p.ID), last.IdempotencyKey)
	})

	t.Run("review intent is cancelable", func(t *testing.T) {
		e := newEnv()
		p := e.addIntent(1, 7, "49.99")
		e.intents.intents[p.ID].Status = entities.IntentStatusReview

		got, err := e.svc.Cancel(ctx, p.ID, 1, "tok")
		require.NoError(t, err)
		assert.Equal(t, entities.IntentStatusCanceled, got.Status)
	})

	t.Run("repeated cancel returns unchanged", func(t *testing.T) {
		e := newEnv()
		p := e.addIntent(1, 7, "49.99")

		_, err := e.svc.Cancel(ctx, p.ID, 1, "tok")
		require.NoError(t, err)

		got, err := e.svc.Cancel(ctx, p.ID, 1, "tok")
		require.NoError(t, err)
		assert.Equal(t, entities.IntentStatusCanceled, got.Status)
		assert.Empty(t, e.gateway.calls, "no release on repeat")
	})

	t.Run("terminal intents cannot be canceled", func(t *testing.T) {
		for _, status := range []entities.IntentStatus{entities.IntentStatusConfirmed, entities.IntentStatusDeclined} {
			e := newEnv()
			p := e.addIntent(1, 7, "49.99")
			e.intents.intents[p.ID].Status = status

			_, err := e.svc.Cancel(ctx, p.ID, 1, "tok")
			require.Error(t, err, "status %s", status)
			assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
		}
	})

	t.Run("release failure keeps the intent", func(t *testing.T) {
		e := newEnv()
		e.captureFailsOnce()
		p := e.addIntent(1, 7, "49.99")
		_, err := e.svc.Confirm(ctx, p.ID, 1, "tok", nil)
		require.Error(t, err)

		e.gateway.releaseErr = apperrors.New(apperrors.KindUpstreamUnavailable, "Wallet service unavailable")
		_, err = e.svc.Cancel(ctx, p.ID, 1, "tok")
		assert.Equal(t, apperrors.KindUpstreamUnavailable, apperrors.KindOf(err))

		stored, _ := e.intents.Get(ctx, p.ID, 1)
		assert.Equal(t, entities.IntentStatusPending, stored.Status, "cancel must not land without the release")
	})
}
