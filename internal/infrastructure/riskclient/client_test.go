package riskclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianpay/meridian/internal/application/ports"
	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/domain/money"
)

func testEvent() ports.RiskEvent {
	return ports.RiskEvent{
		EventType:      "payment_intent",
		SubjectID:      "intent-7",
		UserID:         "1",
		Amount:         money.MustParse("49.99"),
		Currency:       "USD",
		Metadata:       map[string]string{"client_ip": "10.0.0.1"},
		IdempotencyKey: "pi-risk-7",
		BearerToken:    "tok",
	}
}

func TestEvaluate(t *testing.T) {
	t.Run("submits the event and returns the decision", func(t *testing.T) {
		var got map[string]any
		var header http.Header
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/evaluations", r.URL.Path)
			header = r.Header.Clone()
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "decision": "approve", "risk_score": 12.5})
		}))
		defer srv.Close()

		c := New(srv.URL, time.Second)
		decision, err := c.Evaluate(context.Background(), testEvent())
		require.NoError(t, err)
		assert.Equal(t, ports.RiskDecisionApprove, decision)

		assert.Equal(t, "payment_intent", got["event_type"])
		assert.Equal(t, "intent-7", got["subject_id"])
		assert.Equal(t, "49.99", got["amount"], "amounts travel as strings")
		assert.Equal(t, "pi-risk-7", header.Get("Idempotency-Key"))
		assert.Equal(t, "Bearer tok", header.Get("Authorization"))
	})

	t.Run("passes decline and review through", func(t *testing.T) {
		for _, decision := range []string{"decline", "review"} {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"decision": decision})
			}))
			got, err := New(srv.URL, time.Second).Evaluate(context.Background(), testEvent())
			srv.Close()
			require.NoError(t, err)
			assert.Equal(t, ports.RiskDecision(decision), got)
		}
	})

	t.Run("5xx is unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := New(srv.URL, time.Second).Evaluate(context.Background(), testEvent())
		assert.Equal(t, apperrors.KindUpstreamUnavailable, apperrors.KindOf(err))
	})

	t.Run("4xx is a conflict", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		_, err := New(srv.URL, time.Second).Evaluate(context.Background(), testEvent())
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	})

	t.Run("unknown decision is never an approval", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"decision": "escalate"})
		}))
		defer srv.Close()

		_, err := New(srv.URL, time.Second).Evaluate(context.Background(), testEvent())
		assert.Equal(t, apperrors.KindUpstreamUnavailable, apperrors.KindOf(err))
	})

	t.Run("timeout maps to upstream timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		_, err := New(srv.URL, 50*time.Millisecond).Evaluate(context.Background(), testEvent())
		assert.Equal(t, apperrors.KindUpstreamTimeout, apperrors.KindOf(err))
	})

	t.Run("unreachable service is unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close()

		_, err := New(srv.URL, time.Second).Evaluate(context.Background(), testEvent())
		assert.Equal(t, apperrors.KindUpstreamUnavailable, apperrors.KindOf(err))
	})
}
