package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := New(KindConflict, "Insufficient funds")
	assert.Equal(t, KindConflict, KindOf(err))

	wrapped := fmt.Errorf("use case failed: %w", err)
	assert.Equal(t, KindConflict, KindOf(wrapped), "kind survives wrapping")

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "Hold not found", MessageOf(ErrHoldNotFound))
	assert.Equal(t, "Internal server error", MessageOf(errors.New("sql: connection reset")),
		"unclassified errors must not leak internals")
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(KindUpstreamUnavailable, "Risk service unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindUpstreamUnavailable, KindOf(err))
	assert.Equal(t, "Risk service unavailable", MessageOf(err))
	assert.Contains(t, err.Error(), "dial tcp")
}
