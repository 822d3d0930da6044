package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfClassifiedError(t *testing.T) {
	err := New(StateViolation, "cannot settle account %d", 40)
	assert.Equal(t, StateViolation, KindOf(err))
	assert.True(t, Is(err, StateViolation))
	assert.False(t, Is(err, NotFound))
	assert.Contains(t, err.Error(), "cannot settle account 40")
}

func TestKindOfWrappedError(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Transport, cause, "backend unreachable")

	assert.Equal(t, Transport, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")

	// a fault survives another layer of wrapping
	outer := fmt.Errorf("loading tables: %w", err)
	assert.True(t, Is(outer, Transport))
}

func TestUnclassifiedDefaultsToTransport(t *testing.T) {
	assert.Equal(t, Transport, KindOf(errors.New("boom")))
	assert.False(t, Is(errors.New("boom"), Validation))
}

func TestKindLabels(t *testing.T) {
	assert.Equal(t, "conflict_equivalent", ConflictEquivalent.String())
	assert.Equal(t, "auth_expired", AuthExpired.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
