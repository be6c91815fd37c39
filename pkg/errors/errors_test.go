package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(Store(errors.New("conn reset"), "load session")))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(Clone(ErrValidation, "tutorUid is required")))
	assert.False(t, IsRetryable(ErrInvalidTransition))
	assert.False(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrNotFound)))
}

func TestCloneMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("handler: %w", Clone(ErrValidation, "slot.block is required"))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrStore))
	assert.Equal(t, "VALIDATION_ERROR", FromError(err).Code)
}
