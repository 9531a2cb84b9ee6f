package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateTransitionError(t *testing.T) {
	err := NewStateTransitionError("task", "completed", "cancelled")
	assert.True(t, IsInvalidTransition(err))
	assert.Equal(t, `invalid task state transition: current "completed", requested "cancelled"`, err.Error())

	wrapped := fmt.Errorf("cancel: %w", err)
	assert.True(t, IsInvalidTransition(wrapped))

	assert.False(t, IsInvalidTransition(errors.New("boom")))
	assert.False(t, IsInvalidTransition(nil))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("budget", "must be greater than zero")
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "budget")
	assert.False(t, IsValidation(ErrTaskNotFound))
}
