package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorUnwrapsToSentinel(t *testing.T) {
	err := NewValidationError("entryPrice", "abc", "must be a number")

	assert.True(t, Is(err, ErrInputValidation))
	assert.True(t, IsValidation(fmt.Errorf("compute: %w", err)))
	assert.Contains(t, err.Error(), "entryPrice")

	var ve *ValidationError
	assert.True(t, As(Wrap(err, "add trade"), &ve))
	assert.Equal(t, "entryPrice", ve.Field)
}

func TestStoreErrorKeepsCause(t *testing.T) {
	err := NewStoreError("delete", "u1", ErrTradeNotFound)

	assert.True(t, IsNotFound(err))
	assert.Equal(t, "store error [delete] user u1: trade not found", err.Error())
	assert.Equal(t, "store error [list]: boom", NewStoreError("list", "", fmt.Errorf("boom")).Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ctx"))
	assert.Nil(t, Wrapf(nil, "ctx %d", 1))
	assert.EqualError(t, Wrapf(ErrTimeout, "refresh %s", "u1"), "refresh u1: operation timed out")
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(NewStoreError("list", "u1", context.DeadlineExceeded)))
	assert.True(t, IsTimeout(Wrap(ErrTimeout, "refresh")))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(nil))
}

func TestConfigErrorIsConfigInvalid(t *testing.T) {
	err := NewConfigError("store.backend", "unsupported")
	assert.True(t, Is(err, ErrConfigInvalid))
}
