package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultisigErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *MultisigError
		expected string
	}{
		{
			name:     "validation without cause",
			err:      NewValidationError("threshold must be at least 1"),
			expected: "[VALIDATION] threshold must be at least 1",
		},
		{
			name:     "device error with cause",
			err:      NewDeviceError("failed to sign message", errors.New("APDU_CODE_CONDITIONS_NOT_SATISFIED")),
			expected: "[DEVICE] failed to sign message: APDU_CODE_CONDITIONS_NOT_SATISFIED",
		},
		{
			name:     "not found carries address",
			err:      NewNotFoundError("source token account", "Abc"),
			expected: "[NOT_FOUND] source token account not found (address=Abc)",
		},
		{
			name: "context keys are sorted",
			err: NewSubmissionError("transaction rejected", nil).
				WithContext("signature", "sig").
				WithContext("reason", "Blockhash not found"),
			expected: "[SUBMISSION] transaction rejected (reason=Blockhash not found, signature=sig)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	base := NewMalformedTransportError("invalid base64", errors.New("illegal base64 data"))
	wrapped := fmt.Errorf("submit: %w", base)

	assert.True(t, IsCode(wrapped, ErrCodeMalformedTransport))
	assert.False(t, IsCode(wrapped, ErrCodeSubmission))
	assert.Equal(t, ErrCodeMalformedTransport, CodeOf(wrapped))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))
	assert.False(t, IsCode(nil, ErrCodeValidation))
}

func TestWrapMultisigError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, WrapMultisigError(nil, ErrCodeRPC, "ignored"))
		assert.NoError(t, Wrap(nil, "ignored"))
		assert.NoError(t, Wrapf(nil, "ignored %d", 1))
	})

	t.Run("plain error becomes typed", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := WrapMultisigError(cause, ErrCodeRPC, "get account info")
		require.NotNil(t, err)
		assert.Equal(t, ErrCodeRPC, err.Code)
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("typed error keeps its code", func(t *testing.T) {
		orig := NewNotFoundError("multisig account", "X")
		err := WrapMultisigError(fmt.Errorf("outer: %w", orig), ErrCodeRPC, "fetch multisig")
		assert.Equal(t, ErrCodeNotFound, err.Code)
		assert.Equal(t, "fetch multisig", err.Context["wrapped_message"])
	})
}
