package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WrapMultisigError wraps an error as a MultisigError if it isn't already one
func WrapMultisigError(err error, code ErrorCode, message string) *MultisigError {
	if err == nil {
		return nil
	}

	var msErr *MultisigError
	if errors.As(err, &msErr) {
		msErr.WithContext("wrapped_message", message)
		return msErr
	}

	return NewMultisigError(code, message, err)
}

// IsCode checks if an error is a MultisigError with specific code
func IsCode(err error, code ErrorCode) bool {
	var msErr *MultisigError
	if errors.As(err, &msErr) {
		return msErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost MultisigError in the chain, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var msErr *MultisigError
	if errors.As(err, &msErr) {
		return msErr.Code
	}
	return ErrCodeInternal
}
