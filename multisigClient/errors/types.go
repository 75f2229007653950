package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents different categories of errors
type ErrorCode string

const (
	// ErrCodeValidation indicates a locally detected input problem (threshold, mint, balance, amount)
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeDevice indicates a hardware signer failure (absent, locked, app closed, rejected)
	ErrCodeDevice ErrorCode = "DEVICE"

	// ErrCodeDeviceNotFound indicates no matching hardware signer is attached
	ErrCodeDeviceNotFound ErrorCode = "DEVICE_NOT_FOUND"

	// ErrCodeMalformedTransport indicates an undecodable transport string or signature
	ErrCodeMalformedTransport ErrorCode = "MALFORMED_TRANSPORT"

	// ErrCodeNotFound indicates a referenced account does not exist on-chain
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeSubmission indicates the network refused or failed to execute a transaction
	ErrCodeSubmission ErrorCode = "SUBMISSION"

	// ErrCodeRPC indicates an RPC transport failure
	ErrCodeRPC ErrorCode = "RPC"

	// ErrCodeConfig indicates configuration errors
	ErrCodeConfig ErrorCode = "CONFIG"

	// ErrCodeInternal indicates internal defects
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// MultisigError is the error type surfaced to the operator by every command.
type MultisigError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// NewMultisigError creates a new MultisigError
func NewMultisigError(code ErrorCode, message string, cause error) *MultisigError {
	return &MultisigError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *MultisigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *MultisigError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *MultisigError) WithContext(key string, value interface{}) *MultisigError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors

// NewValidationError creates a validation error
func NewValidationError(message string) *MultisigError {
	return NewMultisigError(ErrCodeValidation, message, nil)
}

// NewDeviceError creates a hardware signer error
func NewDeviceError(message string, cause error) *MultisigError {
	return NewMultisigError(ErrCodeDevice, message, cause)
}

// NewDeviceNotFoundError creates an error for a missing hardware signer
func NewDeviceNotFoundError(message string) *MultisigError {
	return NewMultisigError(ErrCodeDeviceNotFound, message, nil)
}

// NewMalformedTransportError creates an error for undecodable transport data
func NewMalformedTransportError(message string, cause error) *MultisigError {
	return NewMultisigError(ErrCodeMalformedTransport, message, cause)
}

// NewNotFoundError creates an error for an on-chain account that does not exist
func NewNotFoundError(what, address string) *MultisigError {
	return NewMultisigError(ErrCodeNotFound, what+" not found", nil).WithContext("address", address)
}

// NewSubmissionError creates a submission error
func NewSubmissionError(message string, cause error) *MultisigError {
	return NewMultisigError(ErrCodeSubmission, message, cause)
}

// NewRPCError creates an RPC error
func NewRPCError(message string, cause error) *MultisigError {
	return NewMultisigError(ErrCodeRPC, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *MultisigError {
	return NewMultisigError(ErrCodeConfig, message, nil)
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *MultisigError {
	return NewMultisigError(ErrCodeInternal, message, cause)
}
