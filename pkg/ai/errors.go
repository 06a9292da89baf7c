// Package ai holds the error taxonomy and retry helper shared by the provider
// ports and the live loop.
package ai

import "errors"

// Provider error classification
var (
	// ErrRecoverable indicates a temporary failure that may succeed if retried.
	// Examples: network timeout, rate limiting, temporary service unavailability.
	ErrRecoverable = errors.New("recoverable provider error")

	// ErrFatal indicates a permanent failure that will not succeed if retried.
	// Examples: invalid API key, missing model file, malformed request.
	ErrFatal = errors.New("fatal provider error")
)

// Live loop error taxonomy. None of these is fatal to the process.
var (
	// ErrClassifierUnavailable means the model or its runtime failed to initialize.
	// The loop refuses to enter Running.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrClassifierCallFailed means a single prediction call failed. The tick is
	// treated as "no sample" and stability is left untouched.
	ErrClassifierCallFailed = errors.New("classifier call failed")

	// ErrSpeechUnavailable means no speech output is available. Dispatch silently no-ops.
	ErrSpeechUnavailable = errors.New("speech unavailable")

	// ErrRemoteAdviceFailed means the remote assistant call failed; a static
	// fallback answer is used instead.
	ErrRemoteAdviceFailed = errors.New("remote advice failed")

	// ErrSourceUnavailable means the frame source could not be acquired.
	ErrSourceUnavailable = errors.New("frame source unavailable")
)

// IsRecoverable checks if an error is recoverable and should be retried
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrRecoverable)
}

// IsFatal checks if an error is fatal and should not be retried
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// RetryableError wraps an underlying error with retry classification
type RetryableError struct {
	Underlying error
	Retryable  bool
	Message    string
}

func (e *RetryableError) Error() string {
	if e.Message != "" {
		if e.Underlying != nil {
			return e.Message + ": " + e.Underlying.Error()
		}
		return e.Message
	}
	if e.Underlying == nil {
		return "provider error"
	}
	return e.Underlying.Error()
}

// Unwrap exposes both the classification sentinel and the underlying error.
func (e *RetryableError) Unwrap() []error {
	class := ErrFatal
	if e.Retryable {
		class = ErrRecoverable
	}
	if e.Underlying == nil {
		return []error{class}
	}
	return []error{class, e.Underlying}
}

// NewRecoverableError creates a recoverable error with context
func NewRecoverableError(underlying error, message string) error {
	return &RetryableError{
		Underlying: underlying,
		Retryable:  true,
		Message:    message,
	}
}

// NewFatalError creates a fatal error with context
func NewFatalError(underlying error, message string) error {
	return &RetryableError{
		Underlying: underlying,
		Retryable:  false,
		Message:    message,
	}
}
