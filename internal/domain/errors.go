package domain

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrAuthInvalid  = fmt.Errorf("authentication failed")
	ErrCircuitOpen  = fmt.Errorf("circuit open")
	ErrConfigLoad   = fmt.Errorf("failed to load configuration")
	ErrEncryption   = fmt.Errorf("encryption operation failed")
	ErrStateStore   = fmt.Errorf("state store failed")
	ErrStopped      = fmt.Errorf("stopped")
)

// Sentinel errors for the setup flow.
var (
	// ErrValidation is returned when a local validator blocks a transition.
	// It never reaches the backend.
	ErrValidation = fmt.Errorf("validation failed")

	// ErrRunInProgress rejects a second provisioning run while one is active.
	ErrRunInProgress = fmt.Errorf("setup run already in progress")

	// ErrNoProvider is returned when a run starts without a provider or auth method.
	ErrNoProvider = fmt.Errorf("no AI provider selected")

	// ErrBackend wraps {ok:false} envelopes returned by the setup API.
	ErrBackend = fmt.Errorf("backend reported failure")

	// ErrTransport wraps network, HTTP status and decode failures.
	ErrTransport = fmt.Errorf("transport error")

	// ErrInvalidTransition is returned when a progress stage would regress.
	ErrInvalidTransition = fmt.Errorf("invalid stage transition")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Orchestrator.Run")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether the user can retry the operation that
// produced err without changing any input.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrBackend) || errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrTimeout) || errors.Is(err, ErrCircuitOpen)
}

// ErrorCode is a machine-parseable error category for logs and CLI exit output.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeAuthInvalid       ErrorCode = "AUTH_INVALID"
	CodeCircuitOpen       ErrorCode = "CIRCUIT_OPEN"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeEncryption        ErrorCode = "ENCRYPTION"
	CodeStateStore        ErrorCode = "STATE_STORE"
	CodeStopped           ErrorCode = "STOPPED"
	CodeValidation        ErrorCode = "VALIDATION"
	CodeRunInProgress     ErrorCode = "RUN_IN_PROGRESS"
	CodeNoProvider        ErrorCode = "NO_PROVIDER"
	CodeBackend           ErrorCode = "BACKEND"
	CodeTransport         ErrorCode = "TRANSPORT"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:          CodeNotFound,
	ErrInvalidInput:      CodeInvalidInput,
	ErrTimeout:           CodeTimeout,
	ErrAuthInvalid:       CodeAuthInvalid,
	ErrCircuitOpen:       CodeCircuitOpen,
	ErrConfigLoad:        CodeConfigLoad,
	ErrEncryption:        CodeEncryption,
	ErrStateStore:        CodeStateStore,
	ErrStopped:           CodeStopped,
	ErrValidation:        CodeValidation,
	ErrRunInProgress:     CodeRunInProgress,
	ErrNoProvider:        CodeNoProvider,
	ErrBackend:           CodeBackend,
	ErrTransport:         CodeTransport,
	ErrInvalidTransition: CodeInvalidTransition,
}

// codePriority lists sentinels checked when walking a wrapped chain, most
// specific first. A transport error caused by an open circuit reports
// CIRCUIT_OPEN rather than TRANSPORT.
var codePriority = []error{
	ErrCircuitOpen,
	ErrTimeout,
	ErrAuthInvalid,
	ErrRunInProgress,
	ErrNoProvider,
	ErrValidation,
	ErrInvalidTransition,
	ErrBackend,
	ErrTransport,
	ErrConfigLoad,
	ErrEncryption,
	ErrStateStore,
	ErrNotFound,
	ErrInvalidInput,
	ErrStopped,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for _, sentinel := range codePriority {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
