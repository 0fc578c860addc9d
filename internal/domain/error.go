package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrForbidden          = errors.New("forbidden")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid exec context")
	ErrLockBusy           = errors.New("lock is held by another worker")

	// Payment lifecycle
	ErrInvalidTransition  = errors.New("payment status transition not allowed")
	ErrUnknownPackageKind = errors.New("unknown package kind")
)

// FaultClass groups faults by how callers are expected to react.
type FaultClass string

const (
	// FaultValidation is rejected before any mutation; the caller must fix the request.
	FaultValidation FaultClass = "validation"
	// FaultUpstream means the gateway or receipt verifier failed; the user may retry.
	FaultUpstream FaultClass = "upstream"
	// FaultIntegrity aborts the operation; stored data is inconsistent.
	FaultIntegrity FaultClass = "integrity"
)

// Fault is a structured error carrying a stable code for API responses.
type Fault struct {
	Class   FaultClass
	Code    string
	Message string
	Err     error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

func Validation(code, msg string) *Fault {
	return &Fault{Class: FaultValidation, Code: code, Message: msg, Err: ErrInvalidArgument}
}

func Upstream(code, msg string, err error) *Fault {
	return &Fault{Class: FaultUpstream, Code: code, Message: msg, Err: err}
}

func Integrity(code, msg string) *Fault {
	return &Fault{Class: FaultIntegrity, Code: code, Message: msg}
}

// Forbidden is a validation fault that also matches ErrForbidden.
func Forbidden(code, msg string) *Fault {
	return &Fault{Class: FaultValidation, Code: code, Message: msg, Err: ErrForbidden}
}

// FaultOf extracts the structured fault from err, if any.
func FaultOf(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
