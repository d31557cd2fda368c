package ledger

import (
	"errors"
	"fmt"
)

// Error types for accounting and persistence failures.
var (
	// ErrUnknownService is returned when a cost report names a service
	// outside the fixed set. This is a programmer or configuration error
	// and is never retried.
	ErrUnknownService = errors.New("unknown service")

	// ErrUnknownOperation is returned when a cost report names an
	// operation kind outside the fixed set.
	ErrUnknownOperation = errors.New("unknown operation kind")

	// ErrNegativeAmount is returned when a cost report carries a
	// negative amount.
	ErrNegativeAmount = errors.New("cost amount must be non-negative")

	// ErrPersistence is returned when the ledger store fails to read or
	// write. The operation is considered not committed; the previous
	// durable state remains intact and the caller may retry.
	ErrPersistence = errors.New("ledger persistence failure")
)

// UnknownServiceError wraps ErrUnknownService with the offending name.
func UnknownServiceError(s Service) error {
	return fmt.Errorf("%w: %q", ErrUnknownService, string(s))
}

// UnknownOperationError wraps ErrUnknownOperation with the offending name.
func UnknownOperationError(k OperationKind) error {
	return fmt.Errorf("%w: %q", ErrUnknownOperation, string(k))
}
