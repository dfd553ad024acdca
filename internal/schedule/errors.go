package schedule

import "strings"

// ValidationError reports every violation found in one validation pass so the
// caller can fix all of them in a single round trip instead of resubmitting
// per failed check.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid payment term: " + strings.Join(e.Violations, "; ")
}

// ConflictError signals an operation that would duplicate existing state,
// e.g. materializing a payment plan twice or re-approving a settled payment.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// AllocationError signals that a payment amount cannot be fully distributed
// across the targeted or available schedule rows. The operation is
// all-or-nothing: no row is mutated when this is returned.
type AllocationError struct {
	Msg string
}

func (e *AllocationError) Error() string { return e.Msg }

// NotFoundError signals a referenced term/invoice/schedule id that does not exist.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }
