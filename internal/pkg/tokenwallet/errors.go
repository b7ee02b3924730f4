package tokenwallet

import "errors"

var (
	// ErrInsufficientBalance is a business denial, not a bug: the caller
	// maps it to a "payment required" response.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrVersionConflict signals a lost optimistic-concurrency race. It is
	// retried inside the service and never surfaces unless retries exhaust.
	ErrVersionConflict = errors.New("wallet version conflict")

	// ErrConflictRetryExhausted surfaces after the bounded CAS retry loop
	// gives up; the whole operation is safe to retry later.
	ErrConflictRetryExhausted = errors.New("wallet contention retries exhausted")

	// ErrDuplicateIdempotencyKey is raised by the store when an entry with
	// the same (user, idempotency key) already exists.
	ErrDuplicateIdempotencyKey = errors.New("duplicate ledger idempotency key")

	ErrInvalidArgument = errors.New("invalid argument")
)
