package domain

import "errors"

var (
	// ErrValidation marks malformed booking input; wrap it with the offending fields.
	ErrValidation = errors.New("validation failed")
	// ErrOrderNotFound is returned when no order matches the given id or payment reference.
	ErrOrderNotFound = errors.New("order not found")
	// ErrConflict is returned by compare-and-set updates when the stored status
	// does not match the expected one. Handled internally, never surfaced.
	ErrConflict = errors.New("status conflict")
	// ErrBadSignature marks a payment event that failed signature verification.
	ErrBadSignature = errors.New("invalid event signature")
	// ErrNotifier marks a failed manifest dispatch; the order stays retryable.
	ErrNotifier = errors.New("manifest dispatch failed")
	// ErrInvariant signals internal state corruption, e.g. two different
	// notifier message ids for one order. A bug, not a runtime condition.
	ErrInvariant = errors.New("invariant violation")
)
