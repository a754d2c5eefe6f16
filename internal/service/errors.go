package service

import "errors"

// Escrow core error taxonomy. Handlers map these onto HTTP statuses; callers
// can retry everything except AlreadyClaimed and AlreadyInitialized, which
// are permanent for the identity or address involved.
var (
	// ErrAlreadyInitialized is returned when a counter or pool already
	// exists at the target address.
	ErrAlreadyInitialized = errors.New("record already initialized at this address")

	// ErrUninitialized is returned when the identifier counter has not been
	// set up yet.
	ErrUninitialized = errors.New("pool counter not initialized")

	// ErrInvalidState is returned when the pool is not in the lifecycle
	// state the operation requires.
	ErrInvalidState = errors.New("pool is not in the required state")

	// ErrThresholdExceeded is returned when a contribution would push the
	// pool past its threshold.
	ErrThresholdExceeded = errors.New("contribution exceeds pool threshold")

	// ErrNotAuthorized is returned when the caller is neither the pool
	// admin (deploy) nor the receipt owner (claim).
	ErrNotAuthorized = errors.New("caller is not authorized for this operation")

	// ErrAlreadyClaimed is returned on a claim replay.
	ErrAlreadyClaimed = errors.New("receipt has already been claimed")

	// ErrExchangeFailed is returned when the external venue cannot satisfy
	// the swap; the deploy attempt is rolled back in full.
	ErrExchangeFailed = errors.New("exchange venue could not complete the swap")

	// ErrInvalidThreshold rejects non-positive pool thresholds.
	ErrInvalidThreshold = errors.New("threshold must be positive")

	// ErrInvalidAmount rejects non-positive or malformed amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidAddress is returned when a caller-supplied address does not
	// match the derivation from its logical keys.
	ErrInvalidAddress = errors.New("address does not match expected derivation")

	// ErrPoolNotFound is returned when no pool exists at the given address.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrReceiptNotFound is returned when no receipt exists at the given address.
	ErrReceiptNotFound = errors.New("receipt not found")
)
