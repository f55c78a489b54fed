// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., signature already recorded).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates malformed or missing request fields.
	ErrValidation = errors.New("validation")

	// ErrRateLimited indicates temporary sign-in lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Identity gate failures.
var (
	// ErrMissingToken indicates an absent or malformed bearer header.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken indicates a token with a bad signature, wrong shape or past expiry.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrWalletMismatch indicates the token wallet differs from the wallet claimed in the request.
	ErrWalletMismatch = errors.New("wallet does not match session")
)

// Verification failures. Each maps to its own client-facing status.
var (
	// ErrTxNotFound indicates the ledger has no (finalized) record of the signature yet.
	ErrTxNotFound = errors.New("transaction not found or not yet confirmed")

	// ErrTxFailed indicates the transaction exists but carries an on-chain error.
	ErrTxFailed = errors.New("transaction failed on-chain")

	// ErrNotSigner indicates the claimed wallet did not sign the transaction.
	ErrNotSigner = errors.New("wallet address is not a signer on this transaction")

	// ErrAmountIndeterminate indicates the spent amount cannot be derived from token balances.
	ErrAmountIndeterminate = errors.New("donated amount cannot be determined from balances")

	// ErrUnknownNeed indicates the claimed need slug is not recognized.
	ErrUnknownNeed = errors.New("unknown need")

	// ErrDestinationMismatch indicates the expected vault is absent from the transaction.
	ErrDestinationMismatch = errors.New("transaction does not target the need vault")

	// ErrRecordingFailed indicates a verified donation whose ledger row could not be stored.
	// The donation itself is final on-chain; the client should resubmit.
	ErrRecordingFailed = errors.New("donation confirmed on-chain but could not be recorded yet; please retry")
)

// Sign-in failures.
var (
	// ErrBadSignature indicates the signed sign-in message failed verification.
	ErrBadSignature = errors.New("invalid signature")

	// ErrNonceInvalid indicates an unknown, consumed or expired nonce.
	ErrNonceInvalid = errors.New("invalid or expired nonce")
)
