package domain

import "errors"

// Sentinel errors returned (wrapped) by OTP stores.
var (
	// ErrNotFound means no record exists for the email.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a guarded write lost to a re-issuance, a concurrent
	// verifier, or a vanished record.
	ErrConflict = errors.New("conflict")
)
