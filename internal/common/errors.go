// Package common defines shared constants and sentinel errors used across
// the Heatwave core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Validation errors: a required field is missing or empty. Detected
	// before any write and surfaced synchronously.
	ErrValidation = errors.New("missing required field")

	// Conflict: a handle is already registered. The check is a
	// read-before-write, so a race between two registrations can still
	// produce duplicate handles; that gap is part of the contract.
	ErrConflict = errors.New("handle already taken")

	// Authentication errors, detected after a one-shot read.
	ErrUnauthorized = errors.New("unauthorized")

	// Not-found: no profile for a handle or external identity
	// (first-time external login lands here).
	ErrNotFound = errors.New("not found")

	// Transient I/O failure: any store read/write rejection. Never
	// escalates past the operation that hit it; the user sees a notice
	// and can retry manually.
	ErrTransient = errors.New("temporary failure")
)
