package domain

import "errors"

// Sentinel errors for the domain layer. The realtime engine and the API
// layers map these onto wire error codes.
var (
	ErrNotFound     = errors.New("domain: not found")
	ErrConflict     = errors.New("domain: conflict")
	ErrUnauthorized = errors.New("domain: unauthorized")
	ErrForbidden    = errors.New("domain: forbidden")
	ErrStaleVersion = errors.New("domain: stale version")
	ErrValidation   = errors.New("domain: validation failed")
)
