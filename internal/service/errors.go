package service

import "errors"

// Stable error kinds surfaced at component boundaries. Handlers map
// these onto HTTP statuses; storage-engine detail never crosses this
// line.
var (
	ErrValidation        = errors.New("invalid input")
	ErrCodeInvalid       = errors.New("enrollment code not found")
	ErrCodeExpired       = errors.New("enrollment code expired")
	ErrCodeAlreadyUsed   = errors.New("enrollment code already used")
	ErrCredentialInvalid = errors.New("credential invalid")
	ErrCredentialExpired = errors.New("credential expired")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidMembership = errors.New("invalid membership")
	ErrUnavailable       = errors.New("service unavailable")
)
