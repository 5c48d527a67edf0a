package ierr

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrInternalServer = errors.New("internal server error")

	// Challenge/response and token taxonomy. Every one of these surfaces as 401.
	ErrInvalidAPIKey           = errors.New("invalid api key")
	ErrAPIKeyRequired          = errors.New("api key required")
	ErrInvalidOrExpiredRequest = errors.New("invalid or expired request")
	ErrInvalidChallenge        = errors.New("invalid challenge")
	ErrInvalidHMAC             = errors.New("invalid hmac")
	ErrAuthenticationRequired  = errors.New("authentication required")
	ErrInvalidToken            = errors.New("invalid token")
	ErrTokenExpired            = errors.New("token expired")
)
