package metrics

import (
	"errors"

	"github.com/makkenzo/keyauth-service/internal/ierr"
)

var outcomes = []struct {
	err   error
	label string
}{
	{ierr.ErrInvalidAPIKey, "invalid_api_key"},
	{ierr.ErrAPIKeyRequired, "api_key_required"},
	{ierr.ErrInvalidOrExpiredRequest, "invalid_or_expired_request"},
	{ierr.ErrInvalidChallenge, "invalid_challenge"},
	{ierr.ErrInvalidHMAC, "invalid_hmac"},
	{ierr.ErrAuthenticationRequired, "authentication_required"},
	{ierr.ErrInvalidToken, "invalid_token"},
	{ierr.ErrTokenExpired, "token_expired"},
	{ierr.ErrValidation, "validation_error"},
}

// Outcome maps an error to a low-cardinality label value.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return o.label
		}
	}
	return "internal_error"
}
