package helix

import "errors"

// Sentinel kinds for Helix binding errors.
var (
	ErrBatchTooLarge  = errors.New("helix: too many names in one validate call")
	ErrMalformed      = errors.New("helix: malformed response body")
	ErrSessionClosed  = errors.New("helix: session closed")
	errMissingCreds   = errors.New("client id and secret are required")
	errNoAccessToken  = errors.New("token response carried no access_token")
	errUnexpectedCode = errors.New("unexpected status")
)
