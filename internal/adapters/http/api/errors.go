package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrUnavailable      = errors.New("refresh coordinator unavailable")
)
