package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
	ErrConflict       = errors.New("resource already exists")
	ErrInvalidConfig  = errors.New("invalid configuration")

	// Risk pipeline errors
	ErrInvalidCredential    = errors.New("invalid credentials")
	ErrEvaluatorUnavailable = errors.New("risk evaluator unavailable")
	ErrDetectorUntrained    = errors.New("anomaly detector is not trained")
	ErrHistoryUnavailable   = errors.New("login history unavailable")
	ErrInvalidChallenge     = errors.New("invalid challenge code")
)
