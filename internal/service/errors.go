package service

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrOriginDenied = errors.New("origin not allowed")
	ErrInvalidToken = errors.New("invalid token")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrLockTimeout  = errors.New("too many concurrent requests")
	ErrPersistence  = errors.New("failed to persist submission")
)

// Outcome returns the metric label for the result of one ingestion.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrOriginDenied):
		return "origin_denied"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, ErrPersistence):
		return "persistence_error"
	}
	return "error"
}
