package ai

import "errors"

var (
	// ErrUnavailable covers transport failures and provider-side outages.
	ErrUnavailable = errors.New("ai provider unavailable")
	// ErrRateLimited is returned when the provider signals throttling.
	ErrRateLimited = errors.New("ai provider rate limited")
	// ErrInvalidInput covers empty or oversized inputs; never retried.
	ErrInvalidInput = errors.New("invalid ai input")
)

// IsTransient reports whether a provider failure may clear up on retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimited)
}
