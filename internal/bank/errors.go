package bank

import "errors"

var (
	// ErrAuthFailed means the bank rejected our credentials. Requires human
	// intervention; endpoints that depend on the bank degrade to 503.
	ErrAuthFailed = errors.New("bank: credentials rejected")

	// ErrSessionExpired is transient: the cached session died and the call
	// should be retried once after re-authentication.
	ErrSessionExpired = errors.New("bank: session expired")

	// ErrUnavailable covers everything else: the bank is unreachable, timed
	// out, or re-authentication after expiry also failed.
	ErrUnavailable = errors.New("bank: service unavailable")
)
