package league

import "errors"

// Expected outcomes of league operations. Handlers check these with
// errors.Is and render a distinct message for each; they are never retried.
var (
	ErrNotRegistered     = errors.New("user is not registered")
	ErrAlreadyRegistered = errors.New("user is already registered")
	ErrNotCompeting      = errors.New("user is not competing")
	ErrAlreadyPending    = errors.New("a pending match already exists for this pair")
	ErrLimitExceeded     = errors.New("weekly challenge limit exceeded")
	ErrNotFound          = errors.New("no such pending match")
	ErrForbidden         = errors.New("user is not allowed to respond to this match")
)

// ErrStoreUnavailable marks a transient backend failure. It is the only
// class eligible for bounded retry at the store boundary.
var ErrStoreUnavailable = errors.New("store unavailable")
