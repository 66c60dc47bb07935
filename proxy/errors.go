package proxy

import "errors"

var (
	// ErrNotOpen is returned by Submit/Query before Open has succeeded.
	ErrNotOpen = errors.New("proxy: session not open")

	// ErrRetriesExhausted is returned once the backoff loop reaches the
	// session timeout without having made a single call (no usable retry
	// target). If calls were made and all failed, the last call's error
	// is returned instead.
	ErrRetriesExhausted = errors.New("proxy: retries exhausted")
)
