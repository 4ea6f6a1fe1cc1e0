package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check exceeded its timeout.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrKeyNotFound indicates a cache probe key is missing or expired.
	ErrKeyNotFound = errors.New("health: key not found")
)
