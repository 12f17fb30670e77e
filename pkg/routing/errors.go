package routing

import "errors"

var (
	// ErrInvalidConfig is returned when a routing table fails validation.
	ErrInvalidConfig = errors.New("invalid routing config")
)
