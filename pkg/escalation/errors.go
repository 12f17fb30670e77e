package escalation

import "errors"

var (
	// ErrInvalidRule is returned when an escalation rule fails validation.
	ErrInvalidRule = errors.New("invalid escalation rule")

	// ErrStoreRequired is returned when no state store is provided.
	ErrStoreRequired = errors.New("escalation state store cannot be nil")

	// ErrResolverRequired is returned when no role resolver is provided.
	ErrResolverRequired = errors.New("role resolver cannot be nil")
)
