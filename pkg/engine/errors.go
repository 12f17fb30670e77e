package engine

import "errors"

var (
	// ErrStorageRequired is returned when no notification storage is provided.
	ErrStorageRequired = errors.New("notification storage cannot be nil")

	// ErrPreferencesRequired is returned when no preferences source is provided.
	ErrPreferencesRequired = errors.New("preferences source cannot be nil")

	// ErrDispatcherRequired is returned when no dispatcher is provided.
	ErrDispatcherRequired = errors.New("dispatcher cannot be nil")

	// ErrInvalidInput is returned (wrapped) when a create request fails
	// validation.
	ErrInvalidInput = errors.New("invalid notification input")
)
