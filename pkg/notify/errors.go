package notify

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification is not found.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrMissingID is returned when a notification has no ID.
	ErrMissingID = errors.New("notification ID is required")

	// ErrMissingRecipient is returned when a notification has no recipient.
	ErrMissingRecipient = errors.New("recipient ID is required")

	// ErrInvalidPreferences is returned when a preferences record violates
	// a structural invariant.
	ErrInvalidPreferences = errors.New("invalid notification preferences")

	// ErrAlreadyDelivered is returned when an update would touch the frozen
	// channel set or schedule of a delivered notification.
	ErrAlreadyDelivered = errors.New("notification already delivered")

	// ErrPermanentDelivery marks delivery failures that must not be retried,
	// e.g. an invalid recipient address. Dispatchers wrap it so the engine
	// can distinguish them from transient provider errors.
	ErrPermanentDelivery = errors.New("permanent delivery failure")
)
