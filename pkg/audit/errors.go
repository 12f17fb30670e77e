package audit

import "errors"

var (
	// ErrEntryValidation is returned when an entry misses required fields.
	ErrEntryValidation = errors.New("invalid audit entry")

	// ErrBufferFull is returned when the async buffer cannot accept more
	// entries.
	ErrBufferFull = errors.New("audit buffer full")
)
