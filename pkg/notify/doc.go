// Package notify defines the core domain model of the notification engine:
// notifications, channels, priorities, batch tiers, recipient preferences,
// and the storage contract the rest of the engine is built on.
//
// The package is transport-agnostic. Physical delivery (how an email or SMS
// actually goes out) is the integrating product's concern; this package only
// models what gets delivered, to whom, and through which channels.
//
// # Lifecycle
//
// A notification is created pending, claimed by exactly one scheduler worker
// (the atomic pending -> dispatching transition in Storage.ClaimDue), and
// ends up sent, suppressed, cancelled, or failed. Once SentAt is set, the
// channel set and scheduled send are frozen; only the read/actioned
// timestamps may change afterwards.
//
// # Storage
//
// Two Storage implementations ship with the package: MemoryStorage for
// development and tests, and PgStorage on pgx for production, which uses
// FOR UPDATE SKIP LOCKED to keep claims at-most-once across workers.
package notify
