// Package pg connects the notification store's PostgreSQL pool and applies
// its goose migrations.
package pg
