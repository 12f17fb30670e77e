// Package redis connects the client backing the escalation state store
// and the throttle counters.
package redis
