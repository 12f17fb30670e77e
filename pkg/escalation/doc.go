// Package escalation turns unacknowledged notifications into new,
// differently-addressed ones once a configured rule's trigger holds.
//
// Each (notification, rule) pair runs a small persisted state machine with
// states not_fired, fired, and resolved. Firing rides on the atomic
// not_fired -> fired transition, so a rule fires at most once per
// notification no matter how often the scheduler sweeps. Two stores ship
// with the package: MemoryStore for tests and RedisStore for deployments
// with more than one scheduler instance.
package escalation
