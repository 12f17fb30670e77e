// Package audit records every delivery decision and outcome in an
// append-only log: sent, suppressed, throttled, failed, retried,
// cancelled, and escalated entries per notification and channel.
//
// Entries are never mutated in place. Suppressed notifications are
// invisible to recipients but remain here for compliance traceability.
// MemoryStorage serves development and tests; MongoStorage serves
// production, with a TTL index covering the retention window. The
// optional async buffer keeps audit writes off the dispatch path.
package audit
