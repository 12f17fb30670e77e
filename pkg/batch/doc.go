// Package batch groups notifications destined for the same recipient and
// batch tier into transient batches with a single scheduled send time.
//
// Batches are rebuilt on every scheduling pass; they are never persisted
// as their own entity. Within a batch, member order follows arrival order.
// Critical notifications never batch: each ships as a singleton instant
// batch. Tier send times come from a Schedule (hourly: one hour out,
// daily: next 09:00, weekly: next Monday 09:00 by default).
package batch
