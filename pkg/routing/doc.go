// Package routing holds the static per-tier routing table and the channel
// selector built on top of it.
//
// The routing table (Config) is plain configuration data: default channel
// sets per priority tier, optional deadline thresholds, and optional retry
// policies. It is passed in at construction time rather than kept as
// package state, so multiple engines with different tables can coexist in
// one process. Tables can be loaded from YAML with LoadConfig.
//
// The Selector applies the short-circuiting preference rules: critical
// traffic is never fully suppressible, vacation mode with a delegate
// suppresses delivery entirely, and quiet-hours windows (including ones
// wrapping midnight) hold back everything below critical.
package routing
