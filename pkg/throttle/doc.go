// Package throttle caps how many notifications a recipient receives per
// channel within a sliding window.
//
// The counters live behind the Store interface rather than in a
// process-global map, so the engine can be instantiated multiple times
// and tested in isolation. MemoryStore covers single-process use;
// RedisStore keeps the cap consistent across scheduler instances.
package throttle
