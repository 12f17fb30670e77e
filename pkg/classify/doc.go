// Package classify assigns each notification its priority tier and batch
// tier from its declared priority, its type, and its deadline proximity.
//
// Deadline proximity prefers the structured Deadline field; parsing an
// "N day(s)" figure out of the body text is a documented best-effort
// fallback, with a 72 hour default when neither is available.
package classify
