// Package template renders a notification's title and body from its typed
// data payload using a per-type template pair.
//
// Rendering is fail-soft: an unknown type or a broken template falls back
// to a generic message and surfaces the cause to the caller, so one
// misconfigured template fails a single notification instead of blocking
// the whole batch.
package template
