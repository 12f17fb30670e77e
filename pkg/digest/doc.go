// Package digest arranges a recipient's pending notifications into
// human-readable priority sections for digest rendering. It is pure: the
// external delivery layer does the actual email or in-app rendering.
package digest
