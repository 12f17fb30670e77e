// Package mongo connects the client and database backing the audit log.
package mongo
