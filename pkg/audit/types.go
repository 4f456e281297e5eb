// Package audit records an audit trail of relayed upstream calls.
//
// Each record captures the call's metadata only: environment, method,
// path, final status, classified error kind, latency, and whether a
// renewal cycle occurred. Request and response bodies, and credentials
// above all, are never stored.
package audit

import (
	"context"
	"time"
)

// Record is the audit trail entry for one relayed upstream call.
type Record struct {
	// ID is a UUID v4 assigned by the recorder.
	ID string `json:"id"`

	// RequestID correlates the record with the inbound request.
	RequestID string `json:"request_id"`

	// Time is when the upstream call completed.
	Time time.Time `json:"time"`

	// Environment is the upstream environment the call went to.
	Environment string `json:"environment"`

	// Method and Path identify the relayed upstream call.
	Method string `json:"method"`
	Path   string `json:"path"`

	// Status is the final upstream status (0 when no response arrived).
	Status int `json:"status"`

	// ErrorKind is the classified failure kind, empty on success.
	ErrorKind string `json:"error_kind,omitempty"`

	// Renewed reports whether a 401-triggered renewal cycle occurred.
	Renewed bool `json:"renewed"`

	// Latency is the total upstream time for the call.
	Latency time.Duration `json:"latency"`
}

// Storage persists audit records.
type Storage interface {
	// Store persists one record.
	Store(ctx context.Context, record *Record) error

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]*Record, error)

	// DeleteBefore removes records older than the cutoff and returns
	// how many were deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteOldest removes the n oldest records and returns how many
	// were deleted.
	DeleteOldest(ctx context.Context, n int64) (int64, error)

	// Close releases the backend.
	Close() error
}
