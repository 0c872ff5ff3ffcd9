// Package store defines the persistence interface for verification history.
package store

import (
	"context"
	"time"
)

// Verification is one recorded verification run.
type Verification struct {
	ID         int64
	Timestamp  time.Time
	Repository string
	Workflow   string
	Passed     bool
	Reports    []Report
}

// Report is the persisted outcome of one verification dimension.
type Report struct {
	Dimension string
	Passed    bool
	Skipped   bool
	Errors    []string
}

// Store persists verification outcomes for later inspection.
type Store interface {
	// SaveVerification records a completed verification and its reports,
	// returning the assigned ID.
	SaveVerification(ctx context.Context, v Verification) (int64, error)

	// ListVerifications retrieves the most recent verifications, newest
	// first, limited by the given count.
	ListVerifications(ctx context.Context, limit int) ([]Verification, error)

	// Close releases the underlying resources.
	Close() error
}
