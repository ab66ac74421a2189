// Package ledger remembers the asynchronous job handles issued by the
// provider so status lookups can resolve a job's kind and recent jobs can be
// listed.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/JakeFAU/firecrawl-demo/internal/scraper"
)

// ErrNotFound signals that the requested job is not in the ledger.
var ErrNotFound = errors.New("job not found in ledger")

// Listing bounds for ListRecent callers.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// JobRecord is one provider job handle plus what we last learned about it.
type JobRecord struct {
	ID          string          `json:"id"`
	Kind        scraper.JobKind `json:"kind"`
	URLs        []string        `json:"urls"`
	SubmittedAt time.Time       `json:"submittedAt"`
	LastStatus  string          `json:"lastStatus,omitempty"`
	CheckedAt   *time.Time      `json:"checkedAt,omitempty"`
}

// Repository persists job records.
type Repository interface {
	// Record inserts the job or replaces the submission fields of an existing one.
	Record(ctx context.Context, rec JobRecord) error
	// Get loads a job or returns ErrNotFound.
	Get(ctx context.Context, id string) (JobRecord, error)
	// UpdateStatus stores the latest provider status, or returns ErrNotFound.
	UpdateStatus(ctx context.Context, id, status string, at time.Time) error
	// ListRecent returns up to limit jobs, newest submission first.
	ListRecent(ctx context.Context, limit int) ([]JobRecord, error)
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// ClampLimit maps a requested list size onto [1, MaxListLimit], using
// DefaultListLimit for non-positive values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
