// Package memory provides an in-process job ledger for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/firecrawl-demo/internal/ledger"
)

// Ledger keeps job records in a mutex-guarded map.
type Ledger struct {
	mu   sync.RWMutex
	jobs map[string]ledger.JobRecord
}

var _ ledger.Repository = (*Ledger)(nil)

// New constructs an empty Ledger.
func New() *Ledger {
	return &Ledger{jobs: make(map[string]ledger.JobRecord)}
}

// Record stores rec, keeping any status already learned for the job.
func (l *Ledger) Record(_ context.Context, rec ledger.JobRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.jobs[rec.ID]; ok {
		rec.LastStatus = existing.LastStatus
		rec.CheckedAt = existing.CheckedAt
	}
	l.jobs[rec.ID] = clone(rec)
	return nil
}

// Get fetches a job by ID.
func (l *Ledger) Get(_ context.Context, id string) (ledger.JobRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.jobs[id]
	if !ok {
		return ledger.JobRecord{}, ledger.ErrNotFound
	}
	return clone(rec), nil
}

// UpdateStatus sets the last observed provider status.
func (l *Ledger) UpdateStatus(_ context.Context, id, status string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.jobs[id]
	if !ok {
		return ledger.ErrNotFound
	}
	rec.LastStatus = status
	checked := at
	rec.CheckedAt = &checked
	l.jobs[id] = rec
	return nil
}

// ListRecent returns the newest jobs first.
func (l *Ledger) ListRecent(_ context.Context, limit int) ([]ledger.JobRecord, error) {
	l.mu.RLock()
	out := make([]ledger.JobRecord, 0, len(l.jobs))
	for _, rec := range l.jobs {
		out = append(out, clone(rec))
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	limit = ledger.ClampLimit(limit)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ping always succeeds.
func (l *Ledger) Ping(context.Context) error { return nil }

// Close is a no-op.
func (l *Ledger) Close() error { return nil }

func clone(rec ledger.JobRecord) ledger.JobRecord {
	rec.URLs = append([]string(nil), rec.URLs...)
	if rec.CheckedAt != nil {
		ts := *rec.CheckedAt
		rec.CheckedAt = &ts
	}
	return rec
}
