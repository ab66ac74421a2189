// Package postgres provides a Postgres-backed job ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/firecrawl-demo/internal/ledger"
	"github.com/JakeFAU/firecrawl-demo/internal/scraper"
)

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "firecrawl_jobs"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for job rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// Ledger stores job records in a single table keyed by job ID.
type Ledger struct {
	pool  pool
	table string
}

var _ ledger.Repository = (*Ledger)(nil)

// New connects to Postgres and ensures the ledger table exists.
func New(ctx context.Context, cfg Config) (*Ledger, error) {
	if cfg.DSN == "" {
		return nil, errors.New("ledger.postgres_dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	l, err := NewWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := l.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return l, nil
}

// NewWithPool constructs a ledger from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*Ledger, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Ledger{pool: p, table: table}, nil
}

// EnsureSchema creates the ledger table when missing.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	urls TEXT[] NOT NULL DEFAULT '{}',
	submitted_at TIMESTAMPTZ NOT NULL,
	last_status TEXT,
	checked_at TIMESTAMPTZ
)`, l.table)
	if _, err := l.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", l.table, err)
	}
	return nil
}

// Record upserts the submission fields of a job.
func (l *Ledger) Record(ctx context.Context, rec ledger.JobRecord) error {
	if rec.ID == "" {
		return errors.New("job id is required")
	}
	urls := rec.URLs
	if urls == nil {
		urls = []string{}
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, kind, urls, submitted_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET kind = EXCLUDED.kind, urls = EXCLUDED.urls, submitted_at = EXCLUDED.submitted_at`, l.table)
	if _, err := l.pool.Exec(ctx, query, rec.ID, string(rec.Kind), urls, rec.SubmittedAt); err != nil {
		return fmt.Errorf("record job: %w", err)
	}
	return nil
}

// Get loads a single job.
func (l *Ledger) Get(ctx context.Context, id string) (ledger.JobRecord, error) {
	query := fmt.Sprintf(`
SELECT id, kind, urls, submitted_at, last_status, checked_at
FROM %s
WHERE id = $1`, l.table)
	rec, err := scanRecord(l.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.JobRecord{}, ledger.ErrNotFound
		}
		return ledger.JobRecord{}, fmt.Errorf("get job: %w", err)
	}
	return rec, nil
}

// UpdateStatus stores the latest provider status for a job.
func (l *Ledger) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	query := fmt.Sprintf(`
UPDATE %s
SET last_status = $1, checked_at = $2
WHERE id = $3`, l.table)
	tag, err := l.pool.Exec(ctx, query, status, at, id)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// ListRecent returns jobs ordered by submission time, newest first.
func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]ledger.JobRecord, error) {
	query := fmt.Sprintf(`
SELECT id, kind, urls, submitted_at, last_status, checked_at
FROM %s
ORDER BY submitted_at DESC, id DESC
LIMIT $1`, l.table)
	rows, err := l.pool.Query(ctx, query, ledger.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []ledger.JobRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// Ping checks connectivity.
func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (l *Ledger) Close() error {
	if l == nil || l.pool == nil {
		return nil
	}
	l.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (ledger.JobRecord, error) {
	var (
		rec        ledger.JobRecord
		kind       string
		lastStatus *string
		checkedAt  *time.Time
	)
	if err := row.Scan(&rec.ID, &kind, &rec.URLs, &rec.SubmittedAt, &lastStatus, &checkedAt); err != nil {
		return ledger.JobRecord{}, err
	}
	rec.Kind = scraper.JobKind(kind)
	if lastStatus != nil {
		rec.LastStatus = *lastStatus
	}
	rec.CheckedAt = checkedAt
	return rec, nil
}
