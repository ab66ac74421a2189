// Package redis provides a Redis-backed job ledger. Each job is a JSON value
// under prefix+id and a sorted-set index orders jobs by submission time.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/firecrawl-demo/internal/ledger"
)

// DefaultPrefix namespaces ledger keys when Config.Prefix is empty.
const DefaultPrefix = "firecrawl:job:"

// Config controls the Redis ledger.
type Config struct {
	Addr   string
	Prefix string
	TTL    time.Duration
}

type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRevRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	ZRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Ledger stores job records in Redis.
type Ledger struct {
	client client
	prefix string
	ttl    time.Duration
}

var _ ledger.Repository = (*Ledger)(nil)

// New initializes a Redis-backed ledger.
func New(cfg Config) (*Ledger, error) {
	if cfg.Addr == "" {
		return nil, errors.New("ledger.redis_addr is required")
	}
	return NewWithClient(redis.NewClient(&redis.Options{Addr: cfg.Addr}), cfg.Prefix, cfg.TTL), nil
}

// NewWithClient wraps an existing client (primarily for testing).
func NewWithClient(c client, prefix string, ttl time.Duration) *Ledger {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Ledger{client: c, prefix: prefix, ttl: ttl}
}

func (l *Ledger) key(id string) string { return l.prefix + id }

func (l *Ledger) indexKey() string { return l.prefix + "index" }

// Record writes the job and indexes it by submission time. A previously
// learned status is kept.
func (l *Ledger) Record(ctx context.Context, rec ledger.JobRecord) error {
	if rec.ID == "" {
		return errors.New("job id is required")
	}
	existing, err := l.Get(ctx, rec.ID)
	switch {
	case err == nil:
		rec.LastStatus = existing.LastStatus
		rec.CheckedAt = existing.CheckedAt
	case !errors.Is(err, ledger.ErrNotFound):
		return err
	}
	if err := l.write(ctx, rec, l.ttl); err != nil {
		return err
	}
	member := redis.Z{Score: float64(rec.SubmittedAt.UnixMilli()), Member: rec.ID}
	if err := l.client.ZAdd(ctx, l.indexKey(), member).Err(); err != nil {
		return fmt.Errorf("index job: %w", err)
	}
	return nil
}

// Get reads a job record.
func (l *Ledger) Get(ctx context.Context, id string) (ledger.JobRecord, error) {
	val, err := l.client.Get(ctx, l.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ledger.JobRecord{}, ledger.ErrNotFound
		}
		return ledger.JobRecord{}, fmt.Errorf("get job: %w", err)
	}
	var rec ledger.JobRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return ledger.JobRecord{}, fmt.Errorf("decode job: %w", err)
	}
	return rec, nil
}

// UpdateStatus rewrites the record with the latest status, keeping its TTL.
func (l *Ledger) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	rec, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	rec.LastStatus = status
	checked := at
	rec.CheckedAt = &checked
	return l.write(ctx, rec, redis.KeepTTL)
}

// ListRecent walks the index newest first, pruning entries whose value expired.
func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]ledger.JobRecord, error) {
	limit = ledger.ClampLimit(limit)
	ids, err := l.client.ZRevRange(ctx, l.indexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	out := make([]ledger.JobRecord, 0, len(ids))
	var stale []any
	for _, id := range ids {
		rec, err := l.Get(ctx, id)
		if errors.Is(err, ledger.ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if len(stale) > 0 {
		if err := l.client.ZRem(ctx, l.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune index: %w", err)
		}
	}
	return out, nil
}

// Ping checks connectivity.
func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (l *Ledger) Close() error {
	return l.client.Close()
}

func (l *Ledger) write(ctx context.Context, rec ledger.JobRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := l.client.Set(ctx, l.key(rec.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store job: %w", err)
	}
	return nil
}
