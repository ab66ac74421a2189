package redis

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeClient is an in-process stand-in for the handful of commands the
// ledger issues.
type fakeClient struct {
	mu      sync.Mutex
	values  map[string]string
	ttls    map[string]time.Duration
	zsets   map[string]map[string]float64
	pingErr error
	closed  bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		values: map[string]string{},
		ttls:   map[string]time.Duration{},
		zsets:  map[string]map[string]float64{},
	}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	default:
		return redis.NewStatusResult("", errors.New("unsupported value type"))
	}
	if expiration != redis.KeepTTL {
		f.ttls[key] = expiration
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) ZAdd(_ context.Context, key string, members ...redis.Z) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.zsets[key]
	if !ok {
		set = map[string]float64{}
		f.zsets[key] = set
	}
	var added int64
	for _, m := range members {
		id, _ := m.Member.(string)
		if _, exists := set[id]; !exists {
			added++
		}
		set[id] = m.Score
	}
	return redis.NewIntResult(added, nil)
}

func (f *fakeClient) ZRevRange(_ context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.zsets[key]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if set[ids[i]] == set[ids[j]] {
			return ids[i] > ids[j]
		}
		return set[ids[i]] > set[ids[j]]
	})
	if start >= int64(len(ids)) {
		return redis.NewStringSliceResult([]string{}, nil)
	}
	end := stop + 1
	if end > int64(len(ids)) {
		end = int64(len(ids))
	}
	return redis.NewStringSliceResult(ids[start:end], nil)
}

func (f *fakeClient) ZRem(_ context.Context, key string, members ...any) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for _, m := range members {
		id, _ := m.(string)
		if _, ok := f.zsets[key][id]; ok {
			delete(f.zsets[key], id)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (f *fakeClient) Ping(context.Context) *redis.StatusCmd {
	if f.pingErr != nil {
		return redis.NewStatusResult("", f.pingErr)
	}
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func (f *fakeClient) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
}
