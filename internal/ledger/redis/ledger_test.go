package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/firecrawl-demo/internal/ledger"
	"github.com/JakeFAU/firecrawl-demo/internal/scraper"
)

func TestNewRequiresAddr(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.ErrorContains(t, err, "redis_addr")
}

func TestRecordStoresJSONWithTTL(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	l := NewWithClient(fake, "test:", time.Hour)
	submitted := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(context.Background(), ledger.JobRecord{
		ID:          "job-1",
		Kind:        scraper.JobKindCrawl,
		URLs:        []string{"https://example.com"},
		SubmittedAt: submitted,
	}))

	require.JSONEq(t,
		`{"id":"job-1","kind":"crawl","urls":["https://example.com"],"submittedAt":"2025-03-01T12:00:00Z"}`,
		fake.values["test:job-1"])
	require.Equal(t, time.Hour, fake.ttls["test:job-1"])
	require.Equal(t, float64(submitted.UnixMilli()), fake.zsets["test:index"]["job-1"])

	rec, err := l.Get(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, submitted, rec.SubmittedAt)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	l := NewWithClient(newFakeClient(), "", 0)
	_, err := l.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestUpdateStatusKeepsTTL(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	l := NewWithClient(fake, "", 2*time.Hour)
	ctx := context.Background()
	checked := time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC)

	require.ErrorIs(t, l.UpdateStatus(ctx, "missing", "scraping", checked), ledger.ErrNotFound)

	require.NoError(t, l.Record(ctx, ledger.JobRecord{ID: "job-1", Kind: scraper.JobKindBatch}))
	require.NoError(t, l.UpdateStatus(ctx, "job-1", "completed", checked))
	require.Equal(t, 2*time.Hour, fake.ttls[DefaultPrefix+"job-1"])

	rec, err := l.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, "completed", rec.LastStatus)
	require.Equal(t, checked, *rec.CheckedAt)

	require.NoError(t, l.Record(ctx, ledger.JobRecord{ID: "job-1", Kind: scraper.JobKindBatch}))
	rec, err = l.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, "completed", rec.LastStatus)
}

func TestListRecentPrunesExpired(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	l := NewWithClient(fake, "", time.Hour)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, l.Record(ctx, ledger.JobRecord{
			ID:          id,
			Kind:        scraper.JobKindCrawl,
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	fake.expire(DefaultPrefix + "b")

	recs, err := l.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "c", recs[0].ID)
	require.Equal(t, "a", recs[1].ID)
	require.NotContains(t, fake.zsets[DefaultPrefix+"index"], "b")

	recs, err = l.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "c", recs[0].ID)
}

func TestPingAndClose(t *testing.T) {
	t.Parallel()

	fake := newFakeClient()
	l := NewWithClient(fake, "", 0)
	require.NoError(t, l.Ping(context.Background()))

	fake.pingErr = errors.New("dial tcp: refused")
	require.ErrorContains(t, l.Ping(context.Background()), "refused")

	require.NoError(t, l.Close())
	require.True(t, fake.closed)
}
