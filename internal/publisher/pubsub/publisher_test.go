package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/firecrawl-demo/internal/scraper"
)

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "demo-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.CreateTopic(ctx, "firecrawl-jobs")
	require.NoError(t, err)
	return client, srv
}

func TestPublishJobEvent(t *testing.T) {
	client, srv := newTestClient(t)
	pub := NewWithClient(client)
	t.Cleanup(func() { _ = pub.Close() })

	evt := scraper.JobEvent{
		Type:        scraper.EventJobSubmitted,
		JobID:       "crawl-123",
		Kind:        scraper.JobKindCrawl,
		URLs:        []string{"https://example.com"},
		SubmittedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	id, err := pub.Publish(context.Background(), "firecrawl-jobs", evt)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "crawl", msgs[0].Attributes[AttrKind])
	require.Equal(t, "crawl-123", msgs[0].Attributes[AttrJobID])
	require.Equal(t, "job.submitted", msgs[0].Attributes[AttrEvent])

	var got scraper.JobEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, evt, got)
}

func TestPublishArbitraryPayloadHasNoAttributes(t *testing.T) {
	client, srv := newTestClient(t)
	pub := NewWithClient(client)
	t.Cleanup(func() { _ = pub.Close() })

	_, err := pub.Publish(context.Background(), "firecrawl-jobs", map[string]string{"hello": "world"})
	require.NoError(t, err)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Empty(t, msgs[0].Attributes)
	require.JSONEq(t, `{"hello":"world"}`, string(msgs[0].Data))
}

func TestPublishValidation(t *testing.T) {
	t.Parallel()

	_, err := (&Publisher{}).Publish(context.Background(), "topic", "x")
	require.ErrorContains(t, err, "not configured")

	_, err = New(context.Background(), "")
	require.ErrorContains(t, err, "project_id")
}

func TestPublishMissingTopicFails(t *testing.T) {
	client, _ := newTestClient(t)
	pub := NewWithClient(client)
	t.Cleanup(func() { _ = pub.Close() })

	_, err := pub.Publish(context.Background(), "", "x")
	require.ErrorContains(t, err, "topic is required")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = pub.Publish(ctx, "does-not-exist", "x")
	require.Error(t, err)
}
