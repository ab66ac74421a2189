package scraper

import (
	"context"
	"time"
)

// Client is the minimum surface every provider client offers.
type Client interface {
	ScrapeURL(ctx context.Context, url string, opts ScrapeOptions) (ScrapeResult, error)
	CrawlURL(ctx context.Context, url string, opts CrawlOptions) (JobStarted, error)
	CheckCrawlStatus(ctx context.Context, jobID string) (StatusResult, error)
}

// BatchScraper submits a batch as a URL list plus shared options.
type BatchScraper interface {
	BatchScrape(ctx context.Context, urls []string, opts ScrapeOptions) (BatchResult, error)
}

// BatchScrapeCreator submits a batch as a single request object.
type BatchScrapeCreator interface {
	CreateBatchScrape(ctx context.Context, req BatchRequest) (BatchResult, error)
}

// BatchScrapeStarter starts a batch job without waiting for documents.
type BatchScrapeStarter interface {
	StartBatchScrape(ctx context.Context, urls []string, opts ScrapeOptions) (BatchResult, error)
}

// BatchStatusChecker reports progress for batch jobs.
type BatchStatusChecker interface {
	CheckBatchScrapeStatus(ctx context.Context, jobID string) (StatusResult, error)
}

// Publisher pushes job events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces request IDs.
type IDGenerator interface {
	NewID() (string, error)
}
