package scraper

import (
	"context"
	"errors"
	"sync"
)

type fakeClient struct {
	mu         sync.Mutex
	scraped    []string
	failURL    string
	rejectURL  string
	crawlCalls int
}

func (f *fakeClient) ScrapeURL(_ context.Context, url string, _ ScrapeOptions) (ScrapeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scraped = append(f.scraped, url)
	if url == f.failURL {
		return ScrapeResult{}, errors.New("connection reset")
	}
	if url == f.rejectURL {
		return ScrapeResult{Success: false, Error: "blocked by robots"}, nil
	}
	return ScrapeResult{Success: true, Document: Document{Markdown: "# " + url}}, nil
}

func (f *fakeClient) CrawlURL(_ context.Context, _ string, _ CrawlOptions) (JobStarted, error) {
	return JobStarted{Success: true, ID: "crawl-1"}, nil
}

func (f *fakeClient) CheckCrawlStatus(_ context.Context, jobID string) (StatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crawlCalls++
	return StatusResult{Success: true, Status: "crawl:" + jobID}, nil
}

type batchScraperClient struct {
	fakeClient
	urls []string
}

func (c *batchScraperClient) BatchScrape(_ context.Context, urls []string, _ ScrapeOptions) (BatchResult, error) {
	c.urls = urls
	return BatchResult{Success: true, ID: "batch-1"}, nil
}

type creatorClient struct {
	fakeClient
	req BatchRequest
}

func (c *creatorClient) CreateBatchScrape(_ context.Context, req BatchRequest) (BatchResult, error) {
	c.req = req
	return BatchResult{Success: true, ID: "created-1"}, nil
}

type starterClient struct {
	fakeClient
	err error
}

func (c *starterClient) StartBatchScrape(_ context.Context, _ []string, _ ScrapeOptions) (BatchResult, error) {
	if c.err != nil {
		return BatchResult{}, c.err
	}
	return BatchResult{Success: true, ID: "started-1"}, nil
}

// allCapsClient implements every batch capability; only BatchScrape may run.
type allCapsClient struct {
	batchScraperClient
}

func (c *allCapsClient) CreateBatchScrape(context.Context, BatchRequest) (BatchResult, error) {
	panic("CreateBatchScrape must not be probed before BatchScrape")
}

func (c *allCapsClient) StartBatchScrape(context.Context, []string, ScrapeOptions) (BatchResult, error) {
	panic("StartBatchScrape must not be probed before BatchScrape")
}

type batchStatusClient struct {
	fakeClient
	batchCalls int
}

func (c *batchStatusClient) CheckBatchScrapeStatus(_ context.Context, jobID string) (StatusResult, error) {
	c.batchCalls++
	return StatusResult{Success: true, Status: "batch:" + jobID}, nil
}
