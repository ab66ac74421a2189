package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/firecrawl-demo/internal/config"
	"github.com/JakeFAU/firecrawl-demo/internal/ledger"
	ledgerMemory "github.com/JakeFAU/firecrawl-demo/internal/ledger/memory"
	publisherMemory "github.com/JakeFAU/firecrawl-demo/internal/publisher/memory"
	"github.com/JakeFAU/firecrawl-demo/internal/scraper"
)

const testTopic = "firecrawl-jobs"

// fakeClient implements only scraper.Client, so batches fall back to
// sequential scraping.
type fakeClient struct {
	mu sync.Mutex

	scrapeResults map[string]scraper.ScrapeResult
	scrapeErr     error
	crawlResult   scraper.JobStarted
	crawlErr      error
	statusResult  scraper.StatusResult
	statusErr     error
	panicOnScrape bool

	scrapeCalls []scrapeCall
	crawlCalls  []crawlCall
	statusCalls []string
}

type scrapeCall struct {
	URL  string
	Opts scraper.ScrapeOptions
}

type crawlCall struct {
	URL  string
	Opts scraper.CrawlOptions
}

func (f *fakeClient) ScrapeURL(_ context.Context, url string, opts scraper.ScrapeOptions) (scraper.ScrapeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnScrape {
		panic("boom")
	}
	f.scrapeCalls = append(f.scrapeCalls, scrapeCall{URL: url, Opts: opts})
	if f.scrapeErr != nil {
		return scraper.ScrapeResult{}, f.scrapeErr
	}
	if res, ok := f.scrapeResults[url]; ok {
		return res, nil
	}
	return scraper.ScrapeResult{Success: true, Document: scraper.Document{Markdown: "# " + url}}, nil
}

// blockingClient holds every scrape until the request context ends.
type blockingClient struct {
	*fakeClient
}

func (b blockingClient) ScrapeURL(ctx context.Context, _ string, _ scraper.ScrapeOptions) (scraper.ScrapeResult, error) {
	<-ctx.Done()
	return scraper.ScrapeResult{}, fmt.Errorf("POST /v1/scrape: %w", ctx.Err())
}

func (f *fakeClient) CrawlURL(_ context.Context, url string, opts scraper.CrawlOptions) (scraper.JobStarted, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crawlCalls = append(f.crawlCalls, crawlCall{URL: url, Opts: opts})
	return f.crawlResult, f.crawlErr
}

func (f *fakeClient) CheckCrawlStatus(_ context.Context, jobID string) (scraper.StatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, "crawl:"+jobID)
	return f.statusResult, f.statusErr
}

// batchClient adds provider batch jobs on top of fakeClient.
type batchClient struct {
	*fakeClient
	batchResult scraper.BatchResult
	batchURLs   []string
}

func (b *batchClient) BatchScrape(_ context.Context, urls []string, _ scraper.ScrapeOptions) (scraper.BatchResult, error) {
	b.batchURLs = append([]string(nil), urls...)
	return b.batchResult, nil
}

func (b *batchClient) CheckBatchScrapeStatus(_ context.Context, jobID string) (scraper.StatusResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusCalls = append(b.statusCalls, "batch:"+jobID)
	return b.statusResult, b.statusErr
}

type fakeIDGen struct {
	mu   sync.Mutex
	next int
}

func (g *fakeIDGen) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("req-%d", g.next), nil
}

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

// failingLedger errors on every call.
type failingLedger struct{ err error }

func (l failingLedger) Record(context.Context, ledger.JobRecord) error { return l.err }

func (l failingLedger) Get(context.Context, string) (ledger.JobRecord, error) {
	return ledger.JobRecord{}, l.err
}

func (l failingLedger) UpdateStatus(context.Context, string, string, time.Time) error { return l.err }

func (l failingLedger) ListRecent(context.Context, int) ([]ledger.JobRecord, error) {
	return nil, l.err
}

func (l failingLedger) Ping(context.Context) error { return l.err }

func (l failingLedger) Close() error { return nil }

var errLedgerDown = errors.New("ledger down")

type testEnv struct {
	server    *Server
	ledger    ledger.Repository
	publisher *publisherMemory.Publisher
	clock     fakeClock
}

type envOption func(*Deps)

func withLedger(l ledger.Repository) envOption {
	return func(d *Deps) { d.Ledger = l }
}

func withConfig(mutate func(*config.Config)) envOption {
	return func(d *Deps) { mutate(&d.Config) }
}

func newTestEnv(t *testing.T, client scraper.Client, opts ...envOption) testEnv {
	t.Helper()
	pub := publisherMemory.New()
	clk := fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	deps := Deps{
		Client:    client,
		Defaults:  scraper.DefaultOptions(),
		Ledger:    ledgerMemory.New(),
		Publisher: pub,
		Topic:     testTopic,
		IDGen:     &fakeIDGen{},
		Clock:     clk,
		Logger:    zap.NewNop(),
		Config: config.Config{
			Server:    config.ServerConfig{Port: 8080},
			Firecrawl: config.FirecrawlConfig{APIKey: "fc-test"},
		},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	srv, err := NewServer(deps)
	require.NoError(t, err)
	return testEnv{server: srv, ledger: deps.Ledger, publisher: pub, clock: clk}
}
