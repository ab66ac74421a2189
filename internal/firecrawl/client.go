// Package firecrawl is a typed client for the Firecrawl v1 REST API. It
// implements scraper.Client plus the batch capabilities the API offers.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/firecrawl-demo/internal/metrics"
	"github.com/JakeFAU/firecrawl-demo/internal/scraper"
)

// DefaultBaseURL is the hosted Firecrawl API.
const DefaultBaseURL = "https://api.firecrawl.dev"

const maxResponseBytes = 32 << 20

// Operation labels used for logging and metrics.
const (
	opScrape      = "scrape"
	opCrawl       = "crawl"
	opCrawlStatus = "crawl_status"
	opBatch       = "batch_scrape"
	opBatchStatus = "batch_status"
)

// Config controls how the client reaches the API.
type Config struct {
	APIKey  string
	BaseURL string
	// Timeout caps each HTTP call. Zero leaves requests bounded only by the
	// caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the Firecrawl API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

var (
	_ scraper.Client             = (*Client)(nil)
	_ scraper.BatchScraper       = (*Client)(nil)
	_ scraper.BatchStatusChecker = (*Client)(nil)
)

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firecrawl: status %d: %s", e.StatusCode, e.Message)
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid firecrawl base url %q", base)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type scrapeBody struct {
	URL string `json:"url"`
	scraper.ScrapeOptions
}

type scrapeEnvelope struct {
	Success bool             `json:"success"`
	Data    scraper.Document `json:"data"`
	Error   string           `json:"error"`
}

// ScrapeURL scrapes a single page.
func (c *Client) ScrapeURL(ctx context.Context, pageURL string, opts scraper.ScrapeOptions) (scraper.ScrapeResult, error) {
	var env scrapeEnvelope
	body := scrapeBody{URL: pageURL, ScrapeOptions: opts}
	if err := c.do(ctx, opScrape, http.MethodPost, "/v1/scrape", body, &env); err != nil {
		return scraper.ScrapeResult{}, err
	}
	return scraper.ScrapeResult{
		Success:  env.Success,
		Error:    env.Error,
		Document: env.Data,
	}, nil
}

type crawlBody struct {
	URL string `json:"url"`
	scraper.CrawlOptions
}

type jobEnvelope struct {
	Success     bool     `json:"success"`
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Status      string   `json:"status"`
	Error       string   `json:"error"`
	InvalidURLs []string `json:"invalidURLs"`
}

// CrawlURL starts an asynchronous crawl rooted at seedURL.
func (c *Client) CrawlURL(ctx context.Context, seedURL string, opts scraper.CrawlOptions) (scraper.JobStarted, error) {
	var env jobEnvelope
	body := crawlBody{URL: seedURL, CrawlOptions: opts}
	if err := c.do(ctx, opCrawl, http.MethodPost, "/v1/crawl", body, &env); err != nil {
		return scraper.JobStarted{}, err
	}
	return scraper.JobStarted{
		Success: env.Success,
		ID:      env.ID,
		URL:     env.URL,
		Status:  env.Status,
		Error:   env.Error,
	}, nil
}

// CheckCrawlStatus fetches the state of a crawl job.
func (c *Client) CheckCrawlStatus(ctx context.Context, jobID string) (scraper.StatusResult, error) {
	return c.status(ctx, opCrawlStatus, "/v1/crawl/", jobID)
}

type batchBody struct {
	URLs []string `json:"urls"`
	scraper.ScrapeOptions
}

// BatchScrape starts an asynchronous batch scrape of urls.
func (c *Client) BatchScrape(ctx context.Context, urls []string, opts scraper.ScrapeOptions) (scraper.BatchResult, error) {
	var env jobEnvelope
	body := batchBody{URLs: urls, ScrapeOptions: opts}
	if err := c.do(ctx, opBatch, http.MethodPost, "/v1/batch/scrape", body, &env); err != nil {
		return scraper.BatchResult{}, err
	}
	return scraper.BatchResult{
		Success:     env.Success,
		ID:          env.ID,
		Error:       env.Error,
		InvalidURLs: env.InvalidURLs,
	}, nil
}

// CheckBatchScrapeStatus fetches the state of a batch scrape job.
func (c *Client) CheckBatchScrapeStatus(ctx context.Context, jobID string) (scraper.StatusResult, error) {
	return c.status(ctx, opBatchStatus, "/v1/batch/scrape/", jobID)
}

type statusEnvelope struct {
	Success *bool `json:"success"`
	scraper.StatusResult
}

func (c *Client) status(ctx context.Context, op, prefix, jobID string) (scraper.StatusResult, error) {
	if strings.TrimSpace(jobID) == "" {
		return scraper.StatusResult{}, errors.New("job id is required")
	}
	var env statusEnvelope
	if err := c.do(ctx, op, http.MethodGet, prefix+url.PathEscape(jobID), nil, &env); err != nil {
		return scraper.StatusResult{}, err
	}
	res := env.StatusResult
	if env.Success != nil {
		res.Success = *env.Success
	} else {
		res.Success = res.Error == ""
	}
	if res.Data == nil {
		res.Data = []scraper.Document{}
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveProviderCall(op, metrics.OutcomeError, time.Since(start))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close response body failed", zap.Error(cerr))
		}
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	elapsed := time.Since(start)
	c.logger.Debug("firecrawl call",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed),
	)
	if err != nil {
		metrics.ObserveProviderCall(op, metrics.OutcomeError, elapsed)
		return fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveProviderCall(op, metrics.OutcomeRejected, elapsed)
		return newAPIError(resp.StatusCode, payload)
	}
	metrics.ObserveProviderCall(op, metrics.OutcomeOK, elapsed)
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func newAPIError(status int, payload []byte) *APIError {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(payload, &body); err == nil {
		msg = body.Error
		if msg == "" {
			msg = body.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(payload))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}
