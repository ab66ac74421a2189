package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/firecrawl-demo/internal/firecrawl"
	"github.com/JakeFAU/firecrawl-demo/internal/ledger"
	"github.com/JakeFAU/firecrawl-demo/internal/logging"
	"github.com/JakeFAU/firecrawl-demo/internal/metrics"
	"github.com/JakeFAU/firecrawl-demo/internal/scraper"
)

const maxBodyBytes = 1 << 20

// Client-facing messages.
const (
	msgURLRequired    = "URL is required"
	msgURLsRequired   = "URLs array is required and must not be empty"
	msgJobIDRequired  = "Job ID is required"
	msgScrapeFailed   = "Failed to scrape website"
	msgCrawlFailed    = "Failed to crawl website"
	msgBatchFailed    = "Failed to batch scrape URLs"
	msgStatusFailed   = "Failed to get crawl status"
	msgStatusErrored  = "Failed to check crawl status"
	msgCrawlStarted   = "Crawl job started successfully"
	msgBatchSucceeded = "Batch scrape operation completed successfully"
	msgInvalidJSON    = "invalid JSON"
	msgBodyTooLarge   = "request body too large"
)

// Side-effect components for metrics and logs.
const (
	sideEffectLedger = "ledger"
	sideEffectEvents = "publisher"
)

// ScrapeResponse is the body returned by POST /api/scrape.
type ScrapeResponse struct {
	Success bool               `json:"success"`
	Data    scraper.ScrapeData `json:"data"`
}

// CrawlResponse is the body returned by POST /api/crawl.
type CrawlResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId,omitempty"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// BatchResponse is the body returned by POST /api/batch-scrape. JobID is
// absent when the URLs were scraped one by one.
type BatchResponse struct {
	Success bool               `json:"success"`
	JobID   string             `json:"jobId,omitempty"`
	Data    []scraper.Document `json:"data,omitempty"`
	Message string             `json:"message"`
}

// NewScrapeResponse wraps a successful scrape in its response envelope.
func NewScrapeResponse(res scraper.ScrapeResult) ScrapeResponse {
	return ScrapeResponse{Success: true, Data: scraper.NormalizeScrape(res.Document)}
}

// NewCrawlResponse wraps an accepted crawl job.
func NewCrawlResponse(res scraper.JobStarted) CrawlResponse {
	return CrawlResponse{
		Success: true,
		JobID:   res.ID,
		Message: msgCrawlStarted,
		Status:  res.Status,
	}
}

// NewBatchResponse wraps a successful batch, whichever path served it.
func NewBatchResponse(res scraper.BatchResult) BatchResponse {
	return BatchResponse{
		Success: true,
		JobID:   res.ID,
		Data:    res.Data,
		Message: orDefault(res.Message, msgBatchSucceeded),
	}
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scraper.ScrapeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return
	}

	res, err := s.client.ScrapeURL(r.Context(), req.URL, s.defaults.Scrape(req.Options))
	if err != nil {
		s.fail(w, r, err, msgScrapeFailed)
		return
	}
	if !res.Success {
		writeError(w, http.StatusInternalServerError, orDefault(res.Error, msgScrapeFailed))
		return
	}
	writeJSON(w, http.StatusOK, NewScrapeResponse(res))
}

func (s *Server) crawl(w http.ResponseWriter, r *http.Request) {
	var req scraper.CrawlRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return
	}

	res, err := s.client.CrawlURL(r.Context(), req.URL, s.defaults.Crawl(req.Options))
	if err != nil {
		s.fail(w, r, err, msgCrawlFailed)
		return
	}
	if !res.Success {
		writeError(w, http.StatusInternalServerError, orDefault(res.Error, msgCrawlFailed))
		return
	}
	s.trackJob(r.Context(), scraper.JobKindCrawl, res.ID, []string{req.URL})
	writeJSON(w, http.StatusOK, NewCrawlResponse(res))
}

// batchBody holds urls undecoded so a non-array value is reported as a
// missing URL list rather than malformed JSON.
type batchBody struct {
	URLs    json.RawMessage        `json:"urls"`
	Options *scraper.ScrapeOptions `json:"options,omitempty"`
}

func (s *Server) batchScrape(w http.ResponseWriter, r *http.Request) {
	var body batchBody
	if !s.decode(w, r, &body) {
		return
	}
	req := scraper.BatchRequest{Options: body.Options}
	if err := json.Unmarshal(body.URLs, &req.URLs); err != nil || len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, msgURLsRequired)
		return
	}

	res, method, err := scraper.BatchScrape(r.Context(), s.client, req.URLs, s.defaults.Scrape(req.Options))
	metrics.ObserveBatchMethod(string(method))
	if err != nil {
		s.fail(w, r, err, msgBatchFailed)
		return
	}
	if !res.Success {
		writeError(w, http.StatusInternalServerError, orDefault(res.Error, msgBatchFailed))
		return
	}
	if res.ID != "" {
		s.trackJob(r.Context(), scraper.JobKindBatch, res.ID, req.URLs)
	}
	writeJSON(w, http.StatusOK, NewBatchResponse(res))
}

func (s *Server) crawlStatus(w http.ResponseWriter, r *http.Request) {
	var req scraper.StatusRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		writeError(w, http.StatusBadRequest, msgJobIDRequired)
		return
	}
	kind, ok, err := scraper.ParseJobKind(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		kind = s.resolveKind(r.Context(), req.JobID)
	}

	res, err := scraper.CheckStatus(r.Context(), s.client, req.JobID, kind)
	if err != nil {
		s.fail(w, r, err, msgStatusErrored)
		return
	}
	if !res.Success {
		writeError(w, http.StatusInternalServerError, orDefault(res.Error, msgStatusFailed))
		return
	}
	res = scraper.NormalizeStatus(res)

	if err := s.ledger.UpdateStatus(r.Context(), req.JobID, res.Status, s.clock.Now()); err != nil &&
		!errors.Is(err, ledger.ErrNotFound) {
		s.sideEffectFailed(r.Context(), sideEffectLedger, err)
	}
	writeJSON(w, http.StatusOK, res)
}

// resolveKind looks the job up in the ledger; unknown jobs are crawls.
func (s *Server) resolveKind(ctx context.Context, jobID string) scraper.JobKind {
	rec, err := s.ledger.Get(ctx, jobID)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			s.sideEffectFailed(ctx, sideEffectLedger, err)
		}
		return scraper.JobKindCrawl
	}
	if rec.Kind == "" {
		return scraper.JobKindCrawl
	}
	return rec.Kind
}

// trackJob records an accepted asynchronous job and announces it. Failures
// are logged and counted only.
func (s *Server) trackJob(ctx context.Context, kind scraper.JobKind, jobID string, urls []string) {
	if jobID == "" {
		return
	}
	now := s.clock.Now()
	metrics.ObserveJobSubmitted(string(kind))
	log := logging.FromContext(ctx, s.logger)

	rec := ledger.JobRecord{ID: jobID, Kind: kind, URLs: urls, SubmittedAt: now}
	if err := s.ledger.Record(ctx, rec); err != nil {
		s.sideEffectFailed(ctx, sideEffectLedger, err)
	}
	if s.publisher != nil {
		evt := scraper.JobEvent{
			Type:        scraper.EventJobSubmitted,
			JobID:       jobID,
			Kind:        kind,
			URLs:        urls,
			SubmittedAt: now,
		}
		if _, err := s.publisher.Publish(ctx, s.topic, evt); err != nil {
			s.sideEffectFailed(ctx, sideEffectEvents, err)
		}
	}
	log.Info("job submitted", zap.String("job_id", jobID), zap.String("kind", string(kind)), zap.Int("urls", len(urls)))
}

func (s *Server) sideEffectFailed(ctx context.Context, component string, err error) {
	metrics.ObserveSideEffectFailure(component)
	logging.FromContext(ctx, s.logger).Warn("side effect failed", zap.String("component", component), zap.Error(err))
}

// decode reads a size-limited JSON body into dst, writing the 4xx response
// itself when it fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return false
		}
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}

// fail logs err and answers 500 with the best message available.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logging.FromContext(r.Context(), s.logger).Error("provider call failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, errorMessage(err, fallback))
}

func errorMessage(err error, fallback string) string {
	var apiErr *firecrawl.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
