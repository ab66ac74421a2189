package scraper

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobKind identifies which provider endpoint family owns a job handle.
type JobKind string

// Known job kinds.
const (
	JobKindCrawl JobKind = "crawl"
	JobKindBatch JobKind = "batch"
)

// ParseJobKind maps user input onto a JobKind. An empty string yields ok=false
// so callers can fall back to the ledger or the crawl default.
func ParseJobKind(input string) (JobKind, bool, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return "", false, nil
	case "crawl":
		return JobKindCrawl, true, nil
	case "batch", "batch-scrape", "batch_scrape":
		return JobKindBatch, true, nil
	default:
		return "", false, fmt.Errorf("unknown job type %q", input)
	}
}

// ScrapeOptions is the per-page options bag forwarded to the provider.
type ScrapeOptions struct {
	Formats         []string `json:"formats,omitempty"`
	OnlyMainContent *bool    `json:"onlyMainContent,omitempty"`
	IncludeTags     []string `json:"includeTags,omitempty"`
	ExcludeTags     []string `json:"excludeTags,omitempty"`
	WaitFor         int      `json:"waitFor,omitempty"`
	Timeout         int      `json:"timeout,omitempty"`
}

// CrawlOptions bounds a provider-side crawl.
type CrawlOptions struct {
	Limit         int            `json:"limit,omitempty"`
	MaxDepth      int            `json:"maxDepth,omitempty"`
	IncludePaths  []string       `json:"includePaths,omitempty"`
	ExcludePaths  []string       `json:"excludePaths,omitempty"`
	ScrapeOptions *ScrapeOptions `json:"scrapeOptions,omitempty"`
}

// ScrapeRequest is the body of POST /api/scrape.
type ScrapeRequest struct {
	URL     string         `json:"url"`
	Options *ScrapeOptions `json:"options,omitempty"`
}

// CrawlRequest is the body of POST /api/crawl.
type CrawlRequest struct {
	URL     string        `json:"url"`
	Options *CrawlOptions `json:"options,omitempty"`
}

// BatchRequest is the body of POST /api/batch-scrape.
type BatchRequest struct {
	URLs    []string       `json:"urls"`
	Options *ScrapeOptions `json:"options,omitempty"`
}

// StatusRequest is the body of POST /api/crawl-status.
type StatusRequest struct {
	JobID string `json:"jobId"`
	Type  string `json:"type,omitempty"`
}

// Link is a hyperlink reported for a scraped page. The provider emits links
// either as bare URL strings or as {url,text} objects; both decode here.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text,omitempty"`
}

// UnmarshalJSON accepts both the string and the object form.
func (l *Link) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		l.URL = raw
		l.Text = ""
		return nil
	}
	type alias Link
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode link: %w", err)
	}
	*l = Link(obj)
	return nil
}

// DocumentMetadata is the subset of page metadata the UI renders.
type DocumentMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	SourceURL   string `json:"sourceURL,omitempty"`
	StatusCode  int    `json:"statusCode,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Document is one page as returned by the provider.
type Document struct {
	Markdown string            `json:"markdown,omitempty"`
	HTML     string            `json:"html,omitempty"`
	RawHTML  string            `json:"rawHtml,omitempty"`
	Content  string            `json:"content,omitempty"`
	Links    []Link            `json:"links,omitempty"`
	Metadata *DocumentMetadata `json:"metadata,omitempty"`

	// raw is the provider's object, relayed verbatim on encode.
	raw json.RawMessage
}

// UnmarshalJSON decodes the modelled fields and keeps the provider object so
// fields not modelled here survive a round trip.
func (d *Document) UnmarshalJSON(data []byte) error {
	type alias Document
	var doc alias
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	*d = Document(doc)
	d.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the provider object when the document came from one.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d.raw) > 0 {
		return d.raw, nil
	}
	type alias Document
	return json.Marshal(alias(d))
}

// setMetadata replaces the metadata. The provider object no longer matches, so
// it is dropped.
func (d *Document) setMetadata(meta DocumentMetadata) {
	d.Metadata = &meta
	d.raw = nil
}

// SourceURL returns the page URL recorded in metadata, if any.
func (d Document) SourceURL() string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata.SourceURL
}

// ScrapeResult is the provider's answer to a single-page scrape.
type ScrapeResult struct {
	Success  bool
	Error    string
	Document Document
}

// JobStarted is the provider's acknowledgement of an asynchronous job.
type JobStarted struct {
	Success bool
	ID      string
	URL     string
	Status  string
	Error   string
}

// BatchResult is produced by any of the batch capabilities or by the
// sequential fallback. ID is empty when no provider job was created.
type BatchResult struct {
	Success     bool
	ID          string
	Data        []Document
	Message     string
	Error       string
	InvalidURLs []string
}

// StatusResult is the provider-reported state of a crawl or batch job.
type StatusResult struct {
	Success     bool       `json:"success"`
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	CreditsUsed int        `json:"creditsUsed"`
	ExpiresAt   string     `json:"expiresAt,omitempty"`
	Next        string     `json:"next,omitempty"`
	Data        []Document `json:"data"`
	CrawledURLs []string   `json:"crawledUrls,omitempty"`
	PendingURLs []string   `json:"pendingUrls,omitempty"`
	FailedURLs  []string   `json:"failedUrls,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// EventJobSubmitted is the type of the event emitted for accepted jobs.
const EventJobSubmitted = "job.submitted"

// JobEvent is published whenever the provider accepts an asynchronous job.
type JobEvent struct {
	Type        string    `json:"type"`
	JobID       string    `json:"job_id"`
	Kind        JobKind   `json:"kind"`
	URLs        []string  `json:"urls"`
	SubmittedAt time.Time `json:"submitted_at"`
}
