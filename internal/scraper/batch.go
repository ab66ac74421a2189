package scraper

import (
	"context"
	"fmt"
)

// BatchMethod names the path BatchScrape took.
type BatchMethod string

// Batch methods in probe order, followed by the fallback.
const (
	BatchMethodBatchScrape BatchMethod = "batchScrape"
	BatchMethodCreate      BatchMethod = "createBatchScrape"
	BatchMethodStart       BatchMethod = "startBatchScrape"
	BatchMethodSequential  BatchMethod = "sequential"
)

// SequentialMessage is reported when the batch was served one URL at a time.
const SequentialMessage = "URLs scraped individually"

// BatchScrape submits urls through the first bulk capability the client
// implements, probing BatchScraper, BatchScrapeCreator and BatchScrapeStarter in
// that order. Clients with none of them get one ScrapeURL call per URL, in
// input order. A page the provider rejects stays in place with
// metadata.error set; a returned error stops the loop.
func BatchScrape(
	ctx context.Context,
	client Client,
	urls []string,
	opts ScrapeOptions,
) (BatchResult, BatchMethod, error) {
	switch c := client.(type) {
	case BatchScraper:
		res, err := c.BatchScrape(ctx, urls, opts)
		if err != nil {
			return BatchResult{}, BatchMethodBatchScrape, fmt.Errorf("batch scrape: %w", err)
		}
		return res, BatchMethodBatchScrape, nil
	case BatchScrapeCreator:
		res, err := c.CreateBatchScrape(ctx, BatchRequest{URLs: urls, Options: &opts})
		if err != nil {
			return BatchResult{}, BatchMethodCreate, fmt.Errorf("create batch scrape: %w", err)
		}
		return res, BatchMethodCreate, nil
	case BatchScrapeStarter:
		res, err := c.StartBatchScrape(ctx, urls, opts)
		if err != nil {
			return BatchResult{}, BatchMethodStart, fmt.Errorf("start batch scrape: %w", err)
		}
		return res, BatchMethodStart, nil
	}

	docs := make([]Document, 0, len(urls))
	for _, u := range urls {
		res, err := client.ScrapeURL(ctx, u, opts)
		if err != nil {
			return BatchResult{}, BatchMethodSequential, fmt.Errorf("scrape %s: %w", u, err)
		}
		doc := res.Document
		if !res.Success {
			msg := res.Error
			if msg == "" {
				msg = "scrape failed"
			}
			doc = Document{Metadata: &DocumentMetadata{Error: msg}}
		}
		if doc.SourceURL() == "" {
			meta := DocumentMetadata{}
			if doc.Metadata != nil {
				meta = *doc.Metadata
			}
			meta.SourceURL = u
			doc.setMetadata(meta)
		}
		docs = append(docs, doc)
	}
	return BatchResult{
		Success: true,
		Data:    docs,
		Message: SequentialMessage,
	}, BatchMethodSequential, nil
}
