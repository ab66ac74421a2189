package scraper

import (
	"context"
	"fmt"
)

// CheckStatus looks up a job with the endpoint matching its kind. Batch jobs
// use BatchStatusChecker when the client has it; everything else goes through
// CheckCrawlStatus.
func CheckStatus(ctx context.Context, client Client, jobID string, kind JobKind) (StatusResult, error) {
	if kind == JobKindBatch {
		if checker, ok := client.(BatchStatusChecker); ok {
			res, err := checker.CheckBatchScrapeStatus(ctx, jobID)
			if err != nil {
				return StatusResult{}, fmt.Errorf("check batch scrape status: %w", err)
			}
			return res, nil
		}
	}
	res, err := client.CheckCrawlStatus(ctx, jobID)
	if err != nil {
		return StatusResult{}, fmt.Errorf("check crawl status: %w", err)
	}
	return res, nil
}
