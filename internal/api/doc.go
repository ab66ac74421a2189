// Package api hosts the HTTP server, middleware, and JSON handlers for the
// demo. Notable routes:
//   - POST /api/scrape, /api/crawl, /api/batch-scrape, /api/crawl-status
//     proxy to the provider with default options applied.
//   - GET /api/jobs lists job handles remembered by the ledger.
//   - GET /healthz and /readyz for probes; /readyz pings the ledger.
//   - GET /metrics for Prometheus scraping.
//   - GET / and /firecrawl-demo serve the demo page.
package api
