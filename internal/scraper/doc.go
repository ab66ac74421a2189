// Package scraper defines the request/response shapes relayed between the demo
// UI and the scraping provider, the provider capabilities the HTTP layer
// depends on, and the small amount of logic that sits between them: default
// options, response normalization, and the batch-scrape capability probe with
// its sequential fallback.
package scraper
