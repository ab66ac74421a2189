package scraper

// ScrapeData is the stable shape returned to the UI for a single scrape.
type ScrapeData struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
	Links    []Link `json:"links"`
}

// NormalizeScrape flattens a provider document into ScrapeData. Markdown falls
// back to the legacy content field and then to the empty string; links are
// never nil so they encode as [].
func NormalizeScrape(doc Document) ScrapeData {
	markdown := doc.Markdown
	if markdown == "" {
		markdown = doc.Content
	}
	links := doc.Links
	if links == nil {
		links = []Link{}
	}
	return ScrapeData{
		Markdown: markdown,
		HTML:     doc.HTML,
		Links:    links,
	}
}

// CrawledURLs lists the source URLs of the documents in a status payload,
// skipping documents without one.
func CrawledURLs(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		if u := doc.SourceURL(); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// NormalizeStatus fills crawledUrls from the documents when the provider left
// it out and makes data encode as [] instead of null.
func NormalizeStatus(res StatusResult) StatusResult {
	if len(res.CrawledURLs) == 0 {
		res.CrawledURLs = CrawledURLs(res.Data)
	}
	if res.Data == nil {
		res.Data = []Document{}
	}
	return res
}
