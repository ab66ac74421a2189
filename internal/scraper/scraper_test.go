package scraper

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultsScrapeAppliesWhenMissing(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions().Scrape(nil)
	require.Equal(t, []string{"markdown"}, opts.Formats)
	require.NotNil(t, opts.OnlyMainContent)
	require.True(t, *opts.OnlyMainContent)
}

func TestDefaultsScrapeKeepsCallerOptions(t *testing.T) {
	t.Parallel()

	onlyMain := false
	in := &ScrapeOptions{Formats: []string{"html"}, OnlyMainContent: &onlyMain}
	out := DefaultOptions().Scrape(in)
	require.Equal(t, []string{"html"}, out.Formats)
	require.False(t, *out.OnlyMainContent)

	out.Formats[0] = "mutated"
	*out.OnlyMainContent = true
	require.Equal(t, "html", in.Formats[0])
	require.False(t, onlyMain)
}

func TestDefaultsCrawl(t *testing.T) {
	t.Parallel()

	out := DefaultOptions().Crawl(nil)
	require.Equal(t, 10, out.Limit)
	require.Equal(t, 2, out.MaxDepth)
	require.NotNil(t, out.ScrapeOptions)
	require.Equal(t, []string{"markdown"}, out.ScrapeOptions.Formats)

	custom := DefaultOptions().Crawl(&CrawlOptions{Limit: 50})
	require.Equal(t, 50, custom.Limit)
	require.Zero(t, custom.MaxDepth)
	require.Nil(t, custom.ScrapeOptions)
}

func TestDefaultsCustomFormats(t *testing.T) {
	t.Parallel()

	d := Defaults{Formats: []string{"markdown", "links"}, CrawlLimit: 3, CrawlMaxDepth: 1}
	opts := d.Scrape(nil)
	require.Equal(t, []string{"markdown", "links"}, opts.Formats)
	require.False(t, *opts.OnlyMainContent)

	empty := Defaults{}
	require.Equal(t, []string{"markdown"}, empty.Scrape(nil).Formats)
}

func TestNormalizeScrape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  Document
		want ScrapeData
	}{
		{
			name: "markdown preferred",
			doc:  Document{Markdown: "# md", Content: "legacy", HTML: "<h1>md</h1>"},
			want: ScrapeData{Markdown: "# md", HTML: "<h1>md</h1>", Links: []Link{}},
		},
		{
			name: "falls back to content",
			doc:  Document{Content: "legacy"},
			want: ScrapeData{Markdown: "legacy", Links: []Link{}},
		},
		{
			name: "empty document",
			doc:  Document{},
			want: ScrapeData{Markdown: "", Links: []Link{}},
		},
		{
			name: "links kept",
			doc:  Document{Links: []Link{{URL: "https://a.test"}}},
			want: ScrapeData{Links: []Link{{URL: "https://a.test"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, NormalizeScrape(tt.doc))
		})
	}
}

func TestNormalizeScrapeEncodesEmptyFields(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(NormalizeScrape(Document{}))
	require.NoError(t, err)
	require.JSONEq(t, `{"markdown":"","html":"","links":[]}`, string(raw))
}

func TestLinkUnmarshalAcceptsStringAndObject(t *testing.T) {
	t.Parallel()

	var links []Link
	err := json.Unmarshal([]byte(`["https://a.test",{"url":"https://b.test","text":"B"}]`), &links)
	require.NoError(t, err)
	require.Equal(t, []Link{{URL: "https://a.test"}, {URL: "https://b.test", Text: "B"}}, links)

	err = json.Unmarshal([]byte(`[42]`), &links)
	require.Error(t, err)
}

func TestDocumentRelaysProviderFields(t *testing.T) {
	t.Parallel()

	in := `{"markdown":"# A","screenshot":"https://cdn.test/a.png",` +
		`"metadata":{"sourceURL":"https://a.test","ogImage":"https://a.test/og.png"}}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(in), &doc))
	require.Equal(t, "# A", doc.Markdown)
	require.Equal(t, "https://a.test", doc.SourceURL())

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	require.JSONEq(t, in, string(out))

	doc.setMetadata(DocumentMetadata{SourceURL: "https://b.test"})
	out, err = json.Marshal(doc)
	require.NoError(t, err)
	require.JSONEq(t, `{"markdown":"# A","metadata":{"sourceURL":"https://b.test"}}`, string(out))
}

func TestParseJobKind(t *testing.T) {
	t.Parallel()

	kind, ok, err := ParseJobKind("")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, kind)

	kind, ok, err = ParseJobKind(" Batch ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, JobKindBatch, kind)

	kind, ok, err = ParseJobKind("crawl")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, JobKindCrawl, kind)

	_, _, err = ParseJobKind("map")
	require.Error(t, err)
}

func TestCrawledURLsSkipsMissingMetadata(t *testing.T) {
	t.Parallel()

	docs := []Document{
		{Metadata: &DocumentMetadata{SourceURL: "https://a.test"}},
		{},
		{Metadata: &DocumentMetadata{SourceURL: "https://b.test"}},
	}
	require.Equal(t, []string{"https://a.test", "https://b.test"}, CrawledURLs(docs))
	require.Empty(t, CrawledURLs(nil))
}

func TestCheckStatusRoutesByKind(t *testing.T) {
	t.Parallel()

	client := &batchStatusClient{}
	res, err := CheckStatus(context.Background(), client, "job-1", JobKindBatch)
	require.NoError(t, err)
	require.Equal(t, "batch:job-1", res.Status)
	require.Equal(t, 1, client.batchCalls)

	res, err = CheckStatus(context.Background(), client, "job-2", JobKindCrawl)
	require.NoError(t, err)
	require.Equal(t, "crawl:job-2", res.Status)
	require.Equal(t, 1, client.crawlCalls)
}

func TestCheckStatusBatchFallsBackToCrawl(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	res, err := CheckStatus(context.Background(), client, "job-3", JobKindBatch)
	require.NoError(t, err)
	require.Equal(t, "crawl:job-3", res.Status)
}

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	res := NormalizeStatus(StatusResult{Success: true, Status: "completed"})
	require.NotNil(t, res.Data)
	require.Empty(t, res.CrawledURLs)

	docs := []Document{{Metadata: &DocumentMetadata{SourceURL: "https://a.test"}}}
	res = NormalizeStatus(StatusResult{Data: docs})
	require.Equal(t, []string{"https://a.test"}, res.CrawledURLs)

	res = NormalizeStatus(StatusResult{Data: docs, CrawledURLs: []string{"https://provider.test"}})
	require.Equal(t, []string{"https://provider.test"}, res.CrawledURLs)
}
