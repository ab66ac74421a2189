package scraper

// Defaults holds the options applied when a request omits its options bag.
type Defaults struct {
	Formats         []string
	OnlyMainContent bool
	CrawlLimit      int
	CrawlMaxDepth   int
}

// DefaultOptions returns the stock defaults: markdown only, main content
// only, ten pages, two levels deep.
func DefaultOptions() Defaults {
	return Defaults{
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
		CrawlLimit:      10,
		CrawlMaxDepth:   2,
	}
}

// Scrape returns the caller's options unchanged when present, otherwise the
// configured scrape defaults. Options are replaced wholesale, not merged.
func (d Defaults) Scrape(opts *ScrapeOptions) ScrapeOptions {
	if opts != nil {
		return cloneScrapeOptions(*opts)
	}
	onlyMain := d.OnlyMainContent
	return ScrapeOptions{
		Formats:         d.formats(),
		OnlyMainContent: &onlyMain,
	}
}

// Crawl returns the caller's crawl options unchanged when present, otherwise
// the configured crawl defaults with nested scrape defaults.
func (d Defaults) Crawl(opts *CrawlOptions) CrawlOptions {
	if opts != nil {
		cp := *opts
		cp.IncludePaths = cloneStrings(opts.IncludePaths)
		cp.ExcludePaths = cloneStrings(opts.ExcludePaths)
		if opts.ScrapeOptions != nil {
			nested := cloneScrapeOptions(*opts.ScrapeOptions)
			cp.ScrapeOptions = &nested
		}
		return cp
	}
	nested := d.Scrape(nil)
	return CrawlOptions{
		Limit:         d.CrawlLimit,
		MaxDepth:      d.CrawlMaxDepth,
		ScrapeOptions: &nested,
	}
}

func (d Defaults) formats() []string {
	if len(d.Formats) == 0 {
		return []string{"markdown"}
	}
	return cloneStrings(d.Formats)
}

func cloneScrapeOptions(src ScrapeOptions) ScrapeOptions {
	cp := src
	cp.Formats = cloneStrings(src.Formats)
	cp.IncludeTags = cloneStrings(src.IncludeTags)
	cp.ExcludeTags = cloneStrings(src.ExcludeTags)
	if src.OnlyMainContent != nil {
		v := *src.OnlyMainContent
		cp.OnlyMainContent = &v
	}
	return cp
}

func cloneStrings(src []string) []string {
	if len(src) == 0 {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
