package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/firecrawl-demo/internal/logging"
)

//go:embed templates/demo.html.tmpl
var templatesFS embed.FS

// Slider bounds for the crawl tab.
const (
	crawlLimitMin = 1
	crawlLimitMax = 100
	crawlDepthMin = 1
	crawlDepthMax = 5
	previewChars  = 300
)

type demoPage struct {
	tmpl *template.Template
}

// demoView is the data rendered into the page shell.
type demoView struct {
	DefaultURL      string
	OnlyMainContent bool
	CrawlLimit      int
	CrawlDepth      int
	LimitMin        int
	LimitMax        int
	DepthMin        int
	DepthMax        int
	PreviewChars    int
	ShowSetup       bool
	AuthEnabled     bool
}

func newDemoPage() (*demoPage, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/demo.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse demo template: %w", err)
	}
	return &demoPage{tmpl: tmpl}, nil
}

func (s *Server) demo(w http.ResponseWriter, r *http.Request) {
	view := demoView{
		DefaultURL:      "https://example.com",
		OnlyMainContent: s.defaults.OnlyMainContent,
		CrawlLimit:      clamp(s.defaults.CrawlLimit, crawlLimitMin, crawlLimitMax),
		CrawlDepth:      clamp(s.defaults.CrawlMaxDepth, crawlDepthMin, crawlDepthMax),
		LimitMin:        crawlLimitMin,
		LimitMax:        crawlLimitMax,
		DepthMin:        crawlDepthMin,
		DepthMax:        crawlDepthMax,
		PreviewChars:    previewChars,
		ShowSetup:       s.cfg.UsingPlaceholderKey(),
		AuthEnabled:     s.cfg.Auth.Enabled,
	}
	var buf bytes.Buffer
	if err := s.page.tmpl.Execute(&buf, view); err != nil {
		logging.FromContext(r.Context(), s.logger).Error("render demo page", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
