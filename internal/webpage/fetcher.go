package webpage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"knowledge-base-platform/internal/config"
	"knowledge-base-platform/internal/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/chromedp/chromedp"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
)

var httpTransport = &http.Transport{
	DisableCompression: false,
}

// Fetcher retrieves a single web page and extracts its readable text.
// It is the URL content-fetch collaborator of the ingestion pipeline.
type Fetcher struct {
	userAgent     string
	renderJS      bool
	renderTimeout time.Duration
}

// Page is the normalized result of a fetch.
type Page struct {
	URL     string
	Title   string
	Content string
}

func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		userAgent:     cfg.PageFetchUserAgent,
		renderJS:      cfg.RenderJS,
		renderTimeout: cfg.RenderTimeout,
	}
}

// FetchContent fetches pageURL and returns its readable text plus metadata.
// Network and parse failures are fatal for the caller's pipeline run.
func (f *Fetcher) FetchContent(ctx context.Context, pageURL string) (string, map[string]any, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
		pageURL = parsed.String()
	}

	page, err := f.fetchPage(ctx, pageURL)
	if err != nil && f.renderJS {
		// Static fetch failed or came back empty; retry with a headless render
		logger.Debug("Static fetch failed, rendering with headless browser", "url", pageURL, "error", err)
		page, err = f.renderPage(ctx, pageURL)
	}
	if err != nil {
		return "", nil, err
	}

	if strings.TrimSpace(page.Content) == "" {
		return "", nil, fmt.Errorf("no extractable text at %s", pageURL)
	}

	meta := map[string]any{
		"title":      page.Title,
		"source_url": page.URL,
		"host":       parsed.Hostname(),
	}
	return page.Content, meta, nil
}

// fetchPage retrieves the page with colly and handles brotli and charset
// decoding before extraction.
func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) (*Page, error) {
	// colly manages its own request lifecycle; honor caller cancellation
	// between attempts at least.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(colly.MaxDepth(1))
	c.WithTransport(httpTransport)
	c.SetRequestTimeout(60 * time.Second)
	c.UserAgent = f.userAgent

	page := &Page{URL: pageURL}
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Accept-Encoding", "gzip, deflate, br")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
	})

	c.OnResponse(func(r *colly.Response) {
		contentType := r.Headers.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml+xml") {
			fetchErr = fmt.Errorf("unsupported content type %q", contentType)
			return
		}

		var bodyReader io.Reader = bytes.NewReader(r.Body)

		// gzip is handled by the transport; brotli is not
		if strings.Contains(r.Headers.Get("Content-Encoding"), "br") {
			decompressed, err := io.ReadAll(brotli.NewReader(bodyReader))
			if err == nil {
				r.Body = decompressed
				bodyReader = bytes.NewReader(decompressed)
			}
		}

		if len(r.Body) > 0 {
			if utf8Reader, err := charset.NewReader(bodyReader, contentType); err == nil {
				if decoded, err := io.ReadAll(utf8Reader); err == nil && len(decoded) > 0 {
					r.Body = decoded
				}
			}
		}
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		page.Title = strings.TrimSpace(e.DOM.Find("title").Text())
		page.Content = ExtractReadableText(e.DOM)
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch %s: %w", pageURL, err)
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if page.Content == "" {
		return nil, fmt.Errorf("empty page body at %s", pageURL)
	}
	return page, nil
}

// renderPage loads the page in a headless browser for JS-heavy sites.
func (f *Fetcher) renderPage(ctx context.Context, pageURL string) (*Page, error) {
	renderCtx, cancel := context.WithTimeout(ctx, f.renderTimeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(renderCtx,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(f.userAgent),
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse rendered page: %w", err)
	}

	return &Page{
		URL:     pageURL,
		Title:   strings.TrimSpace(doc.Find("title").Text()),
		Content: ExtractReadableText(doc.Selection),
	}, nil
}

// ExtractReadableText pulls the main textual content out of a page,
// preferring semantic containers and skipping navigation chrome.
func ExtractReadableText(selection *goquery.Selection) string {
	doc := selection.Clone()

	doc.Find("script, style, noscript, nav, footer, header, aside, .nav, .navbar, .footer, .sidebar, .advertisement, .ads").Remove()

	contentSelectors := []string{
		"main",
		"article",
		"[role='main']",
		".main-content",
		".content",
		"#content",
		".post",
		"body",
	}

	var content strings.Builder
	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 100 {
				content.WriteString(text)
				content.WriteString("\n\n")
			}
		})
		if content.Len() > 0 {
			break
		}
	}

	// Fall back to whole-body text for thin pages
	if content.Len() == 0 {
		content.WriteString(strings.TrimSpace(doc.Find("body").Text()))
	}

	return collapseWhitespace(content.String())
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
