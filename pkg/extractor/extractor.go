// Package extractor fetches a web page and distills it to clean article
// text. A readability pass is tried first; a generic HTML strip is the
// fallback. Results are cached by normalized URL.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/dom"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/harunnryd/tutorcast/pkg/cache"
	"github.com/harunnryd/tutorcast/pkg/errorsx"
	"github.com/harunnryd/tutorcast/pkg/urlx"
)

// ExtractedContent is the immutable result of extracting one URL.
type ExtractedContent struct {
	URL         string
	Title       string
	Text        string
	ExtractedAt time.Time
	Metadata    map[string]string
}

// Config controls fetching and caching behavior.
type Config struct {
	Timeout      time.Duration
	CacheTTL     time.Duration
	UserAgent    string
	MaxBodyBytes int64
	// MinTextLength is the threshold below which the readability result is
	// considered unusable and the generic fallback runs.
	MinTextLength int
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Extractor fetches and cleans web documents.
type Extractor struct {
	cfg    Config
	client *http.Client
	cache  *cache.Cache
	log    *slog.Logger
}

// New creates an extractor. The cache may be nil to disable caching.
func New(cfg Config, contentCache *cache.Cache, logger *slog.Logger) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  contentCache,
		log:    logger,
	}
}

// Extract returns clean text and title for a URL, from cache when possible.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*ExtractedContent, error) {
	normalized, err := urlx.Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if cached, ok := e.cache.Get(normalized); ok {
			if content, ok := cached.(*ExtractedContent); ok {
				e.log.Debug("extraction cache hit", slog.String("url", normalized))
				return content, nil
			}
		}
	}

	body, pageURL, err := e.fetch(ctx, normalized)
	if err != nil {
		return nil, err
	}

	title, text := e.readable(body, pageURL)
	if len(text) < e.cfg.MinTextLength {
		e.log.Debug("readability yield too small, using generic strip",
			slog.String("url", normalized), slog.Int("chars", len(text)))
		title, text = genericStrip(body, title)
	}
	text = collapseWhitespace(text)
	if text == "" {
		return nil, errorsx.Wrap(fmt.Errorf("no usable text at %s", normalized), errorsx.ReasonExtraction)
	}

	content := &ExtractedContent{
		URL:         normalized,
		Title:       title,
		Text:        text,
		ExtractedAt: time.Now().UTC(),
		Metadata: map[string]string{
			"domain": pageURL.Hostname(),
			"chars":  fmt.Sprintf("%d", len(text)),
		},
	}
	if e.cache != nil {
		e.cache.Set(normalized, content, e.cfg.CacheTTL)
	}
	e.log.Info("content extracted",
		slog.String("url", normalized),
		slog.String("title", title),
		slog.Int("chars", len(text)))
	return content, nil
}

func (e *Extractor) fetch(ctx context.Context, pageURL string) ([]byte, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, errorsx.Wrap(err, errorsx.ReasonExtractionHTTP)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, nil, errorsx.Wrap(err, errorsx.ReasonExtractionHTTP)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, errorsx.Wrap(fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode), errorsx.ReasonExtractionHTTP)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") && !strings.Contains(contentType, "xml") {
		return nil, nil, errorsx.Wrap(fmt.Errorf("fetch %s: unsupported content type %q", pageURL, contentType), errorsx.ReasonExtraction)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxBodyBytes))
	if err != nil {
		return nil, nil, errorsx.Wrap(err, errorsx.ReasonExtractionHTTP)
	}
	return body, resp.Request.URL, nil
}

// readable runs the primary readability strategy.
func (e *Extractor) readable(body []byte, pageURL *url.URL) (title, text string) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", ""
	}
	return article.Title, article.TextContent
}

// genericStrip removes script, style, and chrome elements and returns the
// remaining text. Script and style content must never leak into the result.
func genericStrip(body []byte, fallbackTitle string) (title, text string) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return fallbackTitle, ""
	}

	title = fallbackTitle
	if nodes := dom.GetElementsByTagName(doc, "title"); len(nodes) > 0 {
		title = strings.TrimSpace(dom.TextContent(nodes[0]))
	}

	for _, tag := range []string{"script", "style", "noscript", "nav", "header", "footer", "aside", "iframe", "title"} {
		for _, node := range dom.GetElementsByTagName(doc, tag) {
			if node.Parent != nil {
				node.Parent.RemoveChild(node)
			}
		}
	}
	return title, dom.TextContent(doc)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
