package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/w-h-a/ragchat/document"
)

// Crawler fetches web pages and turns their text content into chunks the
// retrieval layer can index.
type Crawler interface {
	Crawl(ctx context.Context, baseURL string) ([]document.Chunk, error)
}

var contentSelector = strings.Join([]string{"p", "li", "pre", "code", "h1", "h2", "h3"}, ", ")

var skipExtensions = []string{
	".jpg", ".jpeg", ".png", ".svg", ".gif",
	".css", ".js", ".json", ".xml",
	".pdf", ".zip", ".ico",
}

type webCrawler struct {
	options Options
	client  *http.Client
}

// Crawl walks same-domain links breadth-first from baseURL, up to the page
// cap, extracting text from content-bearing tags.
func (c *webCrawler) Crawl(ctx context.Context, baseURL string) ([]document.Chunk, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	baseDomain := parsed.Host

	visited := map[string]struct{}{}
	queue := []string{normalizeURL(baseURL)}
	chunks := []document.Chunk{}

	for len(queue) > 0 && len(visited) < c.options.MaxPages {
		pageURL := queue[0]
		queue = queue[1:]

		if _, seen := visited[pageURL]; seen || !c.isValidURL(pageURL, baseDomain) {
			continue
		}
		visited[pageURL] = struct{}{}

		slog.InfoContext(ctx, "crawling page", "url", pageURL, "visited", len(visited), "max", c.options.MaxPages)

		doc, err := c.fetch(ctx, pageURL)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch page", "url", pageURL, "error", err)
			continue
		}

		doc.Find(contentSelector).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) < c.options.MinTextLength {
				return
			}

			chunks = append(chunks, document.Chunk{
				Content: text,
				Metadata: document.Metadata{
					ChunkIndex: len(chunks),
					SourceType: document.SourceTypeURL,
					SourceURL:  pageURL,
				},
			})
		})

		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			next, err := url.Parse(href)
			if err != nil {
				return
			}

			page, err := url.Parse(pageURL)
			if err != nil {
				return
			}

			queue = append(queue, normalizeURL(page.ResolveReference(next).String()))
		})
	}

	slog.InfoContext(ctx, "crawl completed", "chunks", len(chunks), "pages", len(visited))

	return chunks, nil
}

func (c *webCrawler) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	rsp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode >= 300 {
		return nil, fmt.Errorf("status: %s", rsp.Status)
	}

	return goquery.NewDocumentFromReader(rsp.Body)
}

func (c *webCrawler) isValidURL(raw string, baseDomain string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	if parsed.Host != baseDomain {
		return false
	}

	path := strings.ToLower(parsed.Path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}

	return true
}

func normalizeURL(raw string) string {
	raw, _, _ = strings.Cut(raw, "#")
	return strings.TrimRight(raw, "/")
}

func NewCrawler(opts ...Option) Crawler {
	options := NewOptions(opts...)

	c := &webCrawler{
		options: options,
		client:  &http.Client{Timeout: options.Timeout},
	}

	return c
}
