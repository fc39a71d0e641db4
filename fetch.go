package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// FetchTimeout bounds each reference page request.
	FetchTimeout = 30 * time.Second

	// MaxReferenceChars caps the text taken from one page.
	MaxReferenceChars = 20000

	// UserAgent for HTTP requests
	UserAgent = "LLM-Council-Reference-Fetcher/1.0"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// FetchURLContent downloads an HTML page and returns its readable text:
// title plus the main/article/body text with scripts, styles and navigation
// removed, whitespace collapsed and truncated to MaxReferenceChars.
func FetchURLContent(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("invalid URL %q: only absolute http(s) URLs are supported", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return ExtractReadableText(doc), nil
}

// ExtractReadableText returns the visible text of doc.
func ExtractReadableText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, iframe, svg").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	body := doc.Find("main, article").First()
	if body.Length() == 0 {
		body = doc.Find("body")
	}
	text := strings.TrimSpace(whitespaceRun.ReplaceAllString(body.Text(), " "))

	if runes := []rune(text); len(runes) > MaxReferenceChars {
		text = string(runes[:MaxReferenceChars]) + "..."
	}
	if title != "" {
		return title + "\n\n" + text
	}
	return text
}

// BuildQuestionWithReferences appends fetched reference material to the
// user's question. Pages that fail to load are listed as unavailable instead
// of failing the question.
func BuildQuestionWithReferences(ctx context.Context, question string, urls []string, fetch func(context.Context, string) (string, error)) (string, []error) {
	if len(urls) == 0 {
		return question, nil
	}

	var (
		b    strings.Builder
		errs []error
	)
	b.WriteString(question)
	b.WriteString("\n\nReference material:\n")
	for i, u := range urls {
		content, err := fetch(ctx, u)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			fmt.Fprintf(&b, "\n[%d] %s (unavailable)\n", i+1, u)
			continue
		}
		fmt.Fprintf(&b, "\n[%d] %s\n%s\n", i+1, u, content)
	}
	return b.String(), errs
}
