package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arne/tubetag/internal/util"
	"golang.org/x/net/html"
)

const (
	// BaseURL is the canonical short-link host for video pages
	BaseURL = "https://youtu.be"

	// UserAgent identifies this application to the hosting site
	UserAgent = "tubetag/1.0.0 (https://github.com/arne/tubetag)"

	// TitleSuffix is the trailing branding appended to every page title
	TitleSuffix = " - YouTube"

	// RateLimit is the minimum spacing between page fetches
	RateLimit = 1 * time.Second
)

// Resolver fetches a video's public page and extracts its title.
// Unlike the media-server client, fetch failures are returned as hard
// errors: the caller treats them as "skip this file".
type Resolver struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	rateLimit   time.Duration
	lastRequest time.Time
}

// NewResolver creates a title resolver. An empty baseURL selects the
// canonical host.
func NewResolver(baseURL string) *Resolver {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Resolver{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   UserAgent,
		rateLimit:   RateLimit,
		lastRequest: time.Now().Add(-RateLimit), // Allow first request immediately
	}
}

// SetRateLimit overrides the spacing between fetches (used in tests)
func (r *Resolver) SetRateLimit(d time.Duration) {
	r.rateLimit = d
}

// Close releases resources used by the resolver
func (r *Resolver) Close() {
	r.httpClient.CloseIdleConnections()
}

// waitForRateLimit blocks until the next request is allowed. The first
// request goes out immediately; later requests are spaced by rateLimit.
func (r *Resolver) waitForRateLimit(ctx context.Context) error {
	wait := r.rateLimit - time.Since(r.lastRequest)
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.lastRequest = time.Now()
	return nil
}

// ResolveTitle fetches the page for a video ID and returns its title with
// the branding suffix stripped. Returns "" (and no error) when the page
// has no discoverable title.
func (r *Resolver) ResolveTitle(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", fmt.Errorf("video ID cannot be empty")
	}

	// Wait for rate limit
	if err := r.waitForRateLimit(ctx); err != nil {
		return "", err
	}

	urlStr := fmt.Sprintf("%s/%s", r.baseURL, videoID)
	util.DebugLog("Resolver: fetching %s", urlStr)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	title, err := extractTitle(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	if title == "" {
		util.DebugLog("Resolver: no title for %s", videoID)
		return "", nil
	}

	title = strings.TrimSuffix(title, TitleSuffix)
	title = strings.TrimSpace(title)

	util.DebugLog("Resolver: %s -> %q", videoID, title)
	return title, nil
}

// extractTitle returns the text of the first <title> element in the document
func extractTitle(body io.Reader) (string, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return "", err
	}

	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = strings.TrimSpace(sb.String())
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)

	return title, nil
}
