package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// StatusError reports a non-2xx response so callers can tell a 404 from
// a 503 when deciding whether to retry.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

func (e *StatusError) StatusCode() int { return e.Code }

// Client talks to the content site. It keeps a cookie session and sends
// the browser-profile headers the site expects; page fetches get a
// bounded retry because list pages occasionally 5xx under load.
type Client struct {
	http        *http.Client
	baseURL     string
	maxAttempts int
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		http:        &http.Client{Timeout: timeout, Jar: jar},
		baseURL:     baseURL,
		maxAttempts: 3,
	}
}

// WarmUp primes the session cookies from the site root. Failure is not
// fatal; most pages work without a prior visit.
func (c *Client) WarmUp(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return
	}
	c.pageHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// GetDocument fetches an HTML page and parses it. Transient failures
// are retried with exponential backoff, like the rest of the site
// traffic.
func (c *Client) GetDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second << uint(attempt-1)):
			}
		}

		doc, err := c.getDocumentOnce(ctx, pageURL)
		if err == nil {
			return doc, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 && se.Code != 429 {
			return nil, err
		}
	}
	return nil, fmt.Errorf("get page after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) getDocumentOnce(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	c.pageHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, URL: pageURL}
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// Get fetches a binary resource and hands the body to the caller. This
// is the network half of the download fetcher; retry policy lives
// there, not here.
func (c *Client) Get(ctx context.Context, resourceURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, err
	}
	c.imageHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: resourceURL}
	}
	return resp.Body, nil
}

func (c *Client) pageHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", c.baseURL)
}

func (c *Client) imageHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	// The CDN rejects image requests without a site referer.
	req.Header.Set("Referer", c.baseURL)
}
