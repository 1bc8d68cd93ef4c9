package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Header values sent with every request. News sites routinely serve a
// stripped page (or a 403) to anything that does not look like a desktop
// browser.
const (
	DefaultUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultHostInterval = 500 * time.Millisecond
	DefaultMaxBodyBytes = 10 << 20
)

// ErrHTTPStatus is wrapped by a FetchError when the server answered with a
// status code of 400 or above.
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// ErrBodyTooLarge is returned when a response body exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body too large")

// FetchError describes a request that produced no usable content: a
// transport failure, a timeout, an HTTP error status or a robots.txt
// refusal. Callers treat it as "no content available" and move on.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	Timeout        time.Duration
	UserAgent      string
	Accept         string
	AcceptLanguage string
	// Minimum spacing between two requests to the same host. Negative
	// disables pacing.
	HostInterval time.Duration
	// Consult robots.txt before fetching a page.
	RespectRobots bool
	MaxBodyBytes  int64
	Logger        *slog.Logger
}

// Response is the raw result of a successful GET.
type Response struct {
	// URL after redirects.
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client issues single-attempt GET requests with a fixed header set. It is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	headers    http.Header
	limiter    *HostLimiter
	robots     *RobotsPolicy
	maxBody    int64
	logger     *slog.Logger
}

// New creates a client. The header set is frozen at construction.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Accept == "" {
		opts.Accept = DefaultAccept
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = DefaultAcceptLanguage
	}
	if opts.HostInterval == 0 {
		opts.HostInterval = DefaultHostInterval
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	headers := http.Header{}
	headers.Set("User-Agent", opts.UserAgent)
	headers.Set("Accept", opts.Accept)
	headers.Set("Accept-Language", opts.AcceptLanguage)

	c := &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		headers:    headers,
		maxBody:    opts.MaxBodyBytes,
		logger:     opts.Logger,
	}
	if opts.HostInterval > 0 {
		c.limiter = NewHostLimiter(opts.HostInterval)
	}
	if opts.RespectRobots {
		c.robots = NewRobotsPolicy(opts.UserAgent, c.get)
	}

	return c
}

// Fetch performs a GET and returns the body. Every failure is reported as a
// *FetchError.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if c.robots != nil && !c.robots.Allowed(ctx, rawURL) {
		return nil, &FetchError{URL: rawURL, Err: ErrRobotsDisallowed}
	}

	resp, err := c.get(ctx, rawURL)
	if err != nil {
		c.logger.Debug("request failed", "url", rawURL, "error", err)
		return nil, err
	}

	return resp, nil
}

// FetchDocument fetches a page and parses it as HTML. The document's Url is
// set to the final URL after redirects.
func (c *Client) FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	resp, err := c.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}
	if u, err := url.Parse(resp.URL); err == nil {
		doc.Url = u
	}

	return doc, nil
}

// get is the single network attempt shared by Fetch and the robots policy.
func (c *Client) get(ctx context.Context, rawURL string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, rawURL); err != nil {
			return nil, &FetchError{URL: rawURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header = c.headers.Clone()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: ErrHTTPStatus}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, c.maxBody)}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		URL:         finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
