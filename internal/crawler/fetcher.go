package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultUserAgent identifies the scraper to the catalog source.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// PageFetcher retrieves the body of one catalog page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// Page is a fetched catalog page.
type Page struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Body is the response body decoded to UTF-8.
	Body string
}

// Fetcher issues HTTP GET requests for catalog pages.
// It does not retry; retry policy belongs to the Paginator.
type Fetcher struct {
	// client performs the requests. It is supplied by the caller so that a
	// run owns its connection pool and no process-wide session exists.
	client *http.Client

	// timeout bounds each request, including reading the body.
	timeout time.Duration

	userAgent string

	// headers are extra request headers such as Accept-Language or Authorization.
	headers map[string]string

	// cookie is sent verbatim as the Cookie header when not empty.
	cookie string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders adds request headers. Later calls override earlier values.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *Fetcher) {
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// WithCookie sets the Cookie header.
func WithCookie(cookie string) FetcherOption {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// NewFetcher creates a Fetcher using the given HTTP client.
// A nil client is replaced by a new http.Client.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	f := &Fetcher{
		client:      client,
		timeout:     10 * time.Second,
		userAgent:   DefaultUserAgent,
		headers:     make(map[string]string),
		maxBodySize: 10 * 1024 * 1024, // 10MB
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves one page. Errors are always *FetchError:
// a malformed or non-http(s) URL is StatusFatal; network errors, timeouts and
// non-2xx responses are StatusTransient.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	if err := validateURL(pageURL); err != nil {
		return nil, &FetchError{Status: StatusFatal, URL: pageURL, Err: err}
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{Status: StatusFatal, URL: pageURL, Err: fmt.Errorf("%w: %w", ErrMalformedURL, err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Status: StatusTransient, URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBodySize))
		return nil, &FetchError{
			Status: StatusTransient,
			URL:    pageURL,
			Err:    fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode),
		}
	}

	body := io.LimitReader(resp.Body, f.maxBodySize)
	utf8Reader, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{Status: StatusTransient, URL: pageURL, Err: fmt.Errorf("decode body: %w", err)}
	}
	data, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, &FetchError{Status: StatusTransient, URL: pageURL, Err: fmt.Errorf("read body: %w", err)}
	}

	return &Page{URL: pageURL, StatusCode: resp.StatusCode, Body: string(data)}, nil
}

// validateURL checks that pageURL is an absolute http(s) URL with a host.
func validateURL(pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrMalformedURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrMalformedURL)
	}
	return nil
}
