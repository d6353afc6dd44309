package nodes

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/leofalp/scriptgraph/internal/utils"
	"github.com/leofalp/scriptgraph/patterns/graph"
	"github.com/leofalp/scriptgraph/providers/observability"
)

const (
	// DefaultFetchTimeout is the default HTTP request timeout
	DefaultFetchTimeout = 30 * time.Second
	// DefaultUserAgent is the default User-Agent header value
	DefaultUserAgent = "scriptgraph/1.0"
	// DefaultMaxBodyBytes is the default response body cap (10MB)
	DefaultMaxBodyBytes = 10 * 1024 * 1024
	// MaxRedirects is the number of redirects followed before giving up
	MaxRedirects = 10

	dialTimeout           = 10 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 10 * time.Second
	idleConnTimeout       = 90 * time.Second
)

// Page is the raw document produced by [Fetch].
type Page struct {
	// URL is the final URL after redirects.
	URL        string
	StatusCode int
	HTML       string
}

// Fetch downloads the page at the "url" param or shared state key.
//
// Partial URLs such as "example.com" get an "https://" prefix. Up to
// [MaxRedirects] redirects are followed. A non-200 status or a body larger
// than MaxBodyBytes is an error.
type Fetch struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	Headers      map[string]string
	// HTTPClient replaces the default transport when set. Its redirect
	// policy and timeout are left untouched.
	HTTPClient *http.Client
}

var _ graph.NodeExecutor = (*Fetch)(nil)

// Execute implements graph.NodeExecutor.
func (fetch *Fetch) Execute(ctx context.Context, input *graph.NodeInput) (*graph.NodeResult, error) {
	rawURL, err := stringInput(ctx, input, KeyURL)
	if err != nil {
		return nil, err
	}

	page, err := fetch.Get(ctx, rawURL)
	if err != nil {
		if observer := observerFor(ctx, input); observer != nil {
			observer.Warn(ctx, "Fetch failed",
				observability.String(observability.AttrHTTPURL, rawURL),
				observability.Error(err),
			)
		}
		return nil, err
	}

	return &graph.NodeResult{
		Output:   page,
		Metadata: map[string]any{MetaStatusCode: page.StatusCode},
	}, nil
}

// Get fetches rawURL and returns its body.
func (fetch *Fetch) Get(ctx context.Context, rawURL string) (*Page, error) {
	url := NormalizeURL(rawURL)
	if url == "" {
		return nil, ErrEmptyURL
	}

	timeout := fetch.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	maxBodyBytes := fetch.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	userAgent := DefaultUserAgent
	if fetch.UserAgent != "" {
		userAgent = fetch.UserAgent
	}
	httpReq.Header.Set("User-Agent", userAgent)
	for key, value := range fetch.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := fetch.httpClient(timeout).Do(httpReq)
	if err != nil {
		if ctxWithTimeout.Err() != nil {
			return nil, fmt.Errorf("request timeout or canceled: %w", err)
		}
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer utils.CloseWithLog(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %s", resp.Status)
	}

	// one byte over the cap tells an exact fit from an overflow
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds maximum size of %d bytes", maxBodyBytes)
	}

	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       string(body),
	}, nil
}

func (fetch *Fetch) httpClient(timeout time.Duration) *http.Client {
	if fetch.HTTPClient != nil {
		return fetch.HTTPClient
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   tlsHandshakeTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
			IdleConnTimeout:       idleConnTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			ForceAttemptHTTP2:     true,
		},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("too many redirects (>%d)", MaxRedirects)
			}
			return nil
		},
	}
}

// NormalizeURL trims rawURL and adds "https://" when no scheme is given.
func NormalizeURL(rawURL string) string {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return ""
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	return url
}
