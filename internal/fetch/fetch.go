// Package fetch retrieves web pages for content inspection
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 5 * time.Second
	maxRedirects   = 10
	maxBodySize    = 2 << 20

	// UserAgent is sent with every request; some phishing kits hide from non-browser clients
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"
)

// Page is a fetched document
type Page struct {
	URL           string   `json:"url"`
	FinalURL      string   `json:"final_url"`
	Status        int      `json:"status"`
	ContentType   string   `json:"content_type,omitempty"`
	RedirectChain []string `json:"redirect_chain,omitempty"`
	Body          []byte   `json:"-"`
	Truncated     bool     `json:"truncated,omitempty"`
}

// Error reports a failed fetch with a user-friendly reason
type Error struct {
	URL    string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fetcher performs page requests
type Fetcher struct {
	transport http.RoundTripper
	timeout   time.Duration
}

// NewFetcher creates a new fetcher with the specified timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Fetcher{
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
		},
		timeout: timeout,
	}
}

// Get fetches a page. Non-2xx statuses are returned as pages, not errors.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Reason: "invalid URL", Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	var redirectChain []string
	client := &http.Client{
		Timeout: f.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			redirectChain = append(redirectChain, req.URL.String())
			return nil
		},
		Transport: f.transport,
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Reason: categorizeError(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, &Error{URL: rawURL, Reason: "failed to read body", Err: err}
	}

	page := &Page{
		URL:           rawURL,
		FinalURL:      resp.Request.URL.String(),
		Status:        resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		RedirectChain: redirectChain,
		Body:          body,
	}
	if len(body) > maxBodySize {
		page.Body = body[:maxBodySize]
		page.Truncated = true
	}

	return page, nil
}

// categorizeError converts various network errors into user-friendly messages
func categorizeError(err error) string {
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}

	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "connection refused"):
		return "connection refused"
	case strings.Contains(errStr, "no such host"):
		return "DNS resolution failed"
	case strings.Contains(errStr, "i/o timeout"):
		return "connection timeout"
	case strings.Contains(errStr, "context deadline exceeded"), strings.Contains(errStr, "Client.Timeout"):
		return "request timeout"
	case strings.Contains(errStr, "stopped after"):
		return fmt.Sprintf("too many redirects (max %d)", maxRedirects)
	case strings.Contains(errStr, "x509"):
		return fmt.Sprintf("certificate error: %s", errStr)
	case strings.Contains(errStr, "certificate"):
		return fmt.Sprintf("TLS error: %s", errStr)
	default:
		return errStr
	}
}
