package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewFetcher(t *testing.T) {
	fetcher := NewFetcher(0)
	if fetcher.timeout != defaultTimeout {
		t.Errorf("Expected default timeout %v, got %v", defaultTimeout, fetcher.timeout)
	}

	customTimeout := 60 * time.Second
	fetcher = NewFetcher(customTimeout)
	if fetcher.timeout != customTimeout {
		t.Errorf("Expected custom timeout %v, got %v", customTimeout, fetcher.timeout)
	}
}

func TestGet(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><title>Sign in</title></html>"))
	}))
	defer server.Close()

	page, err := NewFetcher(5*time.Second).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if page.Status != http.StatusOK {
		t.Errorf("Expected status 200, got %d", page.Status)
	}
	if !strings.Contains(string(page.Body), "Sign in") {
		t.Errorf("Unexpected body %q", page.Body)
	}
	if page.ContentType != "text/html" {
		t.Errorf("Unexpected content type %q", page.ContentType)
	}
	if gotUA != UserAgent {
		t.Errorf("Expected browser user agent, got %q", gotUA)
	}
	if page.Truncated {
		t.Error("Small body should not be truncated")
	}
}

func TestGetServerErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"403 Forbidden", 403},
		{"404 Not Found", 404},
		{"500 Internal Server Error", 500},
		{"503 Service Unavailable", 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			page, err := NewFetcher(5*time.Second).Get(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("Non-2xx should not be an error: %v", err)
			}
			if page.Status != tt.statusCode {
				t.Errorf("Expected status %d, got %d", tt.statusCode, page.Status)
			}
		})
	}
}

func TestGetRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/final", http.StatusMovedPermanently)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	page, err := NewFetcher(5*time.Second).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasSuffix(page.FinalURL, "/final") {
		t.Errorf("Expected final URL to follow redirect, got %s", page.FinalURL)
	}
	if len(page.RedirectChain) != 1 {
		t.Errorf("Expected one redirect, got %v", page.RedirectChain)
	}
	if page.URL != server.URL {
		t.Errorf("Expected requested URL to be kept, got %s", page.URL)
	}
}

func TestGetMaxRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusMovedPermanently)
	}))
	defer server.Close()

	_, err := NewFetcher(5*time.Second).Get(context.Background(), server.URL)

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if !strings.Contains(fe.Reason, "too many redirects") {
		t.Errorf("Unexpected reason %q", fe.Reason)
	}
}

func TestGetTruncatesLargeBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", maxBodySize+1024)))
	}))
	defer server.Close()

	page, err := NewFetcher(5*time.Second).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(page.Body) != maxBodySize {
		t.Errorf("Expected body capped at %d bytes, got %d", maxBodySize, len(page.Body))
	}
	if !page.Truncated {
		t.Error("Expected Truncated to be set")
	}
}

func TestGetTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := NewFetcher(100*time.Millisecond).Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
}

func TestGetContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(5*time.Second).Get(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestGetInvalidURL(t *testing.T) {
	_, err := NewFetcher(time.Second).Get(context.Background(), "://missing-scheme")

	var fe *Error
	if !errors.As(err, &fe) || fe.Reason != "invalid URL" {
		t.Errorf("Expected invalid URL error, got %v", err)
	}
}

func TestCategorizeErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"connection refused", &testError{"dial tcp: connection refused"}, "connection refused"},
		{"no such host", &testError{"dial tcp: lookup invalid.domain: no such host"}, "DNS resolution failed"},
		{"i/o timeout", &testError{"dial tcp: i/o timeout"}, "connection timeout"},
		{"context deadline", &testError{"context deadline exceeded"}, "request timeout"},
		{"cancelled", context.Canceled, "request cancelled"},
		{"redirects", &testError{"stopped after 10 redirects"}, "too many redirects (max 10)"},
		{"certificate has expired", &testError{"certificate has expired"}, "TLS error: certificate has expired"},
		{"x509 unknown authority", &testError{"x509: certificate signed by unknown authority"}, "certificate error: x509: certificate signed by unknown authority"},
		{"unknown error", &testError{"some random error message"}, "some random error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := categorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("categorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

// testError is a simple error type for testing
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
