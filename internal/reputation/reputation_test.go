package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type mockProvider struct {
	name      string
	available bool
	detected  bool
	err       string
	calls     atomic.Int32
}

func (m *mockProvider) Name() string      { return m.name }
func (m *mockProvider) IsAvailable() bool { return m.available }

func (m *mockProvider) Check(_ context.Context, _ string) *Result {
	m.calls.Add(1)
	return &Result{Provider: m.name, Detected: m.detected, Error: m.err, LastChecked: time.Now()}
}

func TestNewManagerSkipsUnavailable(t *testing.T) {
	m := NewManager(
		&mockProvider{name: "b", available: true},
		&mockProvider{name: "off", available: false},
		nil,
		&mockProvider{name: "a", available: true},
	)

	got := m.Providers()
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("Expected available providers [b a], got %v", got)
	}
}

func TestManagerCheck(t *testing.T) {
	clean := &mockProvider{name: "clean", available: true}
	flagging := &mockProvider{name: "flagging", available: true, detected: true}
	m := NewManager(flagging, clean)

	results := m.Check(context.Background(), "https://bad.example/")
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Provider != "clean" || results[1].Provider != "flagging" {
		t.Errorf("Expected results ordered by provider, got %v", results)
	}
	if !Flagged(results) {
		t.Error("Expected the target to be flagged")
	}

	// Second check is served from the cache
	m.Check(context.Background(), "https://bad.example/")
	if flagging.calls.Load() != 1 {
		t.Errorf("Expected a cached result, provider called %d times", flagging.calls.Load())
	}
}

func TestManagerDoesNotCacheErrors(t *testing.T) {
	p := &mockProvider{name: "broken", available: true, err: "request failed"}
	m := NewManager(p)

	m.Check(context.Background(), "example.com")
	m.Check(context.Background(), "example.com")
	if p.calls.Load() != 2 {
		t.Errorf("Expected failed checks to be retried, got %d calls", p.calls.Load())
	}
}

func TestManagerNoProviders(t *testing.T) {
	results := NewManager().Check(context.Background(), "example.com")
	if len(results) != 0 || Flagged(results) {
		t.Errorf("Expected no results, got %v", results)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter()
	limiter.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		if !limiter.Allow("test") {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("test") {
		t.Error("Should be rate limited after the default budget")
	}

	now = now.Add(time.Minute)
	if !limiter.Allow("test") {
		t.Error("Budget should reset after a minute")
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCache(time.Millisecond)
	cache.Set("p", "example.com", &Result{Provider: "p"})

	time.Sleep(5 * time.Millisecond)
	if cache.Get("p", "example.com") != nil {
		t.Error("Expected expired entry to be ignored")
	}
}

func TestSafeBrowsingAvailability(t *testing.T) {
	if NewSafeBrowsing("", 0).IsAvailable() {
		t.Error("Expected provider without key to be unavailable")
	}
	if !NewSafeBrowsing("key", 0).IsAvailable() {
		t.Error("Expected provider with key to be available")
	}
}

func TestSafeBrowsingCheck(t *testing.T) {
	var gotURL, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		var req safeBrowsingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.ThreatInfo.ThreatEntries) == 1 {
			gotURL = req.ThreatInfo.ThreatEntries[0].URL
		}

		if strings.Contains(gotURL, "bad") {
			_, _ = w.Write([]byte(`{"matches":[
				{"threatType":"SOCIAL_ENGINEERING","platformType":"ANY_PLATFORM"},
				{"threatType":"SOCIAL_ENGINEERING","platformType":"WINDOWS"}
			]}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s := NewSafeBrowsing("k3y", time.Second)
	s.baseURL = srv.URL

	result := s.Check(context.Background(), "bad.example/login")
	if gotKey != "k3y" {
		t.Errorf("Expected API key in query, got %q", gotKey)
	}
	if gotURL != "https://bad.example/login" {
		t.Errorf("Expected https-prefixed URL, got %q", gotURL)
	}
	if !result.Detected || len(result.Categories) != 1 || result.Categories[0] != "SOCIAL_ENGINEERING" {
		t.Errorf("Unexpected result %+v", result)
	}

	result = s.Check(context.Background(), "http://good.example/")
	if result.Detected || result.Error != "" {
		t.Errorf("Expected clean result, got %+v", result)
	}
	if gotURL != "http://good.example/" {
		t.Errorf("Expected scheme kept, got %q", gotURL)
	}
}

func TestSafeBrowsingErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"rate limited", http.StatusTooManyRequests, "", "rate limit"},
		{"forbidden", http.StatusForbidden, "", "API error"},
		{"bad json", http.StatusOK, "{", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := NewSafeBrowsing("k", time.Second)
			s.baseURL = srv.URL

			result := s.Check(context.Background(), "example.com")
			if !strings.Contains(result.Error, tt.want) {
				t.Errorf("Expected error containing %q, got %q", tt.want, result.Error)
			}
			if result.Detected {
				t.Error("Failed check must not be detected")
			}
		})
	}
}

type stubResolver struct {
	answers map[string][]string
	err     error
	got     string
}

func (s *stubResolver) LookupA(_ context.Context, host string) ([]string, error) {
	s.got = host
	return s.answers[host], s.err
}

func TestDBLCheck(t *testing.T) {
	r := &stubResolver{answers: map[string][]string{
		"bad.example.dbl.spamhaus.org":     {"127.0.1.4", "127.0.1.4"},
		"odd.example.dbl.spamhaus.org":     {"127.0.1.99"},
		"blocked.example.dbl.spamhaus.org": {"127.255.255.254"},
	}}
	d := NewDBL(r, time.Second)

	tests := []struct {
		target     string
		detected   bool
		categories []string
		err        string
	}{
		{"https://www.bad.example/login", true, []string{"phishing domain"}, ""},
		{"odd.example", true, []string{"listed (code 127.0.1.99)"}, ""},
		{"https://good.example/", false, nil, ""},
		{"blocked.example", false, nil, "query via public resolver refused"},
		{"https:///nothing", false, nil, "no domain in URL"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			result := d.Check(context.Background(), tt.target)
			if result.Detected != tt.detected {
				t.Errorf("Detected = %v, want %v", result.Detected, tt.detected)
			}
			if result.Error != tt.err {
				t.Errorf("Error = %q, want %q", result.Error, tt.err)
			}
			if strings.Join(result.Categories, ",") != strings.Join(tt.categories, ",") {
				t.Errorf("Categories = %v, want %v", result.Categories, tt.categories)
			}
		})
	}
}

func TestDBLQueryFailure(t *testing.T) {
	d := NewDBL(&stubResolver{err: errors.New("i/o timeout")}, time.Second)

	result := d.Check(context.Background(), "example.com")
	if result.Error != "DBL query failed" || result.Detected {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestDBLAvailability(t *testing.T) {
	if NewDBL(nil, 0).IsAvailable() {
		t.Error("Expected DBL without resolver to be unavailable")
	}
}
