// Package whois provides WHOIS lookup functionality for the analysis backend
package whois

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"golang.org/x/net/publicsuffix"

	"github.com/commjoen/phishguard/pkg/models"
)

const (
	defaultTimeout = 10 * time.Second
	displayLayout  = "January 02, 2006"
)

// ErrInvalidURL is returned when no domain can be extracted from a URL
var ErrInvalidURL = errors.New("invalid URL format")

// privacyMarkers are registrant organisations that hide the real owner
var privacyMarkers = map[string]bool{
	"whois privacy":      true,
	"privacy protection": true,
	"redacted":           true,
}

// Result is a WHOIS lookup outcome. Record is always usable; when the
// lookup failed it holds the fallback values and Error says why.
type Result struct {
	Record models.WhoisRecord `json:"record"`
	Error  string             `json:"error,omitempty"`
}

// Failed reports whether Record holds fallback values
func (r *Result) Failed() bool {
	return r.Error != ""
}

// QueryFunc returns the raw WHOIS text for a domain
type QueryFunc func(domain string) (string, error)

// Client provides WHOIS lookup functionality with caching
type Client struct {
	timeout time.Duration
	query   QueryFunc
	cache   map[string]*cachedResult
	mu      sync.RWMutex
	ttl     time.Duration
}

type cachedResult struct {
	result    *Result
	timestamp time.Time
}

// Option configures a Client
type Option func(*Client)

// WithQuery replaces the network query, mostly for tests
func WithQuery(q QueryFunc) Option {
	return func(c *Client) { c.query = q }
}

// WithTTL sets how long results stay cached
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

// NewClient creates a new WHOIS client with the specified timeout
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		timeout: timeout,
		query:   func(domain string) (string, error) { return whois.Whois(domain) },
		cache:   make(map[string]*cachedResult),
		ttl:     24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup performs a WHOIS lookup for the domain as returned by
// ExtractDomain. The record names that domain; the query goes to its
// registrable base domain.
func (c *Client) Lookup(ctx context.Context, domain string) *Result {
	domain = strings.ToLower(strings.TrimSpace(domain))
	base := extractBaseDomain(domain)
	if base == "" {
		return &Result{Record: Fallback(domain), Error: "invalid domain"}
	}

	if cached := c.getFromCache(base); cached != nil {
		return withDomain(cached, domain)
	}

	result := c.performLookup(ctx, base)

	// Cancelled lookups say nothing about the domain
	if !errors.Is(ctx.Err(), context.Canceled) {
		c.saveToCache(base, result)
	}

	return withDomain(result, domain)
}

// performLookup executes the actual WHOIS query
func (c *Client) performLookup(ctx context.Context, domain string) *Result {
	type answer struct {
		raw string
		err error
	}
	done := make(chan answer, 1)

	go func() {
		raw, err := c.query(domain)
		done <- answer{raw, err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	var ans answer
	select {
	case <-ctx.Done():
		return &Result{Record: Fallback(domain), Error: "WHOIS lookup cancelled"}
	case <-timer.C:
		return &Result{Record: Fallback(domain), Error: "WHOIS lookup timeout"}
	case ans = <-done:
	}

	if ans.err != nil {
		return &Result{Record: Fallback(domain), Error: categorizeError(ans.err)}
	}

	parsed, err := whoisparser.Parse(ans.raw)
	if err != nil {
		return &Result{Record: Fallback(domain), Error: fmt.Sprintf("parse error: %v", err)}
	}

	if !hasRegistration(parsed) {
		return &Result{Record: Fallback(domain), Error: "no registration data"}
	}

	return &Result{Record: recordFrom(domain, parsed)}
}

// hasRegistration reports whether parsed WHOIS text carries any dates or
// a registrar. Some "not found" replies parse cleanly into an empty record.
func hasRegistration(info whoisparser.WhoisInfo) bool {
	if info.Domain != nil &&
		(strings.TrimSpace(info.Domain.CreatedDate) != "" || strings.TrimSpace(info.Domain.ExpirationDate) != "") {
		return true
	}
	return info.Registrar != nil && strings.TrimSpace(info.Registrar.Name) != ""
}

// recordFrom maps parsed WHOIS data onto display strings
func recordFrom(domain string, info whoisparser.WhoisInfo) models.WhoisRecord {
	rec := models.WhoisRecord{
		DomainName:    domain,
		CreatedDate:   models.NotAvailable,
		ExpiresDate:   models.NotAvailable,
		Registrar:     models.NotAvailable,
		RegistrantOrg: models.PrivacyProtected,
	}

	if info.Domain != nil {
		rec.CreatedDate = FormatDate(info.Domain.CreatedDate)
		rec.ExpiresDate = FormatDate(info.Domain.ExpirationDate)
	}
	if info.Registrar != nil && strings.TrimSpace(info.Registrar.Name) != "" {
		rec.Registrar = strings.TrimSpace(info.Registrar.Name)
	}
	if info.Registrant != nil {
		rec.RegistrantOrg = registrantOrg(info.Registrant.Organization)
	}

	return rec
}

func registrantOrg(org string) string {
	org = strings.TrimSpace(org)
	if org == "" || privacyMarkers[strings.ToLower(org)] {
		return models.PrivacyProtected
	}
	return org
}

// Fallback returns the record shown when no WHOIS data is available
func Fallback(domain string) models.WhoisRecord {
	return models.WhoisRecord{
		DomainName:    domain,
		CreatedDate:   models.NotAvailable,
		ExpiresDate:   models.NotAvailable,
		Registrar:     models.NotAvailable,
		RegistrantOrg: models.PrivacyProtected,
	}
}

// withDomain copies a cached result so it names the requested domain
func withDomain(r *Result, domain string) *Result {
	out := *r
	out.Record.DomainName = domain
	return &out
}

// getFromCache retrieves a cached result if valid
func (c *Client) getFromCache(domain string) *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.cache[domain]
	if !ok {
		return nil
	}

	if time.Since(cached.timestamp) > c.ttl {
		return nil
	}

	return cached.result
}

// saveToCache stores a result in the cache
func (c *Client) saveToCache(domain string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[domain] = &cachedResult{
		result:    result,
		timestamp: time.Now(),
	}
}

// ClearCache removes all cached entries
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*cachedResult)
}

// ExtractDomain returns the lowercased host of a URL without scheme,
// leading "www.", path, query, fragment or port.
func ExtractDomain(rawURL string) (string, error) {
	u := strings.TrimSpace(rawURL)
	if i := strings.Index(u, "://"); i != -1 {
		if scheme := strings.ToLower(u[:i]); scheme == "http" || scheme == "https" {
			u = u[i+3:]
		}
	}
	u = strings.TrimPrefix(u, "www.")

	if idx := strings.IndexAny(u, "/?#"); idx != -1 {
		u = u[:idx]
	}
	if idx := strings.Index(u, ":"); idx != -1 {
		u = u[:idx]
	}

	u = strings.ToLower(u)
	if u == "" {
		return "", ErrInvalidURL
	}
	return u, nil
}

// extractBaseDomain returns the registrable domain a WHOIS query goes
// to, e.g. "www.example.co.uk" -> "example.co.uk". IP addresses are
// returned unchanged.
func extractBaseDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "https://")

	if idx := strings.Index(domain, "/"); idx != -1 {
		domain = domain[:idx]
	}
	if idx := strings.Index(domain, ":"); idx != -1 {
		domain = domain[:idx]
	}
	domain = strings.TrimSuffix(domain, ".")

	if net.ParseIP(domain) != nil {
		return domain
	}

	base, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return ""
	}
	return base
}

// FormatDate renders a WHOIS date as "January 02, 2006". Dates in an
// unknown format are returned as received; empty ones become N/A.
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.NotAvailable
	}
	t, err := parseDate(s)
	if err != nil {
		return s
	}
	return t.Format(displayLayout)
}

// parseDate attempts to parse a date string in various formats
func parseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)

	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"02-Jan-2006",
		"January 02, 2006",
		"01/02/2006",
		"2006/01/02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// categorizeError converts WHOIS errors to user-friendly messages
func categorizeError(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "timeout"):
		return "WHOIS server timeout"
	case strings.Contains(errStr, "connection refused"):
		return "WHOIS server connection refused"
	case strings.Contains(errStr, "no whois server"):
		return "no WHOIS server found for this TLD"
	case strings.Contains(errStr, "rate limit"):
		return "rate limited by WHOIS server"
	default:
		return errStr
	}
}
