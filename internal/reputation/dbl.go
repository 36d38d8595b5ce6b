package reputation

import (
	"context"
	"time"

	"github.com/commjoen/phishguard/internal/whois"
)

const dblZone = "dbl.spamhaus.org"

// dblReturnCodes maps Spamhaus DBL answers to their listing category
var dblReturnCodes = map[string]string{
	"127.0.1.2":   "spam domain",
	"127.0.1.4":   "phishing domain",
	"127.0.1.5":   "malware domain",
	"127.0.1.6":   "botnet C&C domain",
	"127.0.1.102": "abused legit spam",
	"127.0.1.103": "abused redirector",
	"127.0.1.104": "abused legit phish",
	"127.0.1.105": "abused legit malware",
	"127.0.1.106": "abused legit botnet C&C",
}

// dblErrorCodes are answers that report a refused query, not a listing
var dblErrorCodes = map[string]string{
	"127.255.255.252": "typing error in DNSBL name",
	"127.255.255.254": "query via public resolver refused",
	"127.255.255.255": "excessive number of queries",
}

// AResolver answers IPv4 address queries
type AResolver interface {
	LookupA(ctx context.Context, host string) ([]string, error)
}

// DBL checks the URL's domain against the Spamhaus Domain Block List
type DBL struct {
	resolver AResolver
	timeout  time.Duration
}

// NewDBL creates a DBL provider querying through resolver
func NewDBL(resolver AResolver, timeout time.Duration) *DBL {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &DBL{resolver: resolver, timeout: timeout}
}

// Name returns the provider identifier
func (d *DBL) Name() string {
	return "spamhaus-dbl"
}

// IsAvailable returns true if a resolver is configured
func (d *DBL) IsAvailable() bool {
	return d.resolver != nil
}

// Check queries <domain>.dbl.spamhaus.org for the URL's domain
func (d *DBL) Check(ctx context.Context, target string) *Result {
	result := &Result{
		Provider:    d.Name(),
		LastChecked: time.Now(),
	}

	domain, err := whois.ExtractDomain(target)
	if err != nil {
		result.Error = "no domain in URL"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	addrs, err := d.resolver.LookupA(ctx, domain+"."+dblZone)
	if err != nil {
		result.Error = "DBL query failed"
		return result
	}

	for _, addr := range addrs {
		if msg, ok := dblErrorCodes[addr]; ok {
			result.Error = msg
			return result
		}
		if category, ok := dblReturnCodes[addr]; ok {
			result.Categories = append(result.Categories, category)
		} else {
			result.Categories = append(result.Categories, "listed (code "+addr+")")
		}
		result.Detected = true
	}
	if result.Detected {
		result.Categories = dedupe(result.Categories)
	}

	return result
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
