// Package dns resolves hostnames into the signals used by the classifier
package dns

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

const (
	defaultTimeout = 3 * time.Second
	defaultRetries = 2
)

// HostSignals contains the DNS facts about a hostname
type HostSignals struct {
	Host       string   `json:"host"`
	A          []string `json:"a,omitempty"`
	AAAA       []string `json:"aaaa,omitempty"`
	MX         []string `json:"mx,omitempty"`
	NS         []string `json:"ns,omitempty"`
	Resolvable bool     `json:"resolvable"`
	Error      string   `json:"error,omitempty"`
}

// Client provides DNS query functionality
type Client struct {
	dnsServers []string
	timeout    time.Duration
	retries    int
}

// NewClient creates a new DNS client with the specified timeout
func NewClient(timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		timeout:    timeout,
		retries:    defaultRetries,
		dnsServers: getSystemDNSServers(),
	}
}

// WithServers returns a copy of the client that queries the given servers
func (c *Client) WithServers(servers ...string) *Client {
	cp := *c
	cp.dnsServers = servers
	return &cp
}

// getSystemDNSServers returns the system's DNS servers or defaults
func getSystemDNSServers() []string {
	config, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(config.Servers) == 0 {
		// Fall back to well-known public DNS servers
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}

	servers := make([]string, 0, len(config.Servers))
	for _, server := range config.Servers {
		servers = append(servers, net.JoinHostPort(server, config.Port))
	}
	return servers
}

// Resolve queries address, mail and name server records for a host.
// IP literals are resolvable without a query.
func (c *Client) Resolve(ctx context.Context, host string) *HostSignals {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	result := &HostSignals{Host: host}
	if host == "" {
		result.Error = "empty hostname"
		return result
	}
	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		result.Resolvable = true
		return result
	}

	type queryResult struct {
		name    string
		records []string
		err     error
	}

	queries := []struct {
		name  string
		qtype uint16
	}{
		{"A", dns.TypeA},
		{"AAAA", dns.TypeAAAA},
		{"MX", dns.TypeMX},
		{"NS", dns.TypeNS},
	}

	var wg sync.WaitGroup
	results := make(chan queryResult, len(queries))

	for _, q := range queries {
		wg.Add(1)
		go func(name string, qtype uint16) {
			defer wg.Done()
			records, err := c.queryType(ctx, host, qtype)
			results <- queryResult{name: name, records: records, err: err}
		}(q.name, q.qtype)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []string
	for qr := range results {
		if qr.err != nil {
			if !isNotFoundError(qr.err) {
				errs = append(errs, fmt.Sprintf("%s: %s", qr.name, categorizeError(qr.err)))
			}
			continue
		}
		switch qr.name {
		case "A":
			result.A = qr.records
		case "AAAA":
			result.AAAA = qr.records
		case "MX":
			result.MX = qr.records
		case "NS":
			result.NS = qr.records
		}
	}

	sort.Strings(errs)
	if len(errs) > 0 {
		result.Error = strings.Join(errs, "; ")
	}
	result.Resolvable = len(result.A) > 0 || len(result.AAAA) > 0

	return result
}

// LookupA returns the IPv4 addresses of host. A name that does not exist
// yields no addresses and no error.
func (c *Client) LookupA(ctx context.Context, host string) ([]string, error) {
	records, err := c.queryType(ctx, host, dns.TypeA)
	if isNotFoundError(err) {
		return nil, nil
	}
	return records, err
}

// queryType returns the records of one type, sorted
func (c *Client) queryType(ctx context.Context, host string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)

	resp, err := c.query(ctx, msg)
	if err != nil {
		return nil, err
	}
	if resp.Rcode == dns.RcodeNameError {
		return nil, fmt.Errorf("%s: NXDOMAIN", host)
	}

	var records []string
	for _, ans := range resp.Answer {
		switch rr := ans.(type) {
		case *dns.A:
			records = append(records, rr.A.String())
		case *dns.AAAA:
			records = append(records, rr.AAAA.String())
		case *dns.MX:
			records = append(records, strings.TrimSuffix(rr.Mx, "."))
		case *dns.NS:
			records = append(records, strings.TrimSuffix(rr.Ns, "."))
		}
	}

	sort.Strings(records)
	return records, nil
}

// query performs a DNS query with retry logic
func (c *Client) query(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
	client := &dns.Client{
		Timeout: c.timeout,
		Net:     "udp",
	}

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for _, server := range c.dnsServers {
			resp, _, err := client.ExchangeContext(ctx, msg, server)
			if err != nil {
				lastErr = err
				continue
			}

			if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
				lastErr = fmt.Errorf("DNS error: %s", dns.RcodeToString[resp.Rcode])
				continue
			}

			return resp, nil
		}

		// Wait before retry (except for last attempt)
		if attempt < c.retries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * 250 * time.Millisecond):
			}
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("DNS query failed after %d attempts: %w", c.retries, lastErr)
	}
	return nil, fmt.Errorf("DNS query failed after %d attempts", c.retries)
}

// isNotFoundError checks if the error indicates no records were found
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "NXDOMAIN") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "Name Error")
}

// categorizeError converts DNS errors to user-friendly messages
func categorizeError(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return "DNS query timeout"
	}

	switch {
	case strings.Contains(errStr, "NXDOMAIN"):
		return "domain not found (NXDOMAIN)"
	case strings.Contains(errStr, "SERVFAIL"):
		return "server failure (SERVFAIL)"
	case strings.Contains(errStr, "REFUSED"):
		return "query refused"
	case strings.Contains(errStr, "no such host"):
		return "host not found"
	case strings.Contains(errStr, "i/o timeout"):
		return "DNS query timeout"
	case strings.Contains(errStr, "connection refused"):
		return "DNS server connection refused"
	case strings.Contains(errStr, "context canceled"):
		return "DNS query cancelled"
	default:
		return errStr
	}
}
