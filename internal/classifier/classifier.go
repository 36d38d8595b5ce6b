// Package classifier produces the phishing verdict for a URL.
//
// A URL found in the local threat list is phishing outright. Anything
// else is scored from lexical URL features, features of the fetched page
// and whether the host resolves at all.
package classifier

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/commjoen/phishguard/internal/dns"
	"github.com/commjoen/phishguard/internal/fetch"
	"github.com/commjoen/phishguard/internal/phishlist"
	"github.com/commjoen/phishguard/internal/reputation"
	"github.com/commjoen/phishguard/pkg/models"
)

// Status values
const (
	StatusListed   = "Phishing (from database)"
	StatusPhishing = "Phishing"
	StatusBenign   = "Benign"
)

// ThreatList looks URLs up in a list of known phishing URLs
type ThreatList interface {
	Lookup(ctx context.Context, url string) (phishlist.Match, error)
}

// PageFetcher retrieves the page behind a URL
type PageFetcher interface {
	Get(ctx context.Context, url string) (*fetch.Page, error)
}

// HostResolver reports DNS facts about a host
type HostResolver interface {
	Resolve(ctx context.Context, host string) *dns.HostSignals
}

// ReputationChecker asks third-party blocklists about a URL
type ReputationChecker interface {
	Check(ctx context.Context, target string) []reputation.Result
}

// Verdict is the model result returned to clients. It carries the
// status, score and risk every client reads plus diagnostic detail.
type Verdict struct {
	URL string `json:"url"`
	models.AnalysisResult
	PhishProbability  float64  `json:"phish_probability,omitempty"`
	BenignProbability float64  `json:"benign_probability,omitempty"`
	Features          Features `json:"features,omitempty"`
	Source            string   `json:"source,omitempty"`
	LastSeen          string   `json:"last_seen,omitempty"`

	Reputation []reputation.Result `json:"reputation,omitempty"`
}

// Classifier scores URLs
type Classifier struct {
	list     ThreatList
	fetcher  PageFetcher
	resolver HostResolver
	rep      ReputationChecker
	model    Model
	logger   *log.Logger
}

// Option configures a Classifier
type Option func(*Classifier)

// WithThreatList enables the threat list check
func WithThreatList(l ThreatList) Option {
	return func(c *Classifier) { c.list = l }
}

// WithFetcher enables page content features
func WithFetcher(f PageFetcher) Option {
	return func(c *Classifier) { c.fetcher = f }
}

// WithResolver enables the DNS signal
func WithResolver(r HostResolver) Option {
	return func(c *Classifier) { c.resolver = r }
}

// WithReputation enables third-party blocklist checks
func WithReputation(r ReputationChecker) Option {
	return func(c *Classifier) { c.rep = r }
}

// WithModel replaces the built-in weights
func WithModel(m Model) Option {
	return func(c *Classifier) { c.model = m }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *log.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// New creates a classifier. Collaborators left unset are skipped; a
// classifier without a fetcher treats every page as unfetchable.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		model:  DefaultModel(),
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the verdict for rawURL
func (c *Classifier) Classify(ctx context.Context, rawURL string) (*Verdict, error) {
	if c.list != nil {
		m, err := c.list.Lookup(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("threat list lookup failed: %w", err)
		}
		if m.Matched {
			return listed(rawURL, m), nil
		}
	}

	t := parseTarget(rawURL)
	features := urlFeatures(t)

	for k, v := range c.pageFeatures(ctx, t) {
		features[k] = v
	}

	if c.resolver != nil && t.host != "" {
		signals := c.resolver.Resolve(ctx, t.host)
		features[Unresolvable] = boolFeature(!signals.Resolvable)
		if signals.Error != "" {
			c.logger.Printf("dns %s: %s", t.host, signals.Error)
		}
	}

	var rep []reputation.Result
	if c.rep != nil {
		rep = c.rep.Check(ctx, rawURL)
		features[ReputationFlagged] = boolFeature(reputation.Flagged(rep))
		for _, r := range rep {
			if r.Error != "" {
				c.logger.Printf("reputation %s for %s: %s", r.Provider, rawURL, r.Error)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := c.verdict(rawURL, features)
	v.Reputation = rep
	return v, nil
}

// pageFeatures fetches the page and extracts content features. Any
// failure yields FetchFailed and no content features.
func (c *Classifier) pageFeatures(ctx context.Context, t target) Features {
	failed := Features{FetchFailed: 1}
	if c.fetcher == nil {
		return failed
	}

	page, err := c.fetcher.Get(ctx, t.fetchURL())
	if err != nil {
		c.logger.Printf("Error extracting features for %s: %v", t.raw, err)
		return failed
	}

	f, err := ContentFeatures(t.fetchURL(), page.Body)
	if err != nil {
		c.logger.Printf("Error parsing page for %s: %v", t.raw, err)
		return failed
	}
	f[FetchFailed] = 0
	return f
}

// verdict applies the model to the features
func (c *Classifier) verdict(rawURL string, f Features) *Verdict {
	p := c.model.PhishProbability(f)

	v := &Verdict{
		URL:               rawURL,
		PhishProbability:  round(p, 4),
		BenignProbability: round(1-p, 4),
		Features:          f,
	}
	v.Risk = RiskFor(p)
	if p >= PhishingThreshold {
		v.Status = StatusPhishing
		v.Score = round(p*100, 2)
	} else {
		v.Status = StatusBenign
		v.Score = round((1-p)*100, 2)
	}
	return v
}

func listed(rawURL string, m phishlist.Match) *Verdict {
	v := &Verdict{
		URL:      rawURL,
		Source:   m.Source,
		LastSeen: m.LastSeen,
	}
	v.Status = StatusListed
	v.Score = 100
	v.Risk = models.RiskDangerous
	return v
}
