// Package reputation asks third-party blocklists about a URL
package reputation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Provider defines the interface for third-party reputation providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// Check queries the provider about the submitted URL
	Check(ctx context.Context, target string) *Result

	// IsAvailable returns true if the provider is configured and ready to use
	IsAvailable() bool
}

// Result contains the reputation check result from a provider
type Result struct {
	Provider    string    `json:"provider"`
	Detected    bool      `json:"detected"`
	Categories  []string  `json:"categories,omitempty"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Flagged reports whether any result detected the target
func Flagged(results []Result) bool {
	for _, r := range results {
		if r.Detected {
			return true
		}
	}
	return false
}

// Manager runs every available provider for a target
type Manager struct {
	providers   []Provider
	rateLimiter *RateLimiter
	cache       *Cache
}

// NewManager creates a manager over the available providers in ps
func NewManager(ps ...Provider) *Manager {
	m := &Manager{
		rateLimiter: NewRateLimiter(),
		cache:       NewCache(1 * time.Hour),
	}
	for _, p := range ps {
		if p != nil && p.IsAvailable() {
			m.providers = append(m.providers, p)
		}
	}
	return m
}

// Providers returns the names of the providers that will be queried
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.Name())
	}
	return names
}

// Check queries all providers concurrently. Results are ordered by
// provider name.
func (m *Manager) Check(ctx context.Context, target string) []Result {
	var wg sync.WaitGroup
	resultChan := make(chan Result, len(m.providers))

	for _, p := range m.providers {
		if cached := m.cache.Get(p.Name(), target); cached != nil {
			resultChan <- *cached
			continue
		}

		if !m.rateLimiter.Allow(p.Name()) {
			resultChan <- Result{
				Provider:    p.Name(),
				Error:       "rate limit exceeded",
				LastChecked: time.Now(),
			}
			continue
		}

		wg.Add(1)
		go func(provider Provider) {
			defer wg.Done()
			result := provider.Check(ctx, target)
			if result.Error == "" {
				m.cache.Set(provider.Name(), target, result)
			}
			resultChan <- *result
		}(p)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]Result, 0, len(m.providers))
	for result := range resultChan {
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Provider < results[j].Provider })
	return results
}

// RateLimiter controls the rate of requests to each provider
type RateLimiter struct {
	limits   map[string]*providerLimit
	defaults map[string]int // requests per minute
	now      func() time.Time
	mu       sync.Mutex
}

type providerLimit struct {
	lastReset time.Time
	tokens    int
	maxTokens int
}

// NewRateLimiter creates a new rate limiter with default limits
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limits: make(map[string]*providerLimit),
		defaults: map[string]int{
			"safebrowsing": 60,
			"spamhaus-dbl": 60,
		},
		now: time.Now,
	}
}

// Allow checks if a request to the provider is allowed
func (r *RateLimiter) Allow(provider string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	limit, ok := r.limits[provider]
	if !ok {
		maxTokens := r.defaults[provider]
		if maxTokens == 0 {
			maxTokens = 10
		}
		limit = &providerLimit{
			tokens:    maxTokens,
			lastReset: now,
			maxTokens: maxTokens,
		}
		r.limits[provider] = limit
	}

	if now.Sub(limit.lastReset) >= time.Minute {
		limit.tokens = limit.maxTokens
		limit.lastReset = now
	}

	if limit.tokens > 0 {
		limit.tokens--
		return true
	}
	return false
}

// Cache stores provider results temporarily
type Cache struct {
	entries map[string]*cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

type cacheEntry struct {
	result    *Result
	timestamp time.Time
}

// NewCache creates a new cache with the specified TTL
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

// Get retrieves a cached result
func (c *Cache) Get(provider, target string) *Result {
	key := provider + ":" + target
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Since(entry.timestamp) > c.ttl {
		return nil
	}
	return entry.result
}

// Set stores a result in the cache
func (c *Cache) Set(provider, target string, result *Result) {
	key := provider + ":" + target
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		result:    result,
		timestamp: time.Now(),
	}
}
