package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const safeBrowsingBaseURL = "https://safebrowsing.googleapis.com/v4"

// SafeBrowsing checks URLs against the Google Safe Browsing lookup API
type SafeBrowsing struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSafeBrowsing creates a Safe Browsing provider. It is unavailable
// without an API key.
func NewSafeBrowsing(apiKey string, timeout time.Duration) *SafeBrowsing {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &SafeBrowsing{
		apiKey:  apiKey,
		baseURL: safeBrowsingBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier
func (s *SafeBrowsing) Name() string {
	return "safebrowsing"
}

// IsAvailable returns true if the provider is configured
func (s *SafeBrowsing) IsAvailable() bool {
	return s.apiKey != ""
}

// Check looks the URL up. A target without a scheme is checked as https.
func (s *SafeBrowsing) Check(ctx context.Context, target string) *Result {
	result := &Result{
		Provider:    s.Name(),
		LastChecked: time.Now(),
	}

	if !strings.Contains(target, "://") {
		target = "https://" + target
	}

	body, err := json.Marshal(safeBrowsingRequest{
		Client: safeBrowsingClient{ClientID: "phishguard", ClientVersion: "1.0.0"},
		ThreatInfo: safeBrowsingThreatInfo{
			ThreatTypes:      []string{"SOCIAL_ENGINEERING", "MALWARE", "UNWANTED_SOFTWARE"},
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []safeBrowsingThreatEntry{{URL: target}},
		},
	})
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return result
	}

	reqURL := fmt.Sprintf("%s/threatMatches:find?key=%s", s.baseURL, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		result.Error = "request failed"
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		result.Error = "Google Safe Browsing API rate limit exceeded"
		return result
	case resp.StatusCode != http.StatusOK:
		result.Error = fmt.Sprintf("API error: %s", resp.Status)
		return result
	}

	var sbResponse safeBrowsingResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&sbResponse); err != nil {
		result.Error = fmt.Sprintf("failed to parse response: %v", err)
		return result
	}

	seen := make(map[string]bool)
	for _, match := range sbResponse.Matches {
		result.Detected = true
		if !seen[match.ThreatType] {
			result.Categories = append(result.Categories, match.ThreatType)
			seen[match.ThreatType] = true
		}
	}

	return result
}

type safeBrowsingRequest struct {
	Client     safeBrowsingClient     `json:"client"`
	ThreatInfo safeBrowsingThreatInfo `json:"threatInfo"`
}

type safeBrowsingClient struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type safeBrowsingThreatInfo struct {
	ThreatTypes      []string                  `json:"threatTypes"`
	PlatformTypes    []string                  `json:"platformTypes"`
	ThreatEntryTypes []string                  `json:"threatEntryTypes"`
	ThreatEntries    []safeBrowsingThreatEntry `json:"threatEntries"`
}

type safeBrowsingThreatEntry struct {
	URL string `json:"url"`
}

type safeBrowsingResponse struct {
	Matches []safeBrowsingMatch `json:"matches"`
}

type safeBrowsingMatch struct {
	ThreatType   string                  `json:"threatType"`
	PlatformType string                  `json:"platformType"`
	Threat       safeBrowsingThreatEntry `json:"threat"`
}
