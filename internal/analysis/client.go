// Package analysis dispatches URL analysis requests and resolves each one to
// a verdict, WHOIS record and screenshot reference
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/commjoen/phishguard/pkg/models"
)

const (
	analyzePath = "/api/analyze"
	// maxResponseSize bounds the body read from the analysis service
	maxResponseSize = 1 << 20
)

// Analyzer performs a single analysis round-trip
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error)
}

// Client talks to the remote analysis service over HTTP
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the service at baseURL. A zero timeout
// leaves the request unbounded apart from ctx.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Analyze posts req to the service and returns the decoded response.
// Errors are one of *TransportError, *ProtocolError or *MalformedResponseError.
func (c *Client) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProtocolError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var out models.AnalysisResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid JSON", Err: err}
	}
	if err := validate(&out); err != nil {
		return nil, err
	}

	return &out, nil
}

// validate rejects responses missing a sub-result so nothing undefined
// reaches a display slot
func validate(resp *models.AnalysisResponse) error {
	if resp.ModelResult == nil {
		return &MalformedResponseError{Reason: "missing model_result"}
	}
	if !resp.ModelResult.Risk.Valid() {
		return &MalformedResponseError{Reason: fmt.Sprintf("unknown risk %q", resp.ModelResult.Risk)}
	}
	if resp.WhoisDetails == nil {
		return &MalformedResponseError{Reason: "missing whois_details"}
	}
	// An empty reference renders the same as no screenshot
	if resp.ScreenshotURL != nil && *resp.ScreenshotURL == "" {
		resp.ScreenshotURL = nil
	}
	return nil
}
