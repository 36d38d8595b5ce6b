package presentation

import (
	"context"
	"fmt"
	"image"
	// Register decoders for the formats screenshot services return
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"
)

const defaultImageTimeout = 30 * time.Second

// HTTPImageLoader downloads an image and checks that it decodes
type HTTPImageLoader struct {
	client *http.Client
}

// NewHTTPImageLoader creates a loader with the specified timeout
func NewHTTPImageLoader(timeout time.Duration) *HTTPImageLoader {
	if timeout == 0 {
		timeout = defaultImageTimeout
	}
	return &HTTPImageLoader{
		client: &http.Client{Timeout: timeout},
	}
}

// Load fetches ref and decodes its header
func (l *HTTPImageLoader) Load(ctx context.Context, ref string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image request returned %s", resp.Status)
	}

	if _, _, err := image.DecodeConfig(resp.Body); err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
