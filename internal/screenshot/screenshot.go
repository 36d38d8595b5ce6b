// Package screenshot produces the screenshot reference shown next to a verdict
package screenshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/commjoen/phishguard/internal/config"
)

// Provider returns a screenshot URL for a target, or nil when none is produced
type Provider interface {
	Screenshot(ctx context.Context, target string) (*string, error)
}

// Off never produces a screenshot
type Off struct{}

// Screenshot implements Provider
func (Off) Screenshot(context.Context, string) (*string, error) {
	return nil, nil
}

// APIFlash builds links to the APIFlash capture service. The link is
// produced without contacting the service; the client renders it.
type APIFlash struct {
	Endpoint  string
	AccessKey string // #nosec G117
}

// Screenshot implements Provider. An unconfigured APIFlash yields nil.
func (a APIFlash) Screenshot(_ context.Context, target string) (*string, error) {
	if a.Endpoint == "" || a.AccessKey == "" {
		return nil, nil
	}

	params := []struct{ key, value string }{
		{"access_key", a.AccessKey},
		{"url", withScheme(target)},
		{"full_page", "true"},
		{"format", "png"},
		{"width", "1200"},
		{"height", "800"},
		{"delay", "3"},
	}

	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.key+"="+quote(p.value))
	}

	link := a.Endpoint + "?" + strings.Join(parts, "&")
	return &link, nil
}

// quote percent-encodes everything except unreserved characters and "/",
// so spaces become %20
func quote(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9',
			c == '-', c == '.', c == '_', c == '~', c == '/':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// withScheme prefixes https:// when target has no http(s) scheme
func withScheme(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return "https://" + target
}

// FromConfig returns the provider selected by cfg.ScreenshotMode
func FromConfig(cfg config.Config) (Provider, error) {
	switch cfg.ScreenshotMode {
	case config.ScreenshotAPIFlash, "":
		return APIFlash{Endpoint: cfg.APIFlashEndpoint, AccessKey: cfg.APIFlashKey}, nil
	case config.ScreenshotChrome:
		return NewChrome(cfg.ScreenshotDir, cfg.PublicURL), nil
	case config.ScreenshotOff:
		return Off{}, nil
	default:
		return nil, fmt.Errorf("unsupported screenshot mode %q", cfg.ScreenshotMode)
	}
}
