package screenshot

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/commjoen/phishguard/internal/fetch"
)

const (
	defaultChromeTimeout = 30 * time.Second
	settleDelay          = 3 * time.Second
)

// Chrome captures full-page screenshots with a headless browser and
// stores them as PNG files under Dir
type Chrome struct {
	Dir        string
	PublicBase string
	ExecPath   string
	Timeout    time.Duration
	Delay      time.Duration
	Logger     *log.Logger
}

// NewChrome creates a Chrome provider writing into dir. Links are
// rooted at publicBase; an empty base gives site-relative links.
func NewChrome(dir, publicBase string) *Chrome {
	return &Chrome{
		Dir:        dir,
		PublicBase: strings.TrimSuffix(publicBase, "/"),
		ExecPath:   os.Getenv("CHROME_PATH"),
		Timeout:    defaultChromeTimeout,
		Delay:      settleDelay,
		Logger:     log.New(io.Discard, "", 0),
	}
}

// Screenshot implements Provider
func (c *Chrome) Screenshot(ctx context.Context, target string) (*string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.WindowSize(1200, 800),
		chromedp.UserAgent(fetch.UserAgent),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(c.Logger.Printf))
	defer browserCancel()

	var buf []byte
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(withScheme(target)),
		chromedp.WaitReady("body"),
		chromedp.Sleep(c.Delay),
		chromedp.FullScreenshot(&buf, 100),
	); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	name, err := c.save(buf)
	if err != nil {
		return nil, err
	}

	link := c.PublicBase + "/screenshots/" + name
	return &link, nil
}

// save writes a PNG under a fresh name and returns the name
func (c *Chrome) save(png []byte) (string, error) {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshots directory: %w", err)
	}

	name := uuid.NewString() + ".png"
	if err := os.WriteFile(filepath.Join(c.Dir, name), png, 0o600); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return name, nil
}
