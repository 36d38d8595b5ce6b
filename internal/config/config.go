// Package config loads settings from the environment and an optional .env file
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/commjoen/phishguard/internal/settings"
)

// Screenshot modes
const (
	ScreenshotAPIFlash = "apiflash"
	ScreenshotChrome   = "chrome"
	ScreenshotOff      = "off"
)

// Config holds the application configuration
type Config struct {
	// Client side
	APIURL   string
	Settings settings.Settings

	// Analysis service
	ListenAddr       string
	PublicURL        string
	PhishListDB      string
	APIFlashKey      string // #nosec G117
	APIFlashEndpoint string
	ScreenshotMode   string
	ScreenshotDir    string
	WhoisTimeout     time.Duration
	FetchTimeout     time.Duration

	// Reputation providers
	SafeBrowsingKey string // #nosec G117
	SpamhausDBL     bool
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		APIURL: getenv("PHISHGUARD_API_URL", "http://localhost:5000"),
		Settings: settings.Settings{
			AutoScan:    getenvBool("PHISHGUARD_AUTOSCAN", true),
			Sensitivity: getenvInt("PHISHGUARD_SENSITIVITY", settings.SensitivityMedium),
		},
		ListenAddr:       getenv("LISTEN_ADDR", ":5000"),
		PublicURL:        os.Getenv("PUBLIC_URL"),
		PhishListDB:      getenv("PHISHLIST_DB", "phish_urls_simple.db"),
		APIFlashKey:      os.Getenv("APIFLASH_API_KEY"),
		APIFlashEndpoint: os.Getenv("APIFLASH_ENDPOINT"),
		ScreenshotMode:   getenv("SCREENSHOT_MODE", ScreenshotAPIFlash),
		ScreenshotDir:    getenv("SCREENSHOT_DIR", "screenshots"),
		WhoisTimeout:     getenvDuration("WHOIS_TIMEOUT", 10*time.Second),
		FetchTimeout:     getenvDuration("FETCH_TIMEOUT", 5*time.Second),
		SafeBrowsingKey:  os.Getenv("SAFE_BROWSING_API_KEY"),
		SpamhausDBL:      getenvBool("SPAMHAUS_DBL", false),
	}

	switch cfg.ScreenshotMode {
	case ScreenshotAPIFlash, ScreenshotChrome, ScreenshotOff:
	default:
		return cfg, fmt.Errorf("unsupported SCREENSHOT_MODE %q (apiflash, chrome, off)", cfg.ScreenshotMode)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return cfg, fmt.Errorf("PHISHGUARD_SENSITIVITY: %w", err)
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
