package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/commjoen/phishguard/internal/classifier"
	"github.com/commjoen/phishguard/internal/config"
	"github.com/commjoen/phishguard/internal/dns"
	"github.com/commjoen/phishguard/internal/fetch"
	"github.com/commjoen/phishguard/internal/phishlist"
	"github.com/commjoen/phishguard/internal/reputation"
	"github.com/commjoen/phishguard/internal/screenshot"
	"github.com/commjoen/phishguard/internal/server"
	"github.com/commjoen/phishguard/internal/whois"
)

var (
	// serve flags
	listenAddr     string
	dbPath         string
	screenshotMode string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis service",
	Long: `serve exposes POST /api/analyze and GET /health.

Each request is checked against the local threat list, scored from URL and
page features, looked up in WHOIS and screenshotted. WHOIS and screenshot
failures degrade the response instead of failing it.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (default: $LISTEN_ADDR or :5000)")
	serveCmd.Flags().StringVar(&screenshotMode, "screenshots", "", "Screenshot mode: apiflash, chrome, or off (default: $SCREENSHOT_MODE)")
	addDBFlag(serveCmd)
}

func addDBFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dbPath, "db", "", "Threat list database (default: $PHISHLIST_DB or phish_urls_simple.db)")
}

// loadServiceConfig applies command-line overrides to the environment config
func loadServiceConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		cfg.ListenAddr = listenAddr
	}
	if f := cmd.Flags().Lookup("db"); f != nil && f.Changed {
		cfg.PhishListDB = dbPath
	}
	if f := cmd.Flags().Lookup("screenshots"); f != nil && f.Changed {
		cfg.ScreenshotMode = screenshotMode
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadServiceConfig(cmd)
	if err != nil {
		return err
	}

	// The service always reports its requests; --verbose adds diagnostics
	logger := log.New(os.Stderr, "", log.LstdFlags)
	diag := newLogger()

	store, err := phishlist.Open(cfg.PhishListDB, phishlist.WithLogger(logger))
	if err != nil {
		return err
	}
	defer store.Close()

	if n, err := store.Count(cmd.Context()); err == nil {
		logger.Printf("threat list %s: %d URLs", cfg.PhishListDB, n)
	}

	resolver := dns.NewClient(timeout)
	var dbl reputation.Provider
	if cfg.SpamhausDBL {
		dbl = reputation.NewDBL(resolver, timeout)
	}
	rep := reputation.NewManager(reputation.NewSafeBrowsing(cfg.SafeBrowsingKey, cfg.FetchTimeout), dbl)
	if names := rep.Providers(); len(names) > 0 {
		logger.Printf("reputation providers: %s", strings.Join(names, ", "))
	}

	cls := classifier.New(
		classifier.WithThreatList(store),
		classifier.WithFetcher(fetch.NewFetcher(cfg.FetchTimeout)),
		classifier.WithResolver(resolver),
		classifier.WithReputation(rep),
		classifier.WithLogger(diag),
	)
	who := whois.NewClient(cfg.WhoisTimeout)

	shots, err := screenshot.FromConfig(cfg)
	if err != nil {
		return err
	}
	opts := []server.Option{server.WithLogger(logger)}
	if chrome, ok := shots.(*screenshot.Chrome); ok {
		chrome.Logger = diag
		if err := os.MkdirAll(chrome.Dir, 0o750); err != nil {
			return fmt.Errorf("failed to create screenshot directory: %w", err)
		}
		opts = append(opts, server.WithScreenshotDir(chrome.Dir))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cls, who, shots, opts...).Run(ctx, cfg.ListenAddr)
}
