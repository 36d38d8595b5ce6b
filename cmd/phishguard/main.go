// phishguard is a phishing URL analysis dashboard and the analysis service behind it
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/commjoen/phishguard/internal/output"
)

var (
	// Global flags
	verbose bool
	timeout time.Duration

	// Version information (set during build)
	version = "dev"
	// GitHub repository for version checks
	githubRepo = "commjoen/phishguard"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "phishguard",
	Short: "Phishing URL analysis dashboard",
	Long: `phishguard checks whether a URL is likely to be a phishing site.

It submits the URL to an analysis service and shows three panels: the
verdict with its risk score, the WHOIS registration of the domain, and a
screenshot of the page. The same binary runs the analysis service.

Environment:
  PHISHGUARD_API_URL   analysis service used by "analyze" (default http://localhost:5000)
  APIFLASH_API_KEY     screenshot service key used by "serve"
  SCREENSHOT_MODE      apiflash, chrome or off
A .env file in the working directory is read when present.`,
	Example: `  # Start the analysis service
  phishguard serve

  # Check a URL against it
  phishguard analyze https://paypa1-login.example/verify

  # JSON output to a file
  phishguard analyze example.com --format json --out result.json

  # Refresh the local threat list
  phishguard phishlist update --sources sources.yaml`,
	SilenceUsage: true,
}

func init() {
	initVersion()
	rootCmd.Version = version

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0, "Request timeout (0 leaves requests unbounded)")

	rootCmd.SetVersionTemplate(getVersionTemplate())

	rootCmd.AddCommand(serveCmd, analyzeCmd, phishlistCmd)
}

// initVersion fills in the module version for go install builds. A version
// set through LDFLAGS is kept.
func initVersion() {
	if version != "dev" && version != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		version = v
	}
}

// newLogger returns the diagnostic logger, silent unless --verbose is set
func newLogger() *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "phishguard: ", log.LstdFlags)
}

// getVersionTemplate returns a custom version template with update checking
func getVersionTemplate() string {
	versionInfo := fmt.Sprintf("phishguard version %s\n", version)

	// Check for updates (with timeout to avoid hanging)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	latestVersion, err := checkLatestVersion(ctx)
	if err != nil {
		if verbose {
			versionInfo += fmt.Sprintf("(unable to check for updates: %v)\n", err)
		}
	} else if latestVersion != "" && latestVersion != strings.TrimPrefix(version, "v") {
		versionInfo += fmt.Sprintf("\nA newer version is available: %s\n", latestVersion)
		versionInfo += fmt.Sprintf("Download: https://github.com/%s/releases/latest\n", githubRepo)
		versionInfo += fmt.Sprintf("Update:   go install github.com/%s/cmd/phishguard@latest\n", githubRepo)
	}

	return versionInfo
}

// GitHubRelease represents a GitHub release API response
type GitHubRelease struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	URL     string `json:"html_url"`
}

// checkLatestVersion queries GitHub API for the latest release
func checkLatestVersion(ctx context.Context) (string, error) {
	if version == "dev" || version == "" {
		return "", fmt.Errorf("development build")
	}

	url := fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", githubRepo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	// Set User-Agent to avoid rate limiting
	req.Header.Set("User-Agent", fmt.Sprintf("phishguard/%s", version))
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	client := &http.Client{
		Timeout: 3 * time.Second,
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&release); err != nil {
		return "", fmt.Errorf("failed to parse release info: %w", err)
	}

	return strings.TrimPrefix(release.TagName, "v"), nil
}

// validateOutputPath performs security validation on the output file path
func validateOutputPath(path string) error {
	if path == "" {
		return nil
	}

	cleanPath := filepath.Clean(path)
	if filepath.IsAbs(cleanPath) {
		sensitivePatterns := []string{"/etc/", "/var/", "/usr/", "/bin/", "/sbin/", "/root/"}
		for _, pattern := range sensitivePatterns {
			if strings.HasPrefix(cleanPath, pattern) {
				return fmt.Errorf("refusing to write to sensitive system location: %s", cleanPath)
			}
		}
	}

	return nil
}

// writeReport writes report to path, or to stdout when path is empty
func writeReport(formatter output.Formatter, report *output.Report, path string, stdout io.Writer) error {
	if path == "" {
		return formatter.Write(stdout, report)
	}

	if err := validateOutputPath(path); err != nil {
		return err
	}

	// #nosec G304 -- User-provided output file path is intentional for CLI tool
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	return formatter.Write(f, report)
}
