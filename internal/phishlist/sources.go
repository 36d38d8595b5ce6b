package phishlist

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSources is used when no sources file exists
var DefaultSources = []string{
	"https://github.com/Phishing-Database/Phishing.Database/blob/master/phishing-links-ACTIVE.txt",
}

// SourcesFile is the YAML layout of the sources file
type SourcesFile struct {
	Sources []string `yaml:"sources"`
}

// LoadSources reads feed URLs from a YAML file. A missing file yields
// DefaultSources.
func LoadSources(path string) ([]string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator supplied
	if errors.Is(err, fs.ErrNotExist) {
		return append([]string(nil), DefaultSources...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file SourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}

	sources := make([]string, 0, len(file.Sources))
	for _, s := range file.Sources {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("sources file %s lists no sources", path)
	}
	return sources, nil
}

// ToRawGitHubURL converts a github.com blob link into its
// raw.githubusercontent.com form. Other URLs are returned unchanged.
func ToRawGitHubURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if host := strings.ToLower(u.Host); host != "github.com" && host != "www.github.com" {
		return raw
	}

	// /<owner>/<repo>/blob/<branch>/<path>
	parts := strings.Split(u.Path, "/")
	blob := -1
	for i, p := range parts {
		if p == "blob" {
			blob = i
			break
		}
	}
	if blob < 3 || len(parts) < blob+3 {
		return raw
	}

	owner, repo, branch := parts[1], parts[2], parts[blob+1]
	path := strings.Join(parts[blob+2:], "/")
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", owner, repo, branch, path)
}
