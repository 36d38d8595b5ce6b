// Package phishlist keeps a local SQLite copy of public phishing URL feeds
package phishlist

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite" // pure Go, no cgo needed
)

const (
	defaultBatchSize     = 9000
	defaultSourceTimeout = 10 * time.Minute
	maxLineSize          = 64 << 10
)

const schema = `CREATE TABLE IF NOT EXISTS entries (
	url TEXT PRIMARY KEY,
	source TEXT,
	last_seen TEXT
)`

const insertSQL = "INSERT OR IGNORE INTO entries(url, source, last_seen) VALUES (?, ?, ?)"

// Match is the result of a lookup
type Match struct {
	Matched  bool   `json:"matched"`
	URL      string `json:"url,omitempty"`
	Source   string `json:"source,omitempty"`
	LastSeen string `json:"last_seen,omitempty"`
}

// Store is a threat list backed by a single SQLite file
type Store struct {
	db        *sql.DB
	client    *http.Client
	batchSize int
	logger    *log.Logger
	now       func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithHTTPClient sets the client used to download sources
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.client = c }
}

// WithBatchSize sets how many rows are committed per transaction
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger sets the progress logger
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens or creates the database at path and ensures the schema exists
func Open(path string, opts ...Option) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(60000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open threat list %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{
		db:        db,
		client:    &http.Client{Timeout: defaultSourceTimeout},
		batchSize: defaultBatchSize,
		logger:    log.New(io.Discard, "", 0),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup reports whether url is listed, verbatim
func (s *Store) Lookup(ctx context.Context, url string) (Match, error) {
	var m Match
	var source, lastSeen sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT url, source, last_seen FROM entries WHERE url = ? LIMIT 1", url,
	).Scan(&m.URL, &source, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return Match{}, nil
	}
	if err != nil {
		return Match{}, fmt.Errorf("lookup failed: %w", err)
	}

	m.Matched = true
	m.Source = source.String
	m.LastSeen = lastSeen.String
	return m, nil
}

// Count returns the number of listed URLs
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

// Update downloads every source and stores its lines. A failing source is
// logged and skipped. It returns the number of lines processed.
func (s *Store) Update(ctx context.Context, sources []string) (int, error) {
	total := 0
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := s.UpdateSource(ctx, src)
		total += n
		if err != nil {
			s.logger.Printf("[WARN] failed to fetch/store from %s: %v", src, err)
			continue
		}
	}
	s.logger.Printf("[INFO] Total lines processed across sources: %d", total)
	return total, nil
}

// UpdateSource streams one source into the database
func (s *Store) UpdateSource(ctx context.Context, src string) (int, error) {
	rawURL := ToRawGitHubURL(src)
	s.logger.Printf("[INFO] Fetching: %s", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	n, err := s.Ingest(ctx, rawURL, resp.Body)
	if err != nil {
		return n, err
	}
	s.logger.Printf("[INFO] Done %d lines from %s", n, rawURL)
	return n, nil
}

// Ingest stores each URL line of r under source. Blank lines and lines
// starting with "#" or "//" are skipped.
func (s *Store) Ingest(ctx context.Context, source string, r io.Reader) (int, error) {
	now := s.now().UTC().Format("2006-01-02T15:04:05+00:00")

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	batch := make([]string, 0, s.batchSize)
	count := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		batch = append(batch, line)
		count++

		if len(batch) >= s.batchSize {
			if err := s.insertBatch(ctx, batch, source, now); err != nil {
				return count - len(batch), err
			}
			s.logger.Printf("[INFO] inserted %d rows so far from this source", count)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return count - len(batch), fmt.Errorf("failed to read source: %w", err)
	}

	if len(batch) > 0 {
		if err := s.insertBatch(ctx, batch, source, now); err != nil {
			return count - len(batch), err
		}
	}
	return count, nil
}

// insertBatch writes one batch in a single transaction
func (s *Store) insertBatch(ctx context.Context, urls []string, source, lastSeen string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range urls {
		if _, err := stmt.ExecContext(ctx, u, source, lastSeen); err != nil {
			return fmt.Errorf("failed to insert %s: %w", u, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}
