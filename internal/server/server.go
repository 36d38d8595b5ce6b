// Package server implements the analysis HTTP API consumed by the dashboard
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/commjoen/phishguard/internal/classifier"
	"github.com/commjoen/phishguard/internal/screenshot"
	"github.com/commjoen/phishguard/internal/whois"
	"github.com/commjoen/phishguard/pkg/models"
)

const (
	maxRequestBody  = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Classifier produces the model result for a URL
type Classifier interface {
	Classify(ctx context.Context, url string) (*classifier.Verdict, error)
}

// WhoisLookup returns registration details for a domain. It always
// yields a usable record.
type WhoisLookup interface {
	Lookup(ctx context.Context, domain string) *whois.Result
}

// AnalyzeResponse is the body of a successful POST /api/analyze
type AnalyzeResponse struct {
	ModelResult   *classifier.Verdict `json:"model_result"`
	WhoisDetails  models.WhoisRecord  `json:"whois_details"`
	ScreenshotURL *string             `json:"screenshot_url"`
}

// Server serves the analysis API
type Server struct {
	classifier    Classifier
	whois         WhoisLookup
	screenshots   screenshot.Provider
	screenshotDir string
	logger        *log.Logger
}

// Option configures a Server
type Option func(*Server)

// WithScreenshotDir serves stored screenshots from dir under /screenshots/
func WithScreenshotDir(dir string) Option {
	return func(s *Server) { s.screenshotDir = dir }
}

// WithLogger sets the request logger
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a server. A nil screenshot provider disables screenshots.
func New(c Classifier, w WhoisLookup, shots screenshot.Provider, opts ...Option) *Server {
	if shots == nil {
		shots = screenshot.Off{}
	}
	s := &Server{
		classifier:  c,
		whois:       w,
		screenshots: shots,
		logger:      log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the API router
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	// The dashboard is served separately, so any origin may call the API
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Post("/api/analyze", s.handleAnalyze)
	r.Get("/health", s.handleHealth)
	if s.screenshotDir != "" {
		r.Get("/screenshots/{name}", s.handleScreenshot)
	}
	return r
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Printf("listening on %s", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Message: "Phishing Detection API is running",
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := readURL(w, r)
	if !ok {
		return
	}

	target := strings.TrimSpace(rawURL)
	if target == "" {
		writeError(w, http.StatusBadRequest, "URL cannot be empty")
		return
	}

	domain, err := whois.ExtractDomain(target)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid URL format")
		return
	}

	start := time.Now()
	resp, err := s.analyze(r.Context(), target, domain)
	if err != nil {
		s.logger.Printf("analysis of %s failed: %v", target, err)
		writeError(w, http.StatusInternalServerError, "Analysis failed: "+err.Error())
		return
	}

	s.logger.Printf("analyzed %s: %s (score %.2f, %s) in %s",
		target, resp.ModelResult.Status, resp.ModelResult.Score, resp.ModelResult.Risk, time.Since(start).Round(time.Millisecond))
	writeJSON(w, http.StatusOK, resp)
}

// analyze runs classification, WHOIS and screenshot concurrently. Only a
// classification failure fails the request.
func (s *Server) analyze(ctx context.Context, target, domain string) (*AnalyzeResponse, error) {
	resp := &AnalyzeResponse{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := s.classifier.Classify(gctx, target)
		if err != nil {
			return err
		}
		resp.ModelResult = v
		return nil
	})

	g.Go(func() error {
		res := s.whois.Lookup(gctx, domain)
		if res.Failed() {
			s.logger.Printf("whois %s degraded: %s", domain, res.Error)
		}
		resp.WhoisDetails = res.Record
		return nil
	})

	g.Go(func() error {
		link, err := s.screenshots.Screenshot(gctx, target)
		if err != nil {
			s.logger.Printf("screenshot %s failed: %v", target, err)
			return nil
		}
		resp.ScreenshotURL = link
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}

// readURL decodes the url field of the request body. It writes the error
// response itself and reports false when the request is rejected.
func readURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "URL is required")
		return "", false
	}

	raw, ok := body["url"]
	if !ok || string(raw) == "null" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return "", false
	}

	var u string
	if err := json.Unmarshal(raw, &u); err != nil {
		writeError(w, http.StatusInternalServerError, "Analysis failed: url must be a string")
		return "", false
	}
	return u, true
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".png") {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.screenshotDir, name)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
