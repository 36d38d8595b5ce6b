package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/commjoen/phishguard/pkg/models"
)

const validBody = `{
	"model_result": {"status": "Phishing", "score": 92, "risk": "dangerous"},
	"whois_details": {
		"domain_name": "badsite.example",
		"created_date": "March 01, 2024",
		"expires_date": "March 01, 2025",
		"registrar": "Example Registrar",
		"registrant_org": "Privacy Protected"
	},
	"screenshot_url": "https://shots.example/badsite.png"
}`

func TestClientAnalyzeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/analyze" {
			t.Errorf("Expected /api/analyze, got %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected application/json, got %q", ct)
		}

		var req models.AnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.URL != "https://www.badsite.example/login" {
			t.Errorf("Unexpected URL in request: %q", req.URL)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(validBody))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", 5*time.Second)
	resp, err := client.Analyze(context.Background(), models.AnalysisRequest{URL: "https://www.badsite.example/login"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if resp.ModelResult.Score != 92 || resp.ModelResult.Risk != models.RiskDangerous {
		t.Errorf("Unexpected model result: %+v", resp.ModelResult)
	}
	if resp.WhoisDetails.Registrar != "Example Registrar" {
		t.Errorf("Unexpected WHOIS details: %+v", resp.WhoisDetails)
	}
	if resp.ScreenshotURL == nil || *resp.ScreenshotURL != "https://shots.example/badsite.png" {
		t.Errorf("Unexpected screenshot URL: %v", resp.ScreenshotURL)
	}
}

func TestClientAnalyzeFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(error) bool
	}{
		{
			name:   "server error with body",
			status: http.StatusInternalServerError,
			body:   validBody,
			wantErr: func(err error) bool {
				var pe *ProtocolError
				return errors.As(err, &pe) && pe.StatusCode == http.StatusInternalServerError
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{"error": "URL is required"}`,
			wantErr: func(err error) bool {
				var pe *ProtocolError
				return errors.As(err, &pe) && pe.StatusCode == http.StatusBadRequest
			},
		},
		{
			name:   "not JSON",
			status: http.StatusOK,
			body:   "<html>gateway</html>",
			wantErr: func(err error) bool {
				var me *MalformedResponseError
				return errors.As(err, &me)
			},
		},
		{
			name:   "missing model_result",
			status: http.StatusOK,
			body:   `{"whois_details": {}, "screenshot_url": null}`,
			wantErr: func(err error) bool {
				var me *MalformedResponseError
				return errors.As(err, &me) && me.Reason == "missing model_result"
			},
		},
		{
			name:   "missing whois_details",
			status: http.StatusOK,
			body:   `{"model_result": {"status": "Benign", "score": 80, "risk": "safe"}}`,
			wantErr: func(err error) bool {
				var me *MalformedResponseError
				return errors.As(err, &me) && me.Reason == "missing whois_details"
			},
		},
		{
			name:   "unknown risk",
			status: http.StatusOK,
			body:   `{"model_result": {"status": "Benign", "score": 80, "risk": "meh"}, "whois_details": {}}`,
			wantErr: func(err error) bool {
				var me *MalformedResponseError
				return errors.As(err, &me)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, 5*time.Second)
			resp, err := client.Analyze(context.Background(), models.AnalysisRequest{URL: "example.com"})
			if err == nil {
				t.Fatalf("Expected error, got response %+v", resp)
			}
			if !tt.wantErr(err) {
				t.Errorf("Unexpected error type: %T %v", err, err)
			}
		})
	}
}

func TestClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := NewClient(baseURL, 2*time.Second)
	_, err := client.Analyze(context.Background(), models.AnalysisRequest{URL: "example.com"})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TransportError, got %T %v", err, err)
	}
}

func TestClientEmptyScreenshotIsNull(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model_result": {"status": "Benign", "score": 97.5, "risk": "safe"}, "whois_details": {"domain_name": "example.com"}, "screenshot_url": ""}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, 0).Analyze(context.Background(), models.AnalysisRequest{URL: "example.com"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.ScreenshotURL != nil {
		t.Errorf("Expected empty screenshot URL to decode as nil, got %q", *resp.ScreenshotURL)
	}
}
