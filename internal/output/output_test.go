package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/commjoen/phishguard/internal/presentation"
	"github.com/commjoen/phishguard/internal/settings"
	"github.com/commjoen/phishguard/pkg/models"
)

func createTestReport() *Report {
	snap := presentation.Snapshot{
		Verdict: &models.AnalysisResult{Status: "Phishing", Score: 92, Risk: models.RiskDangerous},
		Whois: &models.WhoisRecord{
			DomainName:    "paypa1-login.example",
			CreatedDate:   "March 01, 2024",
			ExpiresDate:   "March 01, 2025",
			Registrar:     "NameCheap, Inc.",
			RegistrantOrg: models.PrivacyProtected,
		},
		Screenshot: presentation.Screenshot{Ref: "https://shots.example/a.png", Phase: presentation.ScreenshotLoaded},
	}
	return NewReport("https://paypa1-login.example/verify", settings.Default(), snap)
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		wantType  string
		wantError bool
	}{
		{"text format", "text", "*output.TextFormatter", false},
		{"empty format", "", "*output.TextFormatter", false},
		{"json format", "json", "*output.JSONFormatter", false},
		{"csv format", "csv", "*output.CSVFormatter", false},
		{"uppercase format", "JSON", "*output.JSONFormatter", false},
		{"invalid format", "xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, err := NewFormatter(tt.format)

			if tt.wantError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}

			if got := fmt.Sprintf("%T", formatter); got != tt.wantType {
				t.Errorf("Expected %s, got %s", tt.wantType, got)
			}
		})
	}
}

func TestTextFormatter(t *testing.T) {
	f := &TextFormatter{}
	output, err := f.Format(createTestReport())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []string{
		"PhishGuard | Auto-scan: on | Sensitivity: Medium",
		"URL: https://paypa1-login.example/verify",
		"[x] Phishing | Risk Score: 92/100 (red)",
		"paypa1-login.example",
		"March 01, 2024",
		"NameCheap, Inc.",
		models.PrivacyProtected,
		"https://shots.example/a.png",
	}
	for _, s := range expected {
		if !strings.Contains(output, s) {
			t.Errorf("Expected output to contain %q", s)
		}
	}
	if strings.Contains(output, "Analyzing...") {
		t.Error("Idle report must not show the busy marker")
	}
}

func TestTextFormatterEmptyBoard(t *testing.T) {
	s := settings.Settings{AutoScan: false, Sensitivity: settings.SensitivityHigh}
	r := NewReport("", s, presentation.Snapshot{Busy: true})

	output, err := (&TextFormatter{}).Format(r)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []string{
		"Auto-scan: off | Sensitivity: High | Analyzing...",
		presentation.VerdictPrompt,
		presentation.ScreenshotPlaceholder,
		models.Loading,
	}
	for _, s := range expected {
		if !strings.Contains(output, s) {
			t.Errorf("Expected output to contain %q", s)
		}
	}
	if strings.Contains(output, "URL:") {
		t.Error("Expected no URL line without a URL")
	}
}

func TestTextFormatterColor(t *testing.T) {
	f := &TextFormatter{Color: true}
	output, _ := f.Format(createTestReport())

	if !strings.Contains(output, "\033[31m[x] Phishing") {
		t.Error("Expected red ANSI badge")
	}
}

func TestTextFormatterErroredScreenshot(t *testing.T) {
	r := createTestReport()
	r.View.Screenshot = presentation.ScreenshotPanel{Phase: presentation.ScreenshotErrored, Ref: "https://shots.example/a.png"}

	output, _ := (&TextFormatter{}).Format(r)
	if strings.Contains(output, "https://shots.example/a.png") {
		t.Error("Failed screenshot must not be shown")
	}
}

func TestJSONFormatter(t *testing.T) {
	f := &JSONFormatter{Pretty: true}
	output, err := f.Format(createTestReport())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	view, _ := parsed["view"].(map[string]any)
	verdict, _ := view["verdict"].(map[string]any)
	if verdict["risk"] != "dangerous" || verdict["score"] != 92.0 {
		t.Errorf("Unexpected verdict %v", verdict)
	}
	shot, _ := view["screenshot"].(map[string]any)
	if shot["phase"] != "loaded" || shot["visible"] != true {
		t.Errorf("Unexpected screenshot %v", shot)
	}
	if parsed["sensitivity_label"] != "Medium" {
		t.Errorf("Unexpected sensitivity label %v", parsed["sensitivity_label"])
	}
}

func TestJSONFormatterCompact(t *testing.T) {
	f := &JSONFormatter{Pretty: false}
	output, err := f.Format(createTestReport())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 1 {
		t.Errorf("Expected compact JSON on one line, got %d lines", len(lines))
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&CSVFormatter{}).Write(&buf, createTestReport()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected header and one row, got %d records", len(records))
	}
	if records[0][0] != "url" || records[0][9] != "screenshot" {
		t.Errorf("Unexpected header %v", records[0])
	}

	row := records[1]
	want := []string{
		"https://paypa1-login.example/verify", "Phishing", "92", "dangerous",
		"paypa1-login.example", "March 01, 2024", "March 01, 2025",
		"NameCheap, Inc.", models.PrivacyProtected, "https://shots.example/a.png",
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("Column %s: expected %q, got %q", records[0][i], want[i], row[i])
		}
	}
}

func TestCSVFormatterEmptyVerdict(t *testing.T) {
	r := NewReport("example.com", settings.Default(), presentation.Snapshot{})
	output, err := (&CSVFormatter{}).Format(r)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	records, _ := csv.NewReader(strings.NewReader(output)).ReadAll()
	row := records[1]
	if row[1] != "" || row[2] != "" || row[9] != "" {
		t.Errorf("Expected blank verdict and screenshot columns, got %v", row)
	}
}
