// Package output provides formatting options for dashboard reports
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/commjoen/phishguard/internal/presentation"
	"github.com/commjoen/phishguard/internal/settings"
)

// Report is one rendered dashboard
type Report struct {
	URL         string            `json:"url"`
	Settings    settings.Settings `json:"settings"`
	Sensitivity string            `json:"sensitivity_label"`
	View        presentation.View `json:"view"`
}

// NewReport renders a board snapshot for output
func NewReport(url string, s settings.Settings, snap presentation.Snapshot) *Report {
	return &Report{
		URL:         url,
		Settings:    s,
		Sensitivity: s.Label(),
		View:        presentation.Render(snap),
	}
}

// Formatter defines the interface for output formatters
type Formatter interface {
	Format(report *Report) (string, error)
	Write(w io.Writer, report *Report) error
}

// TextFormatter formats reports as human-readable panels
type TextFormatter struct {
	// Color enables ANSI colouring of the verdict badge
	Color bool
}

// JSONFormatter formats reports as JSON
type JSONFormatter struct {
	Pretty bool
}

// CSVFormatter formats reports as a single CSV row with header
type CSVFormatter struct{}

// NewFormatter creates a new formatter based on the format type
func NewFormatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "text", "":
		return &TextFormatter{}, nil
	case "json":
		return &JSONFormatter{Pretty: true}, nil
	case "csv":
		return &CSVFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

var ansi = map[string]string{
	presentation.ColorGreen:  "\033[32m",
	presentation.ColorYellow: "\033[33m",
	presentation.ColorRed:    "\033[31m",
}

const ansiReset = "\033[0m"

// Format returns the formatted string
func (f *TextFormatter) Format(report *Report) (string, error) {
	var sb strings.Builder
	if err := f.Write(&sb, report); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write writes the formatted output to the writer
func (f *TextFormatter) Write(w io.Writer, report *Report) error {
	separator := strings.Repeat("=", 80)
	lineSeparator := strings.Repeat("-", 80)
	v := report.View

	autoScan := "off"
	if report.Settings.AutoScan {
		autoScan = "on"
	}
	header := fmt.Sprintf("PhishGuard | Auto-scan: %s | Sensitivity: %s", autoScan, report.Sensitivity)
	if v.Busy {
		header += " | Analyzing..."
	}

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, separator)
	if report.URL != "" {
		fmt.Fprintf(w, "URL: %s\n", report.URL)
		fmt.Fprintln(w, lineSeparator)
	}

	fmt.Fprintln(w, "Verdict")
	line := v.Verdict.Text()
	if v.Verdict.State == presentation.VerdictPopulated {
		if f.Color {
			line = ansi[v.Verdict.Badge.Color] + line + ansiReset
		} else {
			line = fmt.Sprintf("%s (%s)", line, v.Verdict.Badge.Color)
		}
	}
	fmt.Fprintf(w, "  %s\n", line)
	fmt.Fprintln(w, lineSeparator)

	fmt.Fprintln(w, "WHOIS")
	fmt.Fprintf(w, "  %-16s %s\n", "Domain:", v.Whois.DomainName)
	fmt.Fprintf(w, "  %-16s %s\n", "Created:", v.Whois.CreatedDate)
	fmt.Fprintf(w, "  %-16s %s\n", "Expires:", v.Whois.ExpiresDate)
	fmt.Fprintf(w, "  %-16s %s\n", "Registrar:", v.Whois.Registrar)
	fmt.Fprintf(w, "  %-16s %s\n", "Registrant Org:", v.Whois.RegistrantOrg)
	fmt.Fprintln(w, lineSeparator)

	fmt.Fprintln(w, "Screenshot")
	switch {
	case v.Screenshot.Visible:
		fmt.Fprintf(w, "  %s\n", v.Screenshot.Ref)
	case v.Screenshot.Message != "":
		fmt.Fprintf(w, "  %s\n", v.Screenshot.Message)
	}
	fmt.Fprintln(w, separator)

	return nil
}

// Format returns the formatted string
func (f *JSONFormatter) Format(report *Report) (string, error) {
	var sb strings.Builder
	if err := f.Write(&sb, report); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write writes the formatted output to the writer
func (f *JSONFormatter) Write(w io.Writer, report *Report) error {
	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(report)
}

// Format returns the formatted string
func (f *CSVFormatter) Format(report *Report) (string, error) {
	var sb strings.Builder
	if err := f.Write(&sb, report); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write writes the formatted output to the writer
func (f *CSVFormatter) Write(w io.Writer, report *Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"url", "status", "score", "risk", "domain", "created", "expires", "registrar", "registrant_org", "screenshot"}
	if err := writer.Write(header); err != nil {
		return err
	}

	v := report.View
	status, score := "", ""
	if v.Verdict.State == presentation.VerdictPopulated {
		status = v.Verdict.Status
		score = strconv.FormatFloat(v.Verdict.Score, 'f', -1, 64)
	}
	shot := ""
	if v.Screenshot.Visible {
		shot = v.Screenshot.Ref
	}

	row := []string{
		report.URL, status, score, string(v.Verdict.Risk),
		v.Whois.DomainName, v.Whois.CreatedDate, v.Whois.ExpiresDate,
		v.Whois.Registrar, v.Whois.RegistrantOrg, shot,
	}
	return writer.Write(row)
}
