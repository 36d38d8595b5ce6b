// Package models contains shared data structures used across the application
package models

// RiskLevel is the coarse classification attached to a verdict
type RiskLevel string

const (
	RiskSafe      RiskLevel = "safe"
	RiskWarning   RiskLevel = "warning"
	RiskDangerous RiskLevel = "dangerous"
)

// Valid reports whether r is one of the recognized risk levels
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskSafe, RiskWarning, RiskDangerous:
		return true
	}
	return false
}

// AnalysisRequest is the body of POST /api/analyze
type AnalysisRequest struct {
	URL string `json:"url"`
}

// AnalysisResult is the verdict for a submitted URL
type AnalysisResult struct {
	Status string    `json:"status"`
	Score  float64   `json:"score"`
	Risk   RiskLevel `json:"risk"`
}

// WhoisRecord holds domain registration metadata as display strings
type WhoisRecord struct {
	DomainName    string `json:"domain_name"`
	CreatedDate   string `json:"created_date"`
	ExpiresDate   string `json:"expires_date"`
	Registrar     string `json:"registrar"`
	RegistrantOrg string `json:"registrant_org"`
}

// AnalysisResponse is the body returned by POST /api/analyze.
// ScreenshotURL is nil when the service produced no screenshot.
type AnalysisResponse struct {
	ModelResult   *AnalysisResult `json:"model_result"`
	WhoisDetails  *WhoisRecord    `json:"whois_details"`
	ScreenshotURL *string         `json:"screenshot_url"`
}

// ErrorResponse is returned by the analysis service on rejected requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Placeholder strings shared by the fallback record and the WHOIS panel
const (
	NotAvailable     = "N/A"
	PrivacyProtected = "Privacy Protected"
	Loading          = "Loading..."
)
