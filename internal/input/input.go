// Package input gates user-entered URLs before they are dispatched for analysis
package input

import (
	"strings"

	"github.com/commjoen/phishguard/pkg/models"
)

// Submittable reports whether raw may be submitted. Only a blank string is
// rejected; scheme, length and syntax are left to the analysis service.
func Submittable(raw string) bool {
	return strings.TrimSpace(raw) != ""
}

// Request builds the analysis request for raw. The text is forwarded exactly
// as entered, untrimmed. ok is false when raw is not submittable.
func Request(raw string) (req models.AnalysisRequest, ok bool) {
	if !Submittable(raw) {
		return models.AnalysisRequest{}, false
	}
	return models.AnalysisRequest{URL: raw}, true
}
