package classifier

import (
	"math"

	"github.com/commjoen/phishguard/pkg/models"
)

// Decision thresholds on the phishing probability
const (
	PhishingThreshold  = 0.5
	DangerousThreshold = 0.7
	WarningThreshold   = 0.4
)

// Model is a logistic scorer over named features. Features without a
// weight are ignored.
type Model struct {
	Bias    float64
	Weights map[string]float64
}

// DefaultModel returns the built-in weights
func DefaultModel() Model {
	return Model{
		Bias: -3.5,
		Weights: map[string]float64{
			NumDots:                       0.15,
			SubdomainLevel:                0.35,
			PathLevel:                     0.05,
			UrlLength:                     0.012,
			NumDash:                       0.1,
			NumDashInHostname:             0.4,
			NumNumericChars:               0.03,
			NumQueryComponents:            0.1,
			NumAmpersand:                  0.05,
			NumUnderscore:                 0.05,
			IpAddress:                     2.0,
			DomainInPaths:                 0.5,
			EmbeddedBrandName:             0.6,
			AtSymbol:                      1.5,
			TildeSymbol:                   0.5,
			NoHttps:                       0.8,
			MissingTitle:                  0.6,
			NumSensitiveWords:             0.25,
			IframeOrFrame:                 0.4,
			PctExtHyperlinks:              0.8,
			PctNullSelfRedirectHyperlinks: 1.5,
			PctExtResourceUrls:            0.5,
			ExtMetaScriptLinkRT:           0.3,
			SubmitInfoToEmail:             1.5,
			InsecureForms:                 1.0,
			AbnormalFormAction:            1.2,
			ExtFormAction:                 0.6,
			FetchFailed:                   0.7,
			Unresolvable:                  1.5,
			ReputationFlagged:             6.0,
		},
	}
}

// PhishProbability returns the probability that f describes a phishing page
func (m Model) PhishProbability(f Features) float64 {
	z := m.Bias
	for name, w := range m.Weights {
		z += w * f[name]
	}
	return 1 / (1 + math.Exp(-z))
}

// RiskFor maps a phishing probability to a risk level
func RiskFor(p float64) models.RiskLevel {
	switch {
	case p >= DangerousThreshold:
		return models.RiskDangerous
	case p >= WarningThreshold:
		return models.RiskWarning
	default:
		return models.RiskSafe
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
