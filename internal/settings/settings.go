// Package settings holds the user's scan preferences.
//
// They are displayed but not consulted by the analysis flow.
package settings

import "fmt"

// Sensitivity levels
const (
	SensitivityLow    = 1
	SensitivityMedium = 2
	SensitivityHigh   = 3
)

// Settings are the user-configurable scan options
type Settings struct {
	AutoScan    bool `json:"auto_scan"`
	Sensitivity int  `json:"sensitivity"`
}

// Default returns auto-scan on at medium sensitivity
func Default() Settings {
	return Settings{
		AutoScan:    true,
		Sensitivity: SensitivityMedium,
	}
}

// SensitivityLabel returns the label for a level. Anything other than
// low or medium reads as High.
func SensitivityLabel(level int) string {
	switch level {
	case SensitivityLow:
		return "Low"
	case SensitivityMedium:
		return "Medium"
	default:
		return "High"
	}
}

// Label returns the label of the current sensitivity
func (s Settings) Label() string {
	return SensitivityLabel(s.Sensitivity)
}

// Validate checks that the sensitivity is within the slider range
func (s Settings) Validate() error {
	if s.Sensitivity < SensitivityLow || s.Sensitivity > SensitivityHigh {
		return fmt.Errorf("sensitivity must be between %d and %d, got %d", SensitivityLow, SensitivityHigh, s.Sensitivity)
	}
	return nil
}
