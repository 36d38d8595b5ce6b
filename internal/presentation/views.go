package presentation

import (
	"fmt"
	"strconv"

	"github.com/commjoen/phishguard/pkg/models"
)

// Placeholder texts
const (
	VerdictPrompt         = "Enter a URL to check"
	ScreenshotPlaceholder = "Screenshot will appear here after analysis"
	ScreenshotGenerating  = "Generating screenshot..."
)

// Badge colours and icons keyed by risk
const (
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorRed    = "red"

	IconCheck    = "check"
	IconTriangle = "triangle"
	IconX        = "x"
)

// Badge is the coloured status marker of the verdict slot
type Badge struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// BadgeFor maps a risk level to its badge. Unknown levels get the safe
// colour with the cross icon.
func BadgeFor(risk models.RiskLevel) Badge {
	switch risk {
	case models.RiskSafe:
		return Badge{Color: ColorGreen, Icon: IconCheck}
	case models.RiskWarning:
		return Badge{Color: ColorYellow, Icon: IconTriangle}
	case models.RiskDangerous:
		return Badge{Color: ColorRed, Icon: IconX}
	default:
		return Badge{Color: ColorGreen, Icon: IconX}
	}
}

// VerdictState is the state of the verdict slot
type VerdictState string

const (
	VerdictEmpty     VerdictState = "empty"
	VerdictPopulated VerdictState = "populated"
)

// VerdictPanel is the rendered verdict slot
type VerdictPanel struct {
	State  VerdictState     `json:"state"`
	Status string           `json:"status,omitempty"`
	Score  float64          `json:"score"`
	Risk   models.RiskLevel `json:"risk,omitempty"`
	Badge  Badge            `json:"badge"`
}

// ScoreText returns the score line, e.g. "Risk Score: 92/100"
func (p VerdictPanel) ScoreText() string {
	return fmt.Sprintf("Risk Score: %s/100", strconv.FormatFloat(p.Score, 'f', -1, 64))
}

// Text returns the one-line rendering of the slot
func (p VerdictPanel) Text() string {
	if p.State == VerdictEmpty {
		return VerdictPrompt
	}
	return fmt.Sprintf("[%s] %s | %s", p.Badge.Icon, p.Status, p.ScoreText())
}

// Verdict derives the verdict slot from s
func Verdict(s Snapshot) VerdictPanel {
	if s.Verdict == nil {
		return VerdictPanel{State: VerdictEmpty}
	}
	return VerdictPanel{
		State:  VerdictPopulated,
		Status: s.Verdict.Status,
		Score:  s.Verdict.Score,
		Risk:   s.Verdict.Risk,
		Badge:  BadgeFor(s.Verdict.Risk),
	}
}

// WhoisState is the state of the WHOIS slot
type WhoisState string

const (
	WhoisLoading   WhoisState = "loading"
	WhoisPopulated WhoisState = "populated"
)

// WhoisPanel is the rendered WHOIS slot
type WhoisPanel struct {
	State         WhoisState `json:"state"`
	DomainName    string     `json:"domain_name"`
	CreatedDate   string     `json:"created_date"`
	ExpiresDate   string     `json:"expires_date"`
	Registrar     string     `json:"registrar"`
	RegistrantOrg string     `json:"registrant_org"`
}

// Whois derives the WHOIS slot from s. Each field falls back to its own
// placeholder when empty, before and after a record is installed.
func Whois(s Snapshot) WhoisPanel {
	var rec models.WhoisRecord
	st := WhoisLoading
	if s.Whois != nil {
		rec = *s.Whois
		st = WhoisPopulated
	}
	return WhoisPanel{
		State:         st,
		DomainName:    orDefault(rec.DomainName, models.NotAvailable),
		CreatedDate:   orDefault(rec.CreatedDate, models.Loading),
		ExpiresDate:   orDefault(rec.ExpiresDate, models.Loading),
		Registrar:     orDefault(rec.Registrar, models.Loading),
		RegistrantOrg: orDefault(rec.RegistrantOrg, models.NotAvailable),
	}
}

// ScreenshotPanel is the rendered screenshot slot
type ScreenshotPanel struct {
	Phase ScreenshotPhase `json:"phase"`
	Ref   string          `json:"ref,omitempty"`
	// Visible is true only once the image has loaded
	Visible bool `json:"visible"`
	// Message is the text shown in place of the image, empty when none
	Message string `json:"message,omitempty"`
}

// ScreenshotView derives the screenshot slot from s
func ScreenshotView(s Snapshot) ScreenshotPanel {
	p := ScreenshotPanel{Phase: s.Screenshot.Phase, Ref: s.Screenshot.Ref}
	switch s.Screenshot.Phase {
	case ScreenshotEmpty:
		p.Message = ScreenshotPlaceholder
	case ScreenshotLoading:
		p.Message = ScreenshotGenerating
	case ScreenshotLoaded:
		p.Visible = true
	}
	return p
}

// View is every slot rendered from one snapshot
type View struct {
	Busy       bool            `json:"busy"`
	Verdict    VerdictPanel    `json:"verdict"`
	Whois      WhoisPanel      `json:"whois"`
	Screenshot ScreenshotPanel `json:"screenshot"`
}

// Render derives all slots from s
func Render(s Snapshot) View {
	return View{
		Busy:       s.Busy,
		Verdict:    Verdict(s),
		Whois:      Whois(s),
		Screenshot: ScreenshotView(s),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
