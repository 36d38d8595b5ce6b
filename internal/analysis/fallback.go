package analysis

import (
	"strings"

	"github.com/commjoen/phishguard/pkg/models"
)

// FallbackDomain derives a display domain from the submitted text: a leading
// http:// or https:// is removed, then a leading www., then everything from
// the first "/" on. No other normalization is applied.
func FallbackDomain(rawURL string) string {
	d := rawURL
	if strings.HasPrefix(d, "https://") {
		d = d[len("https://"):]
	} else if strings.HasPrefix(d, "http://") {
		d = d[len("http://"):]
	}
	d = strings.TrimPrefix(d, "www.")
	if idx := strings.Index(d, "/"); idx != -1 {
		d = d[:idx]
	}
	return d
}

// FallbackWhois synthesizes the record shown when the service is unreachable
func FallbackWhois(rawURL string) models.WhoisRecord {
	return models.WhoisRecord{
		DomainName:    FallbackDomain(rawURL),
		CreatedDate:   models.NotAvailable,
		ExpiresDate:   models.NotAvailable,
		Registrar:     models.NotAvailable,
		RegistrantOrg: models.PrivacyProtected,
	}
}
