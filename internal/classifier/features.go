package classifier

import (
	"bytes"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Feature names
const (
	NumDots                            = "NumDots"
	SubdomainLevel                     = "SubdomainLevel"
	PathLevel                          = "PathLevel"
	UrlLength                          = "UrlLength"
	NumDash                            = "NumDash"
	NumDashInHostname                  = "NumDashInHostname"
	AtSymbol                           = "AtSymbol"
	TildeSymbol                        = "TildeSymbol"
	NumUnderscore                      = "NumUnderscore"
	NumQueryComponents                 = "NumQueryComponents"
	NumAmpersand                       = "NumAmpersand"
	NumNumericChars                    = "NumNumericChars"
	NoHttps                            = "NoHttps"
	IpAddress                          = "IpAddress"
	DomainInPaths                      = "DomainInPaths"
	HostnameLength                     = "HostnameLength"
	PathLength                         = "PathLength"
	QueryLength                        = "QueryLength"
	UrlLengthRT                        = "UrlLengthRT"
	EmbeddedBrandName                  = "EmbeddedBrandName"
	MissingTitle                       = "MissingTitle"
	NumSensitiveWords                  = "NumSensitiveWords"
	IframeOrFrame                      = "IframeOrFrame"
	PctExtHyperlinks                   = "PctExtHyperlinks"
	PctNullSelfRedirectHyperlinks      = "PctNullSelfRedirectHyperlinks"
	PctExtNullSelfRedirectHyperlinksRT = "PctExtNullSelfRedirectHyperlinksRT"
	PctExtResourceUrls                 = "PctExtResourceUrls"
	PctExtResourceUrlsRT               = "PctExtResourceUrlsRT"
	ExtMetaScriptLinkRT                = "ExtMetaScriptLinkRT"
	SubmitInfoToEmail                  = "SubmitInfoToEmail"
	InsecureForms                      = "InsecureForms"
	AbnormalFormAction                 = "AbnormalFormAction"
	AbnormalExtFormActionR             = "AbnormalExtFormActionR"
	ExtFormAction                      = "ExtFormAction"
	FetchFailed                        = "FetchFailed"
	Unresolvable                       = "Unresolvable"
	ReputationFlagged                  = "ReputationFlagged"
)

var (
	sensitiveWords = []string{"login", "secure", "account", "update", "verify", "password", "bank", "crypto", "web3"}
	brandNames     = []string{"paypal", "sbi", "hdfc", "amazon", "apple", "microsoft", "google"}
	nullLinks      = map[string]bool{"#": true, "": true, "javascript:void(0);": true, "javascript:void(0)": true}
	ipv4Host       = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)
)

// Features maps feature names to values
type Features map[string]float64

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// target is a submitted URL split into the parts the features read
type target struct {
	raw    string
	parsed *url.URL
	host   string
}

// parseTarget parses raw, assuming https when the scheme is missing
func parseTarget(raw string) target {
	t := target{raw: raw}
	withScheme := raw
	if !strings.Contains(raw, "://") {
		withScheme = "https://" + raw
	}
	if u, err := url.Parse(withScheme); err == nil {
		t.parsed = u
		t.host = strings.ToLower(u.Hostname())
	}
	return t
}

// fetchURL returns the URL to request for page features
func (t target) fetchURL() string {
	if t.parsed == nil {
		return t.raw
	}
	return t.parsed.String()
}

// URLFeatures computes the lexical features of a URL
func URLFeatures(raw string) Features {
	return urlFeatures(parseTarget(raw))
}

func urlFeatures(t target) Features {
	raw := t.raw
	f := Features{}

	var path, query, scheme string
	if t.parsed != nil {
		path = t.parsed.EscapedPath()
		query = t.parsed.RawQuery
		scheme = strings.ToLower(t.parsed.Scheme)
	}
	host := t.host

	digits := 0
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits++
		}
	}

	f[NumNumericChars] = float64(digits)
	f[NumDash] = float64(strings.Count(raw, "-"))
	f[NumDots] = float64(strings.Count(raw, "."))
	f[PathLength] = float64(len(path))
	f[QueryLength] = float64(len(query))
	f[PathLevel] = float64(strings.Count(path, "/"))
	f[UrlLength] = float64(len(raw))
	if query != "" {
		f[NumQueryComponents] = float64(len(strings.Split(query, "&")))
	} else {
		f[NumQueryComponents] = 0
	}
	f[HostnameLength] = float64(len(host))
	f[NumAmpersand] = float64(strings.Count(raw, "&"))
	f[UrlLengthRT] = float64(len(raw)) / float64(len(host)+1)
	f[NumDashInHostname] = float64(strings.Count(host, "-"))
	f[IpAddress] = boolFeature(ipv4Host.MatchString(host) || (strings.Contains(host, ":") && net.ParseIP(host) != nil))
	f[NumUnderscore] = float64(strings.Count(raw, "_"))
	f[AtSymbol] = boolFeature(strings.Contains(raw, "@"))
	f[TildeSymbol] = boolFeature(strings.Contains(raw, "~"))
	f[NoHttps] = boolFeature(scheme != "https")

	labels := strings.Split(host, ".")
	mainDomain := host
	if len(labels) > 1 {
		mainDomain = labels[len(labels)-2]
	}
	f[DomainInPaths] = boolFeature(mainDomain != "" && strings.Contains(path, mainDomain))

	dots := strings.Count(host, ".")
	if dots > 1 {
		f[SubdomainLevel] = float64(dots - 1)
	} else {
		f[SubdomainLevel] = 0
	}

	lower := strings.ToLower(raw)
	embedded := false
	for _, b := range brandNames {
		if strings.Contains(lower, b) {
			embedded = true
			break
		}
	}
	f[EmbeddedBrandName] = boolFeature(embedded)

	return f
}

// ContentFeatures computes page features for a document served at pageURL
func ContentFeatures(pageURL string, body []byte) (Features, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return contentFeatures(parseTarget(pageURL), doc, body), nil
}

func contentFeatures(t target, doc *goquery.Document, body []byte) Features {
	f := Features{
		PctExtHyperlinks:                   0,
		PctNullSelfRedirectHyperlinks:      0,
		PctExtNullSelfRedirectHyperlinksRT: 0,
		PctExtResourceUrls:                 0,
		PctExtResourceUrlsRT:               0,
		ExtMetaScriptLinkRT:                0,
		SubmitInfoToEmail:                  0,
		InsecureForms:                      0,
		AbnormalFormAction:                 0,
		AbnormalExtFormActionR:             0,
		ExtFormAction:                      0,
	}

	title := doc.Find("title").First()
	f[MissingTitle] = boolFeature(title.Length() == 0 || strings.TrimSpace(title.Text()) == "")

	lower := strings.ToLower(string(body))
	words := 0
	for _, w := range sensitiveWords {
		if strings.Contains(lower, w) {
			words++
		}
	}
	f[NumSensitiveWords] = float64(words)

	f[IframeOrFrame] = boolFeature(doc.Find("iframe, frame").Length() > 0)

	netloc := ""
	if t.parsed != nil {
		netloc = t.parsed.Host
	}
	isExternal := func(link string) bool {
		if link == "" || strings.HasPrefix(link, "mailto:") || strings.HasPrefix(link, "javascript:") {
			return false
		}
		ref, err := url.Parse(link)
		if err != nil {
			return false
		}
		abs := ref
		if t.parsed != nil {
			abs = t.parsed.ResolveReference(ref)
		}
		return abs.Host != "" && abs.Host != netloc
	}

	var links []string
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		links = append(links, s.AttrOr("href", ""))
	})
	if n := float64(len(links)); n > 0 {
		ext, null := 0, 0
		for _, l := range links {
			if nullLinks[l] {
				null++
			}
			if isExternal(l) {
				ext++
			}
		}
		f[PctExtHyperlinks] = float64(ext) / n
		f[PctNullSelfRedirectHyperlinks] = float64(null) / n
		f[PctExtNullSelfRedirectHyperlinksRT] = float64(ext+null) / n
	}

	srcOrHref := func(s *goquery.Selection) string {
		if v := s.AttrOr("src", ""); v != "" {
			return v
		}
		return s.AttrOr("href", "")
	}

	var resources []string
	doc.Find("img, script, link").Each(func(_ int, s *goquery.Selection) {
		resources = append(resources, srcOrHref(s))
	})
	if n := float64(len(resources)); n > 0 {
		ext := 0
		for _, r := range resources {
			if isExternal(r) {
				ext++
			}
		}
		f[PctExtResourceUrls] = float64(ext) / n
		f[PctExtResourceUrlsRT] = float64(ext) / n
	}

	var msl []string
	doc.Find("meta, script, link").Each(func(_ int, s *goquery.Selection) {
		msl = append(msl, srcOrHref(s))
	})
	if n := float64(len(msl)); n > 0 {
		ext := 0
		for _, m := range msl {
			if isExternal(m) {
				ext++
			}
		}
		f[ExtMetaScriptLinkRT] = float64(ext) / n
	}

	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		action := s.AttrOr("action", "")
		if strings.Contains(action, "mailto:") {
			f[SubmitInfoToEmail] = 1
		}
		if strings.HasPrefix(strings.TrimSpace(action), "http://") {
			f[InsecureForms] = 1
		}
		if isExternal(action) {
			f[AbnormalFormAction] = 1
			f[AbnormalExtFormActionR]++
			if strings.HasPrefix(action, "http") {
				f[ExtFormAction] = 1
			}
		}
	})

	return f
}
