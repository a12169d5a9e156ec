package platform

import (
	"net/url"
	"strings"
)

// Confidence levels. A domain plus a recognized path shape scores high; a
// bare domain match means the URL is tentatively the platform's but not a
// recognized post shape.
const (
	confidenceShape  = 0.95
	confidenceDomain = 0.6
)

// Detection is the result of classifying a URL.
type Detection struct {
	Platform   string  `json:"platform"`
	Confidence float64 `json:"confidence"`
}

// Recognizer classifies social-media URLs against an ordered profile list.
// All entry points are total: malformed input yields a nil/false result,
// never a panic.
type Recognizer struct {
	profiles []Profile
}

func NewRecognizer() *Recognizer {
	return &Recognizer{profiles: defaultProfiles()}
}

// parse accepts scheme-less references ("x.com/a/status/1") by assuming
// https for matching purposes. Returns nil if the input has no usable host.
func parse(raw string) *url.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	return u
}

func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func (p *Profile) matchHost(host string) bool {
	for _, d := range p.Domains {
		if hostMatches(host, d) {
			return true
		}
	}
	return false
}

// matchShape runs the profile's shapes over the path (query appended) and
// returns the first captured post id.
func (p *Profile) matchShape(u *url.URL) (string, bool) {
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	for _, shape := range p.Shapes {
		if m := shape.FindStringSubmatch(target); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Detect classifies raw. Case is folded on the host only; path and query
// stay intact. Returns nil when no profile's domains match.
func (r *Recognizer) Detect(raw string) *Detection {
	u := parse(raw)
	if u == nil {
		return nil
	}
	host := strings.ToLower(u.Hostname())

	for i := range r.profiles {
		p := &r.profiles[i]
		if !p.matchHost(host) {
			continue
		}
		if _, ok := p.matchShape(u); ok {
			return &Detection{Platform: p.Platform, Confidence: confidenceShape}
		}
		return &Detection{Platform: p.Platform, Confidence: confidenceDomain}
	}
	return nil
}

// DetectWithConfidence is Detect with the score made explicit in the return.
func (r *Recognizer) DetectWithConfidence(raw string) (platform string, confidence float64, ok bool) {
	d := r.Detect(raw)
	if d == nil {
		return "", 0, false
	}
	return d.Platform, d.Confidence, true
}

// ExtractPostID returns the canonical post id captured by the matching
// profile's path shape. ok is false when no shape matches, even if the
// platform itself is known.
func (r *Recognizer) ExtractPostID(raw string) (string, bool) {
	u := parse(raw)
	if u == nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())

	for i := range r.profiles {
		p := &r.profiles[i]
		if !p.matchHost(host) {
			continue
		}
		return p.matchShape(u)
	}
	return "", false
}

// SupportedPlatforms lists platform ids in profile order.
func (r *Recognizer) SupportedPlatforms() []string {
	out := make([]string, 0, len(r.profiles))
	for i := range r.profiles {
		out = append(out, r.profiles[i].Platform)
	}
	return out
}

// PlatformDomains returns the canonical domains for a platform id, or nil
// for an unknown platform.
func (r *Recognizer) PlatformDomains(platform string) []string {
	for i := range r.profiles {
		if r.profiles[i].Platform == platform {
			return append([]string(nil), r.profiles[i].Domains...)
		}
	}
	return nil
}
