package platform

import (
	"strings"
)

// Query parameters stripped during normalization. Anything prefixed utm_
// is dropped as well. Matching happens on the pre-normalized form, so a
// URL carrying these still classifies; normalization produces the form
// handed to the downstream fetcher.
var trackingParams = map[string]bool{
	"fbclid":   true,
	"gclid":    true,
	"igsh":     true,
	"igshid":   true,
	"trk":      true,
	"rcm":      true,
	"ref":      true,
	"ref_src":  true,
	"ref_url":  true,
	"s":        true,
	"t":        true,
	"si":       true,
	"share_id": true,
	"mibextid": true,
	"rdid":     true,
	"cxt":      true,
}

func isTrackingParam(name string) bool {
	return trackingParams[name] || strings.HasPrefix(name, "utm_")
}

// Normalize strips tracking query parameters and the fragment, lowercases
// the host, and percent-encodes non-ASCII path segments (Korean or accented
// article slugs survive as fetchable URLs). Remaining query structure and
// order are preserved, so the function is idempotent. The platform argument
// names the profile the URL was classified as; unknown values are accepted.
// Malformed input yields "".
func (r *Recognizer) Normalize(raw, platform string) string {
	u := parse(raw)
	if u == nil {
		return ""
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(u.EscapedPath())

	if q := filterQuery(u.RawQuery); q != "" {
		b.WriteString("?")
		b.WriteString(q)
	}
	return b.String()
}

// filterQuery drops tracking parameters while keeping the original order of
// the survivors. url.Values is avoided because it does not preserve order,
// which would break idempotence.
func filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		name := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			name = pair[:i]
		}
		if isTrackingParam(name) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}
