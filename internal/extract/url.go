package extract

import (
	"net/url"
	"strings"
)

// ExtractDomain pulls the normalized host out of a raw URL: lower-cased, with
// scheme, path, default port, and any "www." prefix stripped. The boolean is
// false when no usable host can be derived; such observations are suppressed
// entirely and never reach the matcher.
func ExtractDomain(rawURL string) (string, bool) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.Trim(host, ".")
	if host == "" || !strings.Contains(host, ".") {
		return "", false
	}
	return host, true
}
