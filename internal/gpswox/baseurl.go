package gpswox

import "strings"

// NormalizeBaseURL defaults the scheme to https, strips trailing slashes and
// makes sure the path ends in /api.
func NormalizeBaseURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrMissingBaseURL
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	s = strings.TrimRight(s, "/")
	if !strings.HasSuffix(s, "/api") {
		s += "/api"
	}
	return s, nil
}

// HTTPFallback returns the plain-http variant of an https base URL.
func HTTPFallback(baseURL string) (string, bool) {
	if len(baseURL) >= 8 && strings.EqualFold(baseURL[:8], "https://") {
		return "http://" + baseURL[8:], true
	}
	return "", false
}
