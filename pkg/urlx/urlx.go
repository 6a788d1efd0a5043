// Package urlx validates and normalizes source URLs before any fetch work
// is scheduled. Everything here is pure; no I/O, no shared state.
package urlx

import (
	"net/url"
	"strings"

	"github.com/harunnryd/tutorcast/pkg/errorsx"
)

// Result describes the outcome of validating one raw URL.
type Result struct {
	IsValid       bool
	NormalizedURL string
	Domain        string
	Reason        string
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Validate checks a raw URL and returns its normalized form.
//
// Normalization: scheme and host lowercased, https assumed when no scheme is
// given, default ports stripped, trailing slash dropped unless the path is
// root. Normalize(Normalize(u)) == Normalize(u) for every valid u.
func Validate(raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return invalid(raw, "empty URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return invalid(raw, "malformed URL: "+err.Error())
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return invalid(raw, "unsupported scheme: "+u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || strings.ContainsAny(host, " \t") {
		return invalid(raw, "malformed host")
	}

	u.Scheme = scheme
	port := u.Port()
	if port == "" || port == defaultPorts[scheme] {
		u.Host = host
	} else {
		u.Host = host + ":" + port
	}
	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}

	return Result{
		IsValid:       true,
		NormalizedURL: u.String(),
		Domain:        host,
	}
}

// Normalize returns the normalized URL or an invalid_input error.
func Normalize(raw string) (string, error) {
	res := Validate(raw)
	if !res.IsValid {
		return "", errorsx.Wrap(&InvalidURLError{URL: raw, Reason: res.Reason}, errorsx.ReasonInvalidInput)
	}
	return res.NormalizedURL, nil
}

// InvalidURLError reports why a URL was rejected.
type InvalidURLError struct {
	URL    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return "invalid url " + strconvQuote(e.URL) + ": " + e.Reason
}

func invalid(raw, reason string) Result {
	return Result{IsValid: false, NormalizedURL: raw, Reason: reason}
}

func strconvQuote(s string) string {
	if len(s) > 120 {
		if runes := []rune(s); len(runes) > 120 {
			s = string(runes[:120]) + "..."
		}
	}
	return `"` + s + `"`
}
