// Package cachekey derives stable cache keys from request method and URL.
//
// Keys are a pure function of the normalized method and URL and never
// include header values: header-based variation (Vary) is resolved at read
// time against the stored request snapshot, so one key maps to at most one
// physical entry.
package cachekey

import (
	"net/url"
	"strings"
)

const (
	prefix    = "httpcache"
	separator = ":"
)

// Build generates a deterministic cache key for the given method and URL.
// Format: httpcache:METHOD:normalized-url
//
// Example:
//
//	httpcache:GET:https://example.com/path?q=1
func Build(method, rawURL string) string {
	return prefix + separator + normalizeMethod(method) + separator + NormalizeURL(rawURL)
}

func normalizeMethod(method string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return "GET"
	}
	return method
}

// NormalizeURL canonicalizes a URL for keying: scheme and host are
// lower-cased, default ports are stripped, the path and query are
// preserved as-is, and the fragment is dropped.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		// Unparseable URLs still need a stable key.
		return rawURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = normalizeHost(u.Scheme, u.Host)
	u.Fragment = ""
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}
	return u.String()
}

// normalizeHost lower-cases the host and strips the default port for the
// scheme (:80 for http, :443 for https).
func normalizeHost(scheme, host string) string {
	host = strings.ToLower(host)
	switch scheme {
	case "http":
		host = strings.TrimSuffix(host, ":80")
	case "https":
		host = strings.TrimSuffix(host, ":443")
	}
	return host
}
