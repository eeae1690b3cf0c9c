// Package header parses the HTTP header values the cache engine depends on:
// Cache-Control directive lists, Vary lists, Age values, and HTTP dates.
//
// All parsers are best-effort and never return an error: malformed tokens
// are dropped while the rest of the value is still parsed, matching how
// real-world servers emit these headers.
package header

import (
	"strconv"
	"strings"
	"time"
)

// Directives is a parsed Cache-Control value. Directive names are
// lower-cased; arguments are stored in token form (quotes removed).
// Unknown directives are preserved but carry no semantics.
type Directives map[string]string

// Has reports whether the named directive is present.
func (d Directives) Has(name string) bool {
	_, ok := d[name]
	return ok
}

// Get returns the argument of the named directive and whether the
// directive is present at all.
func (d Directives) Get(name string) (string, bool) {
	val, ok := d[name]
	return val, ok
}

// Duration returns the delta-seconds argument of the named directive.
// The second return value is false when the directive is absent or its
// argument is not a valid non-negative integer, in which case the
// directive must be treated as present-without-argument via Has.
func (d Directives) Duration(name string) (time.Duration, bool) {
	val, ok := d[name]
	if !ok || val == "" {
		return 0, false
	}
	seconds, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// ParseCacheControl parses Cache-Control header values into a directive
// set. Multiple header lines combine into one set; when a directive
// repeats, the last occurrence wins.
func ParseCacheControl(values []string) Directives {
	d := make(Directives)
	for _, value := range values {
		for _, field := range strings.Split(value, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			name, arg, found := strings.Cut(field, "=")
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if found {
				arg = strings.Trim(strings.TrimSpace(arg), `"`)
			}
			d[name] = arg
		}
	}
	return d
}

// ParseVary parses Vary header values into an ordered list of header
// names. Original casing is preserved for display; callers compare
// case-insensitively. Duplicate names are collapsed.
func ParseVary(values []string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			lower := strings.ToLower(name)
			if seen[lower] {
				continue
			}
			seen[lower] = true
			names = append(names, name)
		}
	}
	return names
}

// The three HTTP-date formats of RFC 9110 §5.6.7. IMF-fixdate is the
// preferred format; the RFC 850 and asctime forms are obsolete but must
// still be accepted.
var dateLayouts = []string{
	"Mon, 02 Jan 2006 15:04:05 GMT",
	time.RFC850,
	time.ANSIC,
}

// ParseHTTPDate parses an HTTP-date value in any of the standard
// formats. Returns false on failure; callers treat that as "no date
// information".
func ParseHTTPDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseAge parses an Age header value (non-negative delta-seconds).
// A list-based value uses the first member, per RFC 9111 §5.1.
func ParseAge(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if first, _, found := strings.Cut(value, ","); found {
		value = strings.TrimSpace(first)
	}
	seconds, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
