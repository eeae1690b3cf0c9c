// Package entry defines the cached response model and its wire codec.
package entry

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/frostming/cacheyou/pkg/header"
)

// NoValue marks a Vary-selected request header that was absent on the
// original request. Absence is itself a distinguishing value, so absent
// headers are stored explicitly rather than omitted.
const NoValue = "\x00absent\x00"

// VaryAny is the Vary wildcard; an entry carrying it never matches a
// subsequent request.
const VaryAny = "*"

// Entry is the unit persisted per cache key: the cached response together
// with the request metadata needed to decide whether it may be reused.
type Entry struct {
	// RequestMethod is the method the entry answers, normally GET or HEAD.
	RequestMethod string `json:"request_method"`

	// RequestURL is the normalized absolute URL.
	RequestURL string `json:"request_url"`

	// RequestHeaders is the Vary-selected snapshot of the original
	// request's headers, taken at fetch time. Headers named by Vary but
	// absent on the request are stored as NoValue.
	RequestHeaders map[string]string `json:"request_headers"`

	// ResponseStatus, ResponseHeaders and ResponseBody are the cached
	// response.
	ResponseStatus  int         `json:"response_status"`
	ResponseHeaders http.Header `json:"response_headers"`
	ResponseBody    []byte      `json:"response_body"`

	// FetchedAt is when the response was received from upstream. It is
	// reset on every successful revalidation.
	FetchedAt time.Time `json:"fetched_at"`

	// VaryNames is the ordered list of header names from the response's
	// Vary header at store time.
	VaryNames []string `json:"vary_names"`
}

// New builds an entry from a request/response pair. The response body is
// read in full and restored on the response so the caller can still
// consume it.
func New(req *http.Request, resp *http.Response, fetchedAt time.Time) (*Entry, error) {
	if req == nil || resp == nil {
		return nil, fmt.Errorf("request and response are required")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	varyNames := header.ParseVary(resp.Header.Values("Vary"))

	return &Entry{
		RequestMethod:   req.Method,
		RequestURL:      req.URL.String(),
		RequestHeaders:  Snapshot(varyNames, req.Header),
		ResponseStatus:  resp.StatusCode,
		ResponseHeaders: resp.Header.Clone(),
		ResponseBody:    body,
		FetchedAt:       fetchedAt,
		VaryNames:       varyNames,
	}, nil
}

// Snapshot captures the request header values named by varyNames. Absent
// headers are recorded as NoValue. Keys are stored lower-cased.
func Snapshot(varyNames []string, reqHeader http.Header) map[string]string {
	snapshot := make(map[string]string, len(varyNames))
	for _, name := range varyNames {
		if name == VaryAny {
			continue
		}
		snapshot[strings.ToLower(name)] = headerValue(reqHeader, name)
	}
	return snapshot
}

// VaryMatches reports whether the given request headers match the stored
// Vary snapshot: every header named by VaryNames must have the same value
// (or the same explicit absence) as at store time. An entry varying on
// "*" never matches.
func (e *Entry) VaryMatches(reqHeader http.Header) bool {
	for _, name := range e.VaryNames {
		if name == VaryAny {
			return false
		}
		stored, ok := e.RequestHeaders[strings.ToLower(name)]
		if !ok {
			// Snapshot is incomplete for this Vary list; do not reuse.
			return false
		}
		if headerValue(reqHeader, name) != stored {
			return false
		}
	}
	return true
}

// headerValue joins all field lines of a header into the single
// comparison value, or NoValue when the header is absent.
func headerValue(h http.Header, name string) string {
	values := h.Values(name)
	if len(values) == 0 {
		return NoValue
	}
	return strings.Join(values, ", ")
}

// HasValidator reports whether the entry carries an ETag or Last-Modified
// validator usable for conditional revalidation.
func (e *Entry) HasValidator() bool {
	return e.ETag() != "" || e.LastModified() != ""
}

// ETag returns the stored ETag validator, if any.
func (e *Entry) ETag() string {
	return e.ResponseHeaders.Get("ETag")
}

// LastModified returns the stored Last-Modified value, if any.
func (e *Entry) LastModified() string {
	return e.ResponseHeaders.Get("Last-Modified")
}

// Response materializes the entry as an *http.Response ready to hand to
// a caller. The body is a fresh reader over the stored bytes.
func (e *Entry) Response() *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.ResponseStatus, http.StatusText(e.ResponseStatus)),
		StatusCode:    e.ResponseStatus,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.ResponseHeaders.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.ResponseBody)),
		ContentLength: int64(len(e.ResponseBody)),
	}
}
