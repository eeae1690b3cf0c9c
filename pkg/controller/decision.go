package controller

import (
	"errors"
	"net/http"
)

// ErrOnlyIfCached is returned when a request carries the only-if-cached
// directive and no usable stored response exists. It is the only cache
// fault that surfaces to the caller; transports translate it into a
// 504 Gateway Timeout.
var ErrOnlyIfCached = errors.New("only-if-cached: no usable stored response")

// DecisionType classifies the outcome of OnRequest.
type DecisionType string

const (
	// DecisionServe means the stored response is fresh and can be
	// returned without contacting upstream.
	DecisionServe DecisionType = "serve"

	// DecisionRevalidate means a stale entry with validators exists; the
	// request should go upstream with the conditional headers attached.
	DecisionRevalidate DecisionType = "revalidate"

	// DecisionFetch means no usable entry exists; fetch upstream in full.
	DecisionFetch DecisionType = "fetch"

	// DecisionBypass means the request is not cacheable at all; go to the
	// network without reading or writing the cache.
	DecisionBypass DecisionType = "bypass"

	// DecisionFail means the request must fail without contacting
	// upstream (only-if-cached with no usable entry).
	DecisionFail DecisionType = "fail"
)

// Decision is the verdict OnRequest hands back to the transport.
type Decision struct {
	Type DecisionType

	// Response is the cached response to serve, with its Age header set.
	// Set only for DecisionServe.
	Response *http.Response

	// ConditionalHeaders carry If-None-Match / If-Modified-Since built
	// from the stored validators. Set only for DecisionRevalidate.
	ConditionalHeaders http.Header

	// Freshness reports the arithmetic behind the verdict, for
	// diagnostics. Set for DecisionServe and DecisionRevalidate.
	Freshness *Freshness

	// Err is set only for DecisionFail.
	Err error
}

// ActionType classifies the outcome of OnResponse.
type ActionType string

const (
	// ActionStored means a new entry was persisted.
	ActionStored ActionType = "stored"

	// ActionUpdated means a 304 was merged into the stored entry; the
	// Action's Response carries the merged representation.
	ActionUpdated ActionType = "updated"

	// ActionNotStored means the response was not cacheable; any
	// preexisting entry under the key was removed.
	ActionNotStored ActionType = "not-stored"

	// ActionDiscarded means a 304 arrived with no stored entry to
	// freshen (a protocol violation) and was dropped.
	ActionDiscarded ActionType = "discarded"

	// ActionInvalidated means a successful unsafe method removed the
	// stored GET entry for the same resource.
	ActionInvalidated ActionType = "invalidated"
)

// Action is the verdict OnResponse hands back to the transport.
type Action struct {
	Type ActionType

	// Response is the merged cached response after a 304. Set only for
	// ActionUpdated.
	Response *http.Response

	// Reason explains ActionNotStored and ActionDiscarded verdicts.
	Reason string
}
