// Package transport wires the cache controller into the standard
// net/http client stack as a RoundTripper. Wrap any http.Client's
// transport with it and cacheable responses are served, revalidated,
// and invalidated transparently.
package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/frostming/cacheyou/pkg/controller"
)

// FromCacheHeader is set on responses answered from the store without
// contacting the upstream, when marking is enabled.
const FromCacheHeader = "X-From-Cache"

// Options configures a Transport.
type Options struct {
	// Base is the underlying RoundTripper performing real upstream
	// round trips. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// MarkCachedResponses adds the X-From-Cache header to responses
	// served from the store.
	MarkCachedResponses bool

	// Logger overrides the transport's logger.
	Logger *zerolog.Logger
}

// Transport is a caching http.RoundTripper. It is safe for concurrent
// use if its base transport is.
type Transport struct {
	controller *controller.Controller
	base       http.RoundTripper
	mark       bool
	logger     zerolog.Logger
}

// New creates a caching Transport around the given controller.
func New(c *controller.Controller, opts Options) *Transport {
	if c == nil {
		panic("controller cannot be nil")
	}

	t := &Transport{
		controller: c,
		base:       opts.Base,
		mark:       opts.MarkCachedResponses,
	}
	if t.base == nil {
		t.base = http.DefaultTransport
	}
	if opts.Logger != nil {
		t.logger = *opts.Logger
	} else {
		t.logger = log.With().Str("component", "httpcache-transport").Logger()
	}
	return t
}

// RoundTrip implements http.RoundTripper. Errors from the base
// transport are returned unchanged; cache storage failures never
// surface here.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	decision := t.controller.OnRequest(req)

	switch decision.Type {
	case controller.DecisionServe:
		if t.mark {
			decision.Response.Header.Set(FromCacheHeader, "1")
		}
		return decision.Response, nil

	case controller.DecisionFail:
		if errors.Is(decision.Err, controller.ErrOnlyIfCached) {
			// RFC 9111 §5.2.1.7: a cache that cannot satisfy
			// only-if-cached answers 504 without contacting upstream.
			return gatewayTimeout(req), nil
		}
		return nil, decision.Err

	case controller.DecisionRevalidate:
		return t.revalidate(req, decision)

	default: // DecisionFetch, DecisionBypass
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		t.controller.OnResponse(req, resp)
		return resp, nil
	}
}

// revalidate sends a conditional request and resolves the outcome: a
// 304 freshens the stored entry and serves its body, anything else
// flows through the normal storage path.
func (t *Transport) revalidate(req *http.Request, decision controller.Decision) (*http.Response, error) {
	conditional := req.Clone(req.Context())
	for name, values := range decision.ConditionalHeaders {
		conditional.Header[name] = values
	}

	resp, err := t.base.RoundTrip(conditional)
	if err != nil {
		return nil, err
	}

	action := t.controller.OnResponse(req, resp)
	if action.Type == controller.ActionUpdated {
		// The merged response carries the stored body; the 304's own
		// body is empty and no longer needed.
		resp.Body.Close()
		if t.mark {
			action.Response.Header.Set(FromCacheHeader, "1")
		}
		return action.Response, nil
	}
	if resp.StatusCode == http.StatusNotModified {
		// 304 but nothing usable in the store. Retry unconditionally
		// rather than hand the caller a bodyless 304 it never asked for.
		t.logger.Warn().Str("url", req.URL.String()).Msg("304 with no stored entry, refetching")
		resp.Body.Close()
		retry, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		t.controller.OnResponse(req, retry)
		return retry, nil
	}
	return resp, nil
}

// gatewayTimeout builds the synthetic 504 for an unsatisfiable
// only-if-cached request.
func gatewayTimeout(req *http.Request) *http.Response {
	status := http.StatusGatewayTimeout
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Request:    req,
	}
}

// Client returns an http.Client using this transport, a convenience
// for the common case.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}
