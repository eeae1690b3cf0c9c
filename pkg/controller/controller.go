// Package controller implements the caching decision engine: it decides
// whether a request can be answered from the store, whether a stored
// response is still fresh, how to revalidate stale entries, and how
// upstream responses update the store.
//
// The controller is stateless between calls; all state lives in the
// store. Its two operations mirror the two halves of a round trip:
//
//   - OnRequest inspects an outbound request and returns a Decision:
//     serve from cache, revalidate conditionally, fetch upstream,
//     bypass the cache, or fail (only-if-cached with no entry).
//   - OnResponse inspects an upstream response and returns an Action:
//     a new entry stored, a 304 merged into the stored entry, a veto,
//     or an invalidation after an unsafe method.
//
// Storage faults never break the request path: Get failures degrade to
// a miss, Set and Delete failures are logged and counted but swallowed.
package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/frostming/cacheyou/pkg/cachekey"
	"github.com/frostming/cacheyou/pkg/entry"
	"github.com/frostming/cacheyou/pkg/header"
	"github.com/frostming/cacheyou/pkg/store"
)

// DefaultHeuristicFraction is the fraction of the Date minus
// Last-Modified interval used as the heuristic freshness lifetime.
const DefaultHeuristicFraction = 0.1

// defaultCacheableStatuses is the cacheable-by-policy status set.
var defaultCacheableStatuses = []int{200, 203, 300, 301, 308, 404, 410}

// unsafeMethods are the methods whose success invalidates the stored
// GET entry for the same resource.
var unsafeMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// Options configures a Controller. The zero value gives a private cache
// with heuristic freshness disabled, caching GET and HEAD responses
// with the default status set through the JSON entry codec.
type Options struct {
	// Shared makes the controller behave as a shared cache: s-maxage is
	// honored and responses marked private are not stored. The default
	// is private-cache semantics, where private does not veto.
	Shared bool

	// HeuristicFreshness enables the Last-Modified based heuristic
	// lifetime for responses without explicit expiration.
	HeuristicFreshness bool

	// HeuristicFraction overrides the heuristic fraction (default 0.1).
	HeuristicFraction float64

	// CacheableStatuses replaces the default cacheable status set
	// (200, 203, 300, 301, 308, 404, 410).
	CacheableStatuses []int

	// CacheableMethods replaces the default cacheable request methods
	// (GET, HEAD). Callers add a method here to mark it explicitly
	// idempotent and cacheable.
	CacheableMethods []string

	// Codec overrides the entry codec (default the versioned JSON codec).
	Codec entry.Codec

	// Logger overrides the controller's logger.
	Logger *zerolog.Logger

	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// Controller is the cache decision engine. It is safe for concurrent
// use; per-key write exclusion is the store's responsibility.
type Controller struct {
	store             store.Store
	codec             entry.Codec
	shared            bool
	heuristic         bool
	heuristicFraction float64
	cacheableStatus   map[int]bool
	cacheableMethod   map[string]bool
	logger            zerolog.Logger
	now               func() time.Time
}

// New creates a Controller over the given store.
func New(s store.Store, opts Options) *Controller {
	if s == nil {
		panic("store cannot be nil")
	}

	c := &Controller{
		store:             s,
		codec:             opts.Codec,
		shared:            opts.Shared,
		heuristic:         opts.HeuristicFreshness,
		heuristicFraction: opts.HeuristicFraction,
		cacheableStatus:   make(map[int]bool),
		cacheableMethod:   make(map[string]bool),
		now:               opts.Clock,
	}
	if c.codec == nil {
		c.codec = entry.JSONCodec{}
	}
	if c.heuristicFraction <= 0 {
		c.heuristicFraction = DefaultHeuristicFraction
	}
	if c.now == nil {
		c.now = time.Now
	}

	statuses := opts.CacheableStatuses
	if len(statuses) == 0 {
		statuses = defaultCacheableStatuses
	}
	for _, status := range statuses {
		c.cacheableStatus[status] = true
	}

	methods := opts.CacheableMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodHead}
	}
	for _, method := range methods {
		c.cacheableMethod[method] = true
	}

	if opts.Logger != nil {
		c.logger = *opts.Logger
	} else {
		c.logger = log.With().Str("component", "httpcache").Logger()
	}

	return c
}

// OnRequest evaluates an outbound request against the store and returns
// the decision for the transport to act on. The only path that fails is
// only-if-cached with no usable entry; everything else degrades to a
// fetch.
func (c *Controller) OnRequest(req *http.Request) Decision {
	if !c.cacheableMethod[req.Method] {
		return Decision{Type: DecisionBypass}
	}

	ctx := req.Context()
	key := cachekey.Build(req.Method, req.URL.String())
	reqDirectives := header.ParseCacheControl(req.Header.Values("Cache-Control"))
	onlyIfCached := reqDirectives.Has("only-if-cached")

	e, missReason := c.lookup(ctx, key)
	if e != nil && !e.VaryMatches(req.Header) {
		// The entry answers a differently-varied request; leave it in
		// place, the next successful fetch overwrites it.
		c.logger.Debug().Str("key", key).Msg("Vary mismatch, treating as miss")
		e, missReason = nil, "vary"
	}

	if e == nil {
		cacheMisses.WithLabelValues(missReason).Inc()
		if onlyIfCached {
			return Decision{Type: DecisionFail, Err: ErrOnlyIfCached}
		}
		return Decision{Type: DecisionFetch}
	}

	now := c.now()
	freshness := c.freshness(e, now)

	forceRevalidate := false
	if reqDirectives.Has("no-cache") {
		forceRevalidate = true
	}
	if maxAge, ok := reqDirectives.Duration("max-age"); ok && freshness.Age > maxAge {
		forceRevalidate = true
	}
	if minFresh, ok := reqDirectives.Duration("min-fresh"); ok && freshness.Age+minFresh >= freshness.Lifetime {
		forceRevalidate = true
	}

	respDirectives := header.ParseCacheControl(e.ResponseHeaders.Values("Cache-Control"))
	if respDirectives.Has("no-cache") || respDirectives.Has("must-revalidate") {
		forceRevalidate = true
	}

	if freshness.Fresh && !forceRevalidate {
		resp := e.Response()
		resp.Header.Set("Age", strconv.FormatInt(int64(freshness.Age/time.Second), 10))
		cacheHits.Inc()
		c.logger.Debug().
			Str("key", key).
			Dur("age", freshness.Age).
			Dur("lifetime", freshness.Lifetime).
			Msg("Serving fresh response from cache")
		return Decision{Type: DecisionServe, Response: resp, Freshness: &freshness}
	}

	if onlyIfCached {
		return Decision{Type: DecisionFail, Err: ErrOnlyIfCached}
	}

	if e.HasValidator() {
		conditional := make(http.Header)
		if etag := e.ETag(); etag != "" {
			conditional.Set("If-None-Match", etag)
		}
		if lastModified := e.LastModified(); lastModified != "" {
			conditional.Set("If-Modified-Since", lastModified)
		}
		revalidations.Inc()
		c.logger.Debug().
			Str("key", key).
			Str("etag", e.ETag()).
			Msg("Stale entry with validators, revalidating")
		return Decision{Type: DecisionRevalidate, ConditionalHeaders: conditional, Freshness: &freshness}
	}

	// Stale without validators: a full re-fetch.
	return Decision{Type: DecisionFetch}
}

// OnResponse evaluates an upstream response (fresh fetch or
// revalidation result) and updates the store accordingly.
func (c *Controller) OnResponse(req *http.Request, resp *http.Response) Action {
	ctx := req.Context()

	if unsafeMethods[req.Method] {
		if resp.StatusCode >= 200 && resp.StatusCode < 400 {
			// The resource state likely changed; the stored GET entry
			// for the same URL must not survive.
			getKey := cachekey.Build(http.MethodGet, req.URL.String())
			c.delete(ctx, getKey)
			invalidations.Inc()
			c.logger.Debug().Str("key", getKey).Str("method", req.Method).Msg("Invalidated entry after unsafe method")
			return Action{Type: ActionInvalidated}
		}
		return Action{Type: ActionNotStored, Reason: "unsafe method did not succeed"}
	}

	if !c.cacheableMethod[req.Method] {
		return Action{Type: ActionNotStored, Reason: "method not cacheable"}
	}

	key := cachekey.Build(req.Method, req.URL.String())

	if resp.StatusCode == http.StatusNotModified {
		return c.mergeNotModified(ctx, key, req, resp)
	}

	reqDirectives := header.ParseCacheControl(req.Header.Values("Cache-Control"))
	respDirectives := header.ParseCacheControl(resp.Header.Values("Cache-Control"))

	if reason := c.storeVeto(reqDirectives, respDirectives, resp.StatusCode); reason != "" {
		// The server told us this content is not to be cached; any
		// stale copy must not survive either.
		c.delete(ctx, key)
		storeVetoes.WithLabelValues(reason).Inc()
		c.logger.Debug().Str("key", key).Str("reason", reason).Msg("Response not stored")
		return Action{Type: ActionNotStored, Reason: reason}
	}

	e, err := entry.New(req, resp, c.now())
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to build cache entry")
		return Action{Type: ActionNotStored, Reason: "failed to read response"}
	}

	c.persist(ctx, key, e)
	entriesStored.Inc()
	return Action{Type: ActionStored}
}

// storeVeto returns a non-empty reason when the response must not be
// stored. no-store anywhere always vetoes; private vetoes only in a
// shared cache.
func (c *Controller) storeVeto(reqDirectives, respDirectives header.Directives, status int) string {
	if reqDirectives.Has("no-store") {
		return "request no-store"
	}
	if respDirectives.Has("no-store") {
		return "response no-store"
	}
	if !c.cacheableStatus[status] {
		return "status not cacheable"
	}
	if c.shared && respDirectives.Has("private") {
		return "private response in shared cache"
	}
	return ""
}

// notUpdatedHeaders are never overwritten by a 304: hop-by-hop fields
// and the framing of the stored body, which the 304 does not carry.
var notUpdatedHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Content-Length":      true,
	"Content-Range":       true,
}

// mergeNotModified freshens the stored entry from a 304 response,
// keeping the stored body and adopting the 304's headers.
func (c *Controller) mergeNotModified(ctx context.Context, key string, req *http.Request, resp *http.Response) Action {
	e, _ := c.lookup(ctx, key)
	if e == nil {
		// A 304 with nothing to freshen is a protocol violation from
		// the server; there is no body to construct a response from.
		c.logger.Warn().Str("key", key).Msg("304 received with no stored entry, discarding")
		return Action{Type: ActionDiscarded, Reason: "304 without stored entry"}
	}

	// The stored Age was relative to the previous fetch and is
	// meaningless after revalidation unless the 304 carries its own.
	e.ResponseHeaders.Del("Age")

	for name, values := range resp.Header {
		if notUpdatedHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		e.ResponseHeaders[http.CanonicalHeaderKey(name)] = values
	}
	e.FetchedAt = c.now()

	if vary := resp.Header.Values("Vary"); len(vary) > 0 {
		e.VaryNames = header.ParseVary(vary)
		e.RequestHeaders = entry.Snapshot(e.VaryNames, req.Header)
	}

	c.persist(ctx, key, e)
	notModifiedMerges.Inc()
	c.logger.Debug().Str("key", key).Msg("Merged 304 into stored entry")
	return Action{Type: ActionUpdated, Response: e.Response()}
}

// lookup reads and decodes the entry under key. Store faults and decode
// failures degrade to a miss; the second return value names the miss
// cause for observability.
func (c *Controller) lookup(ctx context.Context, key string) (*entry.Entry, string) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			storeErrors.WithLabelValues("get").Inc()
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache get error, treating as miss")
		}
		return nil, "absent"
	}

	e, err := c.codec.Decode(data)
	if err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("Stored entry not decodable, treating as miss")
		return nil, "decode"
	}
	return e, ""
}

// persist encodes and stores an entry. Failures are logged and counted
// but never surfaced; a failed cache write must not break the request.
func (c *Controller) persist(ctx context.Context, key string, e *entry.Entry) {
	data, err := c.codec.Encode(e)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to encode cache entry")
		return
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		storeErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to write cache entry")
	}
}

// delete removes an entry, swallowing failures.
func (c *Controller) delete(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		storeErrors.WithLabelValues("delete").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete cache entry")
	}
}
