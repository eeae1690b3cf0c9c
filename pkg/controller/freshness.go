package controller

import (
	"time"

	"github.com/frostming/cacheyou/pkg/entry"
	"github.com/frostming/cacheyou/pkg/header"
)

// Freshness is the result of evaluating a stored entry against the
// clock. It is derived on every read and never persisted.
type Freshness struct {
	// Fresh reports whether the entry may be served without
	// revalidation. Stale at exactly Age == Lifetime.
	Fresh bool

	// Lifetime is the freshness lifetime derived from the response's
	// caching metadata. Zero means revalidate on every use.
	Lifetime time.Duration

	// Age is the entry's current age.
	Age time.Duration
}

// freshness evaluates the entry at the given instant.
func (c *Controller) freshness(e *entry.Entry, now time.Time) Freshness {
	age := currentAge(e, now)
	lifetime := c.lifetime(e)
	return Freshness{
		Fresh:    age < lifetime,
		Lifetime: lifetime,
		Age:      age,
	}
}

// currentAge implements the RFC 9111 §4.2.3 age calculation. The entry's
// FetchedAt stands in for both request and response time, so the
// response delay term collapses to zero.
func currentAge(e *entry.Entry, now time.Time) time.Duration {
	dateValue, ok := header.ParseHTTPDate(e.ResponseHeaders.Get("Date"))
	if !ok {
		dateValue = e.FetchedAt
	}

	apparentAge := e.FetchedAt.Sub(dateValue)
	if apparentAge < 0 {
		apparentAge = 0
	}

	correctedAge, _ := header.ParseAge(e.ResponseHeaders.Get("Age"))

	initialAge := apparentAge
	if correctedAge > initialAge {
		initialAge = correctedAge
	}

	residentTime := now.Sub(e.FetchedAt)
	if residentTime < 0 {
		residentTime = 0
	}

	return initialAge + residentTime
}

// lifetime implements the RFC 9111 §4.2.1 freshness lifetime rules:
// s-maxage (shared caches only), then max-age, then Expires minus Date,
// then the optional Last-Modified heuristic, else zero.
func (c *Controller) lifetime(e *entry.Entry) time.Duration {
	cc := header.ParseCacheControl(e.ResponseHeaders.Values("Cache-Control"))

	if c.shared {
		if d, ok := cc.Duration("s-maxage"); ok {
			return d
		}
	}
	if d, ok := cc.Duration("max-age"); ok {
		return d
	}
	if expires, ok := header.ParseHTTPDate(e.ResponseHeaders.Get("Expires")); ok {
		if date, ok := header.ParseHTTPDate(e.ResponseHeaders.Get("Date")); ok {
			lifetime := expires.Sub(date)
			if lifetime < 0 {
				return 0
			}
			return lifetime
		}
	}
	if c.heuristic {
		if lastModified, ok := header.ParseHTTPDate(e.ResponseHeaders.Get("Last-Modified")); ok {
			date, ok := header.ParseHTTPDate(e.ResponseHeaders.Get("Date"))
			if !ok {
				date = e.FetchedAt
			}
			lifetime := time.Duration(c.heuristicFraction * float64(date.Sub(lastModified)))
			if lifetime < 0 {
				return 0
			}
			return lifetime
		}
	}
	return 0
}
