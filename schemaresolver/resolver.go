package schemaresolver

import (
	"context"
	"sync"

	"github.com/xmletl/core/opener"
	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlerr"
	"github.com/xmletl/core/xmlrecord"
)

const component = "schemaresolver"

// Resolver probes a document for an embedded schema-location URL, fetches
// and parses it, and caches the result for the process's lifetime, per
// spec.md §4.2.
type Resolver struct {
	fetcher SchemaFetcher

	mu    sync.Mutex
	cache map[string]*value.Schema
}

// New constructs a Resolver backed by fetcher. A nil fetcher disables
// resolution entirely: Resolve always returns (nil, false, nil), matching
// spec.md §4.2's "resolver disabled" failure mode.
func New(fetcher SchemaFetcher) *Resolver {
	return &Resolver{fetcher: fetcher, cache: make(map[string]*value.Schema)}
}

// Resolve probes op's root element for a schema-location URL, and if one
// is present, returns the cached or freshly fetched-and-parsed schema
// whose RootElementName matches op's root element, or the document's
// first top-level declaration when none matches.
//
// Per spec.md §4.2's failure semantics, Resolve never returns a non-nil
// error for an unavailable external schema: a missing URL, a disabled
// resolver, a download failure, or a parse failure all yield (nil, false,
// nil). Only a context cancellation reaching the underlying fetch can
// surface a non-nil error, since that is the one failure the caller (C3)
// cannot distinguish from "try again" without being told.
func (r *Resolver) Resolve(ctx context.Context, op opener.Opener) (*value.Schema, bool, error) {
	if r == nil || r.fetcher == nil {
		return nil, false, nil
	}

	rootName, ok, err := xmlrecord.RootName(ctx, op)
	if err != nil || !ok {
		return nil, false, nil
	}
	url, ok, err := xmlrecord.SchemaLocation(ctx, op)
	if err != nil || !ok {
		return nil, false, nil
	}

	schema, err := r.resolveURL(ctx, url, rootName)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, xmlerr.Resolution(component, err, "resolving schema for %s", rootName)
		}
		return nil, false, nil
	}
	if schema == nil {
		return nil, false, nil
	}
	return schema, true, nil
}

// resolveURL implements the insert-if-absent, never-evicted cache of
// spec.md §4.2/§9: a cache hit returns without touching the network; a
// miss fetches, parses, stores, and returns. Concurrent misses for the
// same URL may both fetch — the stored value is whichever writer runs
// last, which is safe because both parses of the same document produce
// value-equivalent schemas (spec.md §9: "races are resolved by last
// writer wins, acceptable since values are equivalent by construction").
func (r *Resolver) resolveURL(ctx context.Context, url, rootName string) (*value.Schema, error) {
	r.mu.Lock()
	if s, ok := r.cache[url]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	data, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	schemas, err := parseXSDSubset(data)
	if err != nil {
		return nil, err
	}

	var matched *value.Schema
	for _, s := range schemas {
		if s.RootElementName == rootName {
			matched = s
			break
		}
	}
	if matched == nil && len(schemas) > 0 {
		matched = schemas[0]
	}

	r.mu.Lock()
	r.cache[url] = matched
	r.mu.Unlock()

	return matched, nil
}

func matchRoot(s *value.Schema, rootName string) *value.Schema {
	if s == nil || s.RootElementName != rootName {
		return nil
	}
	return s
}
