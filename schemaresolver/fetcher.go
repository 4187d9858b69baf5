// Package schemaresolver implements the external schema-description
// resolver of spec.md §4.2 (C2): given a schema-location URL, fetch and
// parse an XSD-subset document into a value.Schema, cached for the
// lifetime of the process.
//
// The traversal shape (recursive descent over element/complexType
// containers, driven by a fixed type-name table) is grounded on
// droyo-go-xml's xsd.Parse/Normalize, scaled down since full XSD
// type-derivation is out of scope here — only the element/type
// declarations needed to build a value.Schema are extracted.
package schemaresolver

import (
	"context"
	"io"
	"net/http"
	"time"
)

// SchemaFetcher is the capability interface through which the resolver
// retrieves a schema document's bytes. Narrowing network access behind
// an interface keeps Resolve's tests free of any real HTTP round trip,
// the same capability-isolation idiom the teacher's opener.Opener gives
// file access.
type SchemaFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is the production SchemaFetcher: a plain GET with a
// configurable timeout, per spec.md §4.2.
type HTTPFetcher struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPFetcher constructs an HTTPFetcher with the given timeout. A
// zero timeout means no deadline beyond ctx's own.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}, Timeout: timeout}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

type httpStatusError struct {
	URL        string
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return "schemaresolver: fetch " + e.URL + ": unexpected status " + http.StatusText(e.StatusCode)
}
