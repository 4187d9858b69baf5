// Package opener provides the capability-style abstraction the CORE uses
// to reach outside of itself for input bytes. It is adapted from the
// teacher repo's openers/opener.go and opener/registry.go: the same
// Opener contract, collapsed into a single package and trimmed down to
// the single-document, local-filesystem input surface spec.md describes
// (no CSV-style multi-file glob, no S3 scheme).
package opener

import (
	"context"
	"io"
)

// Opener is a capability for producing a readable byte stream from some
// named data source. It is deliberately minimal so that tests can
// substitute in-memory fakes without touching the filesystem or network,
// per spec.md §9's "external IO abstraction" design note.
type Opener interface {
	// Open returns a readable stream for the source. Callers are
	// responsible for closing the returned ReadCloser.
	Open(ctx context.Context) (io.ReadCloser, error)

	// Name returns the stable identity of the source, used in error
	// messages and as SrcMeta.Name by the windowed stream.
	Name() string
}
