package opener

import (
	"bytes"
	"context"
	"io"
)

// InMemorySource implements Opener using an in-memory byte slice.
//
// It exists for tests: constructing temporary files for every fixture in
// xmlrecord, schemaresolver and inference would be unnecessary and slow.
// InMemorySource lets tests:
//
//   - feed small XML fixtures directly into the record extractor
//   - exercise the byte-window hint deterministically
//   - substitute a fake for schemaresolver's capability interfaces
//
// Production code uses File instead.
type InMemorySource struct {
	// Data contains the bytes to be returned by Open.
	Data []byte
	// SourceName identifies the synthetic source.
	SourceName string
}

// Open returns an io.ReadCloser that streams the in-memory data. The
// returned reader is independent of Data and may be safely closed by the
// caller. Returns a nil ReadCloser and ctx.Err() if ctx is already done;
// otherwise a non-nil ReadCloser and a nil error.
func (s InMemorySource) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// Name returns the source identifier associated with this in-memory stream.
func (s InMemorySource) Name() string {
	return s.SourceName
}
