package connector

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/xmletl/core/opener"
)

// windowedStream implements WindowedStream over a single opener.Opener.
type windowedStream struct {
	rc   io.ReadCloser
	name string

	// current holds the latest SrcMeta snapshot. Published with
	// atomic.Value so Current() never races with Read, mirroring the
	// teacher's muxReader.current field.
	current atomic.Value

	start int64 // startByteOffset, informational only; reading begins at rc's current position
	end   int64 // endByteOffset; 0 means "no window"
	have  int64 // bytes read so far
}

// NewWindowedStream opens op and wraps it with position tracking. If
// endByteOffset is > 0, ExceededWindow() becomes true once that many
// bytes have been read from op, per spec.md §4.1's "optional
// (startByteOffset, endByteOffset) window". startByteOffset is carried
// only for diagnostics: the CORE does not build a byte index, so it
// cannot itself seek to an arbitrary offset inside an XML document (see
// spec.md §9's open question on the byte-window hint) — the caller is
// expected to supply an Opener that already begins at the right place
// when a non-zero start is meaningful.
func NewWindowedStream(ctx context.Context, op opener.Opener, startByteOffset, endByteOffset int64) (WindowedStream, error) {
	rc, err := op.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", op.Name(), err)
	}
	w := &windowedStream{
		rc:    rc,
		name:  op.Name(),
		start: startByteOffset,
		end:   endByteOffset,
	}
	w.current.Store(SrcMeta{Name: w.name, ByteOffset: 0})
	return w, nil
}

func (w *windowedStream) Read(p []byte) (int, error) {
	n, err := w.rc.Read(p)
	if n > 0 {
		w.have += int64(n)
		w.current.Store(SrcMeta{Name: w.name, ByteOffset: w.have})
	}
	return n, err
}

func (w *windowedStream) Close() error {
	return w.rc.Close()
}

func (w *windowedStream) Current() SrcMeta {
	val := w.current.Load()
	if val == nil {
		return SrcMeta{Name: w.name}
	}
	return val.(SrcMeta)
}

func (w *windowedStream) ExceededWindow() bool {
	if w.end <= 0 {
		return false
	}
	return w.have >= w.end
}
