package sink

import "github.com/xmletl/core/xmlrecord"

// Batcher buffers up to Size records, grounded on the teacher-adjacent
// batch-with-flush-timer shape mdzesseis' Elasticsearch sink uses for
// its bulk inserts — simplified here to a pure size-triggered flush
// since the CORE has no background timer goroutine (spec.md §5: no
// concurrency beyond the pull-source/push-sink fold).
type Batcher struct {
	size    int
	pending []xmlrecord.Record
	flush   func([]xmlrecord.Record) error

	batchesFlushed int
}

// NewBatcher constructs a Batcher that calls flush once pending reaches
// size records, or on a final Flush call with a partial tail.
func NewBatcher(size int, flush func([]xmlrecord.Record) error) *Batcher {
	if size <= 0 {
		size = 500
	}
	return &Batcher{size: size, flush: flush}
}

// Add buffers rec, flushing automatically once the buffer reaches
// capacity.
func (b *Batcher) Add(rec xmlrecord.Record) error {
	b.pending = append(b.pending, rec)
	if len(b.pending) >= b.size {
		return b.Flush()
	}
	return nil
}

// Flush writes any buffered records and resets the buffer, per spec.md
// §4.5's "flushing the partial tail at end-of-stream".
func (b *Batcher) Flush() error {
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = nil
	if err := b.flush(batch); err != nil {
		return err
	}
	b.batchesFlushed++
	return nil
}

// BatchesFlushed reports how many batches have been flushed so far.
func (b *Batcher) BatchesFlushed() int { return b.batchesFlushed }
