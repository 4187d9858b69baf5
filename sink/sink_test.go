package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlrecord"
)

type fakeIterator struct {
	records []xmlrecord.Record
	i       int
	err     error
}

func (it *fakeIterator) Next() bool {
	if it.i >= len(it.records) {
		return false
	}
	it.i++
	return true
}
func (it *fakeIterator) Record() xmlrecord.Record { return it.records[it.i-1] }
func (it *fakeIterator) Err() error               { return it.err }
func (it *fakeIterator) Close() error             { return nil }

type fakeSink struct {
	writes   int
	closed   bool
	writeErr error
}

func (s *fakeSink) WriteRecord(ctx context.Context, rec xmlrecord.Record) error {
	s.writes++
	return s.writeErr
}
func (s *fakeSink) Close(ctx context.Context) (Report, error) {
	s.closed = true
	return Report{RowsWritten: int64(s.writes)}, nil
}

func TestRunDrainsIteratorAndCloses(t *testing.T) {
	it := &fakeIterator{records: []xmlrecord.Record{{Name: "a"}, {Name: "b"}}}
	s := &fakeSink{}
	report, err := Run(context.Background(), it, s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RowsWritten != 2 {
		t.Fatalf("RowsWritten = %d, want 2", report.RowsWritten)
	}
	if !s.closed {
		t.Fatalf("expected sink to be closed")
	}
}

func TestRunStopsOnIteratorError(t *testing.T) {
	it := &fakeIterator{records: []xmlrecord.Record{{Name: "a"}}, err: errors.New("boom")}
	s := &fakeSink{}
	if _, err := Run(context.Background(), it, s); err == nil {
		t.Fatalf("expected the iterator's error to propagate")
	}
	if !s.closed {
		t.Fatalf("expected sink to be closed even on iterator error")
	}
}

func TestRunStopsOnWriteError(t *testing.T) {
	it := &fakeIterator{records: []xmlrecord.Record{{Name: "a"}, {Name: "b"}}}
	s := &fakeSink{writeErr: errors.New("write failed")}
	if _, err := Run(context.Background(), it, s); err == nil {
		t.Fatalf("expected the write error to propagate")
	}
	if s.writes != 1 {
		t.Fatalf("writes = %d, want 1 (abort after first failure)", s.writes)
	}
}

func TestFlattenPreservesKeyOrder(t *testing.T) {
	tree := value.NewRecord()
	tree.Set("@id", value.Text("7"))
	tree.AppendChild("title", value.Text("A"))
	entries := Flatten(tree)
	if len(entries) != 2 || entries[0].Name != "@id" || entries[1].Name != "title" {
		t.Fatalf("Flatten order = %+v", entries)
	}
}

func TestBatchSizeOrDefault(t *testing.T) {
	if got := (Config{}).BatchSizeOrDefault(); got != 500 {
		t.Fatalf("default BatchSize = %d, want 500", got)
	}
	if got := (Config{BatchSize: 10}).BatchSizeOrDefault(); got != 10 {
		t.Fatalf("BatchSize = %d, want 10", got)
	}
}

func TestLoggerOrDefaultNeverNil(t *testing.T) {
	if (Config{}).LoggerOrDefault() == nil {
		t.Fatalf("expected a non-nil default logger")
	}
}
