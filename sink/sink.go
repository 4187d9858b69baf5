// Package sink defines the shared contract and coercion/batching
// machinery all concrete sink writers (jsonfile, columnarfile,
// warehouse, relational) build on, per spec.md §4.5 (C5).
package sink

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlrecord"
)

// WriteMode selects how a sink behaves toward a pre-existing target, per
// spec.md §4.5.
type WriteMode int

const (
	// Append adds to an existing table/file, creating it if missing.
	Append WriteMode = iota
	// Overwrite truncates an existing target before appending.
	Overwrite
	// FailIfExists fails with a ConflictError if the target exists.
	FailIfExists
)

func (m WriteMode) String() string {
	switch m {
	case Append:
		return "append"
	case Overwrite:
		return "overwrite"
	case FailIfExists:
		return "fail_if_exists"
	default:
		return "unknown"
	}
}

// Layout selects between a sink's columnar and flattened shapes, per
// spec.md §4.5.
type Layout int

const (
	// Columnar materializes one column per top-level schema field.
	Columnar Layout = iota
	// Flattened materializes a fixed schema: a single repeated
	// {name, value} struct, robust to unbounded field counts and
	// heterogeneous record shapes. The relational sink instead stores
	// each record as one JSON document in a single "data" column.
	Flattened
)

// Config carries the options common to every concrete sink.
type Config struct {
	Mode      WriteMode
	Layout    Layout
	BatchSize int // 0 means the spec.md default of 500
	CreateOK  bool

	// Logger receives a Warn-level event for every coercion failure, on
	// top of the per-run Report.CoercionErrors count — resolving
	// spec.md §9's surfacing question in favor of "both logged and
	// counted".
	Logger *logrus.Logger
}

// BatchSizeOrDefault returns c.BatchSize, or the spec.md default of 500
// if unset.
func (c Config) BatchSizeOrDefault() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return 500
}

// LoggerOrDefault returns c.Logger, or logrus.StandardLogger() if unset.
func (c Config) LoggerOrDefault() *logrus.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}

// WarnCoercionFailure logs one coercion failure at Warn, per spec.md
// §7's "logged per-occurrence" rule. component identifies the sink
// package raising it.
func WarnCoercionFailure(c Config, component, field string, err error) {
	c.LoggerOrDefault().WithFields(logrus.Fields{
		"component": component,
		"field":     field,
	}).WithError(err).Warn("coercion failed")
}

// Sink is the contract every concrete writer implements: construct from
// (Schema, Config) via the writer's own constructor, then drive it with
// a sequence of records.
type Sink interface {
	// WriteRecord consumes one record. Implementations may buffer
	// internally (batching sinks) or write through immediately
	// (streaming file sinks).
	WriteRecord(ctx context.Context, rec xmlrecord.Record) error
	// Close flushes any buffered state and releases resources, returning
	// the run's Report.
	Close(ctx context.Context) (Report, error)
}

// Report summarizes one sink run, aggregated by the orchestrator (C6)
// into its own run-level totals.
type Report struct {
	RowsWritten    int64
	BatchesFlushed int
	CoercionErrors int
}

// Run streams every record from it into s, closing s and returning its
// Report. A WriteRecord error is fatal and aborts the run without
// closing s a second time — Close is still called, matching spec.md
// §7's "scoped resources are released on every exit path".
func Run(ctx context.Context, it xmlrecord.RecordIterator, s Sink) (Report, error) {
	for it.Next() {
		if err := s.WriteRecord(ctx, it.Record()); err != nil {
			_, _ = s.Close(ctx)
			return Report{}, err
		}
	}
	if err := it.Err(); err != nil {
		_, _ = s.Close(ctx)
		return Report{}, err
	}
	return s.Close(ctx)
}

// RecordFieldValue returns the occurrence of top-level field f carried by
// rec, per spec.md §8 scenario 1: a schema's top-level field is named
// for a record element type (C1 emits one Record per depth-2 child of
// the document root), so a given Record contributes a one-element list
// under the field matching its own element name and is absent for every
// other top-level field — letting a document with more than one
// record-element type share a single sink, one field per element type,
// each row sparse outside the field matching its own record.
func RecordFieldValue(f value.Field, rec xmlrecord.Record) (value.Node, bool) {
	if f.Name != rec.Name {
		return value.Node{}, false
	}
	return value.List([]value.Node{rec.Tree}), true
}

// FlattenedEntry is one (name, value) pair in the flattened layout's
// fixed {name, value} struct shape.
type FlattenedEntry struct {
	Name  string
	Value value.Node
}

// Flatten walks tree's top-level keys and returns one FlattenedEntry per
// key, in first-seen order — the shape every sink's flattened layout
// writes regardless of the record's actual field set, per spec.md §4.5.
func Flatten(tree value.Node) []FlattenedEntry {
	keys := tree.Keys()
	out := make([]FlattenedEntry, 0, len(keys))
	for _, k := range keys {
		v, _ := tree.Get(k)
		out = append(out, FlattenedEntry{Name: k, Value: v})
	}
	return out
}
