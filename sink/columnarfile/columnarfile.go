// Package columnarfile implements the columnar-file writer of spec.md
// §4.5 (C5): a parquet-go-backed writer with a schema built dynamically
// from a value.Schema, snappy compression by default, and the logical
// type mapping spec.md's sink-specific notes describe (timestamps as
// millisecond UTC int64, dates as day-offset int32, times as
// millisecond-of-day int64, decimals as fixed-length byte arrays).
package columnarfile

import (
	"context"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/xmletl/core/sanitize"
	"github.com/xmletl/core/sink"
	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlerr"
	"github.com/xmletl/core/xmlrecord"
)

const component = "sink/columnarfile"

const epoch = "1970-01-01"

// Writer implements sink.Sink by buffering rows as parquet.Row and
// flushing them through a parquet.GenericWriter built from a dynamic
// schema derived from the record's value.Schema.
type Writer struct {
	schema *value.Schema
	cfg    sink.Config
	// columns maps each top-level field's original name to the sanitized,
	// de-duplicated column name it is written under, computed once at
	// construction per spec.md §4.5's "columnar sinks compute the
	// sanitized column name... eagerly at construction".
	columns map[string]string

	f       *os.File
	pschema *parquet.Schema
	pw      *parquet.GenericWriter[map[string]any]
	batcher *sink.Batcher
	report  sink.Report
	closed  bool
}

// columnNames assigns every top-level field a sanitized, collision-free
// column name via a single sanitize.Deduper pass, per spec.md §4.4/§4.5.
// Parquet column names have no practical length limit, so MaxLen is left
// at zero.
func columnNames(schema *value.Schema) map[string]string {
	d := sanitize.NewDeduper(sanitize.Rules{})
	names := make(map[string]string, schema.Fields.Len())
	schema.Fields.Each(func(f value.Field) {
		names[f.Name] = d.Assign(f.Name)
	})
	return names
}

// New constructs a Writer targeting path, applying the table-lifecycle
// rules of spec.md §4.5 to the output file.
func New(schema *value.Schema, cfg sink.Config, path string) (*Writer, error) {
	_, statErr := os.Stat(path)
	exists := statErr == nil
	switch {
	case exists && cfg.Mode == sink.FailIfExists:
		return nil, xmlerr.Conflict(component, nil, "target %s already exists", path)
	case exists && cfg.Mode == sink.Overwrite:
		if err := os.Remove(path); err != nil {
			return nil, xmlerr.Sink(component, err, "truncating %s", path)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, xmlerr.Sink(component, err, "opening %s", path)
	}

	columns := columnNames(schema)
	pschema := buildSchema(schema, cfg.Layout, columns)
	pw := parquet.NewGenericWriter[map[string]any](f,
		pschema,
		parquet.Compression(&parquet.Snappy),
	)

	w := &Writer{schema: schema, cfg: cfg, columns: columns, f: f, pschema: pschema, pw: pw}
	w.batcher = sink.NewBatcher(cfg.BatchSizeOrDefault(), w.flushBatch)
	return w, nil
}

func (w *Writer) WriteRecord(ctx context.Context, rec xmlrecord.Record) error {
	return w.batcher.Add(rec)
}

func (w *Writer) flushBatch(batch []xmlrecord.Record) error {
	rows := make([]map[string]any, 0, len(batch))
	for _, rec := range batch {
		rows = append(rows, w.toRow(rec))
	}
	n, err := w.pw.Write(rows)
	if err != nil {
		return xmlerr.Sink(component, err, "writing batch of %d rows", len(rows))
	}
	w.report.RowsWritten += int64(n)
	w.report.BatchesFlushed++
	return nil
}

func (w *Writer) Close(ctx context.Context) (sink.Report, error) {
	if w.closed {
		return w.report, nil
	}
	w.closed = true
	if err := w.batcher.Flush(); err != nil {
		w.pw.Close()
		w.f.Close()
		return w.report, err
	}
	if err := w.pw.Close(); err != nil {
		w.f.Close()
		return w.report, xmlerr.Sink(component, err, "closing parquet writer")
	}
	if err := w.f.Close(); err != nil {
		return w.report, xmlerr.Sink(component, err, "closing file")
	}
	return w.report, nil
}

// buildSchema constructs the parquet.Schema for schema's fields, per
// spec.md's columnar/flattened distinction: Columnar gets one leaf per
// top-level field; Flattened gets the fixed repeated {name, value}
// struct shape (value stored as a string, since a column's type must be
// fixed across every occurrence of an unbounded field set).
func buildSchema(schema *value.Schema, layout sink.Layout, columns map[string]string) *parquet.Schema {
	if layout == sink.Flattened {
		entry := parquet.Group{
			"name":  parquet.String(),
			"value": parquet.Optional(parquet.String()),
		}
		group := parquet.Group{
			"fields": parquet.Repeated(entry),
		}
		return parquet.NewSchema(schema.RootElementName, group)
	}

	group := parquet.Group{}
	schema.Fields.Each(func(f value.Field) {
		group[columns[f.Name]] = leafNode(f)
	})
	return parquet.NewSchema(schema.RootElementName, group)
}

// leafNode maps a Field's own Type to a parquet.Node; nested struct
// fields use a fresh sanitize.Deduper per level, since column-name
// collisions are scoped to one struct's immediate children.
func leafNode(f value.Field) parquet.Node {
	var node parquet.Node
	switch f.Type.Kind {
	case value.StructKind:
		inner := parquet.Group{}
		nested := columnNamesFromFields(f.Type.Fields)
		f.Type.Fields.Each(func(cf value.Field) {
			inner[nested[cf.Name]] = leafNode(cf)
		})
		node = inner
	case value.ArrayKind:
		node = parquet.Repeated(leafNode(value.Field{Name: f.Name, Type: *f.Type.Elem}))
		return node
	default:
		node = scalarNode(f.Type)
	}
	if f.IsRepeatedColumn() {
		return parquet.Repeated(node)
	}
	if f.Nullable {
		return parquet.Optional(node)
	}
	return node
}

func columnNamesFromFields(fields *value.FieldMap) map[string]string {
	d := sanitize.NewDeduper(sanitize.Rules{})
	names := make(map[string]string, fields.Len())
	fields.Each(func(f value.Field) {
		names[f.Name] = d.Assign(f.Name)
	})
	return names
}

// scalarNode maps a leaf Type to its parquet logical type, per spec.md
// §4.5's sink-specific notes: timestamps as millisecond UTC int64, dates
// as day-offset int32, times as millisecond-of-day int64, decimals as
// fixed-length byte arrays sized to cover the precision.
func scalarNode(t value.Type) parquet.Node {
	switch t.Kind {
	case value.Str:
		return parquet.String()
	case value.I32:
		return parquet.Int(32)
	case value.I64:
		return parquet.Int(64)
	case value.F64:
		return parquet.Leaf(parquet.DoubleType)
	case value.Bool:
		return parquet.Leaf(parquet.BooleanType)
	case value.Date:
		return parquet.Date()
	case value.Time:
		return parquet.Time(parquet.Millisecond)
	case value.Timestamp:
		return parquet.Timestamp(parquet.Millisecond)
	case value.DecimalKind:
		// A raw fixed-length byte array sized to cover the precision;
		// sink.FormatDecimalBytes produces the matching two's-complement
		// encoding. The DECIMAL logical-type annotation is intentionally
		// left off scalarNode's output — a reader that does not already
		// know the (precision, scale) out of band sees only bytes.
		return parquet.Leaf(parquet.FixedLenByteArrayType(decimalByteLength(t.Precision)))
	default:
		return parquet.String()
	}
}

func decimalByteLength(precision int) int {
	// Conservative bound: 4 bits per decimal digit plus one sign byte,
	// rounded up to whole bytes: ceil((precision*4 + 8) / 8).
	bits := precision*4 + 8
	return (bits + 7) / 8
}

// flattenToString renders a flattened entry that is not itself a text
// node: a single-occurrence child yields its text, any other value "".
func flattenToString(v value.Node) string {
	if v.Kind == value.NodeList && len(v.List) == 1 {
		if text, ok := v.List[0].TextContent(); ok {
			return text
		}
	}
	return ""
}

func (w *Writer) toRow(rec xmlrecord.Record) map[string]any {
	if w.cfg.Layout == sink.Flattened {
		entries := sink.Flatten(rec.Tree)
		fields := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			text, ok := e.Value.TextContent()
			if !ok {
				text = flattenToString(e.Value)
			}
			fields = append(fields, map[string]any{"name": e.Name, "value": text})
		}
		return map[string]any{"fields": fields}
	}

	row := make(map[string]any, w.schema.Fields.Len())
	w.schema.Fields.Each(func(f value.Field) {
		col := w.columns[f.Name]
		child, ok := sink.RecordFieldValue(f, rec)
		if !ok {
			row[col] = nil
			return
		}
		row[col] = w.coerceColumn(f, child)
	})
	return row
}

func (w *Writer) coerceColumn(f value.Field, v value.Node) any {
	var result any
	var err error
	if f.IsRepeatedColumn() {
		result, err = sink.CoerceAny(v, value.TArray(elemTypeOf(f.Type)))
	} else if len(v.List) == 1 {
		result, err = sink.CoerceAny(v.List[0], f.Type)
	} else {
		result, err = sink.CoerceAny(v, f.Type)
	}
	if err != nil {
		w.report.CoercionErrors++
		sink.WarnCoercionFailure(w.cfg, component, f.Name, err)
		return nil
	}
	return parquetSafe(f.Type, result)
}

func elemTypeOf(t value.Type) value.Type {
	if t.Kind == value.ArrayKind && t.Elem != nil {
		return *t.Elem
	}
	return t
}

// parquetSafe converts a coerced Go value into the representation
// parquet-go's reflection-based row encoder expects for logical types
// this package maps leaf kinds onto.
func parquetSafe(t value.Type, v any) any {
	switch tv := v.(type) {
	case value.Decimal:
		return sink.FormatDecimalBytes(tv, decimalByteLength(t.Precision))
	case time.Time:
		switch t.Kind {
		case value.Date:
			days := int32(tv.UTC().Sub(mustParseEpoch()).Hours() / 24)
			return days
		case value.Time:
			midnight := time.Date(tv.Year(), tv.Month(), tv.Day(), 0, 0, 0, 0, tv.Location())
			return tv.Sub(midnight).Milliseconds()
		default:
			return tv.UTC().UnixMilli()
		}
	default:
		return v
	}
}

func mustParseEpoch() time.Time {
	t, _ := time.Parse("2006-01-02", epoch)
	return t
}
