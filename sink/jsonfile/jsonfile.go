// Package jsonfile implements the text-file serializers of spec.md
// §4.5: a streaming, one-object-per-document writer and a
// line-delimited (one-object-per-line) writer. Both flush per record
// and reject unknown value kinds by stringifying, per spec.md's
// sink-specific notes.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/xmletl/core/sink"
	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlerr"
	"github.com/xmletl/core/xmlrecord"
)

const component = "sink/jsonfile"

// Framing selects the text-file serializer's shape.
type Framing int

const (
	// Array writes a single JSON array of objects, one per record.
	Array Framing = iota
	// LineDelimited writes one JSON object per line (JSONL/NDJSON).
	LineDelimited
)

// Writer implements sink.Sink by serializing each record's value tree to
// JSON, per spec.md §4.5 and §4.1's flattened/columnar distinction: in
// Columnar layout each record becomes one key per top-level schema
// field, its value coerced against that field's type; in Flattened layout
// each record becomes {"fields": [{"name":..., "value":...}, ...]}.
type Writer struct {
	schema  *value.Schema
	cfg     sink.Config
	framing Framing

	f          *os.File
	wroteFirst bool
	closed     bool
	report     sink.Report
}

// New constructs a Writer targeting path, applying the table-lifecycle
// rules of spec.md §4.5 (existence check, truncate-on-Overwrite,
// fail-on-FailIfExists) to a plain file instead of a database table.
func New(schema *value.Schema, cfg sink.Config, framing Framing, path string) (*Writer, error) {
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

	w := &Writer{schema: schema, cfg: cfg, framing: framing, f: f}
	if framing == Array {
		if _, err := io.WriteString(f, "[\n"); err != nil {
			return nil, xmlerr.Sink(component, err, "writing array header to %s", path)
		}
	}
	return w, nil
}

func (w *Writer) WriteRecord(ctx context.Context, rec xmlrecord.Record) error {
	obj := w.toJSONObject(rec)

	encoded, err := json.Marshal(obj)
	if err != nil {
		return xmlerr.Sink(component, err, "marshaling record %s", rec.Name)
	}

	switch w.framing {
	case LineDelimited:
		if _, err := w.f.Write(append(encoded, '\n')); err != nil {
			return xmlerr.Sink(component, err, "writing record %s", rec.Name)
		}
	default:
		prefix := ""
		if w.wroteFirst {
			prefix = ",\n"
		}
		if _, err := io.WriteString(w.f, prefix); err != nil {
			return xmlerr.Sink(component, err, "writing record separator")
		}
		if _, err := w.f.Write(encoded); err != nil {
			return xmlerr.Sink(component, err, "writing record %s", rec.Name)
		}
	}
	w.wroteFirst = true
	w.report.RowsWritten++
	return nil
}

func (w *Writer) Close(ctx context.Context) (sink.Report, error) {
	if w.closed {
		return w.report, nil
	}
	w.closed = true
	if w.framing == Array {
		if _, err := io.WriteString(w.f, "\n]\n"); err != nil {
			w.f.Close()
			return w.report, xmlerr.Sink(component, err, "writing array footer")
		}
	}
	if err := w.f.Close(); err != nil {
		return w.report, xmlerr.Sink(component, err, "closing file")
	}
	return w.report, nil
}

// toJSONObject converts rec into a plain Go value ready for
// encoding/json, coercing against w.schema when available and falling
// back to stringification for anything the schema doesn't describe —
// spec.md §4.5's "reject unknown value kinds by stringifying".
func (w *Writer) toJSONObject(rec xmlrecord.Record) any {
	if w.cfg.Layout == sink.Flattened {
		entries := sink.Flatten(rec.Tree)
		out := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			out = append(out, map[string]any{
				"name":  e.Name,
				"value": w.coerceOrStringify(e.Name, e.Value),
			})
		}
		return map[string]any{"fields": out}
	}

	out := make(map[string]any, w.schema.Fields.Len())
	w.schema.Fields.Each(func(f value.Field) {
		v, ok := sink.RecordFieldValue(f, rec)
		if !ok {
			out[f.Name] = nil
			return
		}
		out[f.Name] = w.coerceOrStringify(f.Name, v)
	})
	return out
}

func (w *Writer) coerceOrStringify(name string, v value.Node) any {
	f, ok := w.schema.Fields.Get(name)
	if !ok {
		return stringifyFallback(v)
	}
	var result any
	var err error
	if f.IsRepeatedColumn() {
		result, err = coerceList(v, f.Type)
	} else if len(v.List) == 1 {
		result, err = sink.CoerceAny(v.List[0], f.Type)
	} else {
		result, err = sink.CoerceAny(v, f.Type)
	}
	if err != nil {
		w.report.CoercionErrors++
		sink.WarnCoercionFailure(w.cfg, component, name, err)
		return stringifyFallback(v)
	}
	return jsonSafe(result)
}

func coerceList(v value.Node, elemType value.Type) (any, error) {
	arr, errs := sink.CoerceArray(v, elemType)
	if len(errs) > 0 {
		return arr, errs[0]
	}
	return arr, nil
}

func stringifyFallback(v value.Node) string {
	if s, ok := v.TextContent(); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// jsonSafe converts types CoerceAny can return that encoding/json cannot
// marshal directly (value.Decimal) into JSON-safe representations.
func jsonSafe(v any) any {
	switch t := v.(type) {
	case value.Decimal:
		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonSafe(e)
		}
		return out
	default:
		return v
	}
}
