// Package warehouse implements the HTTP batch-insert writer of spec.md
// §4.5 (C5): records are buffered and POSTed as snappy-compressed JSON
// batches, a shape grounded on mdzesseis-log_capturer_go's
// ElasticsearchSink batch/flush-timer design and its
// pkg/compression.HTTPCompressor's snappy codec — simplified to the
// CORE's synchronous pull/push fold (no background flush timer, no
// retry/backoff, no connection-pool metrics).
package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang/snappy"

	"github.com/xmletl/core/sink"
	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlerr"
	"github.com/xmletl/core/xmlrecord"
)

const component = "sink/warehouse"

// Config configures a Writer's HTTP endpoint, on top of the shared
// sink.Config options.
type Config struct {
	sink.Config
	Endpoint string
	Table    string
	Client   *http.Client
}

// Writer implements sink.Sink by batching records and POSTing them as
// snappy-compressed JSON to cfg.Endpoint, per spec.md §4.5: "treats
// every leaf scalar as its widest native type (I32→I64, Decimal→F64 is
// an explicit documented simplification)."
type Writer struct {
	schema *value.Schema
	cfg    Config

	client  *http.Client
	batcher *sink.Batcher
	report  sink.Report
	closed  bool
}

// New constructs a Writer. The table-lifecycle check (exists/truncate/
// fail-if-exists) is delegated to the warehouse endpoint itself via the
// "mode" field of each batch's JSON body — a CORE-side existence probe would require a
// second, warehouse-specific API this package does not assume.
func New(schema *value.Schema, cfg Config) (*Writer, error) {
	if cfg.Endpoint == "" {
		return nil, xmlerr.Config(component, nil, "warehouse sink requires a non-empty Endpoint")
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	w := &Writer{schema: schema, cfg: cfg, client: client}
	w.batcher = sink.NewBatcher(cfg.BatchSizeOrDefault(), w.flushBatch)
	return w, nil
}

func (w *Writer) WriteRecord(ctx context.Context, rec xmlrecord.Record) error {
	return w.batcher.Add(rec)
}

func (w *Writer) Close(ctx context.Context) (sink.Report, error) {
	if w.closed {
		return w.report, nil
	}
	w.closed = true
	if err := w.batcher.Flush(); err != nil {
		return w.report, err
	}
	return w.report, nil
}

type batchPayload struct {
	Table string           `json:"table"`
	Mode  string           `json:"mode"`
	Rows  []map[string]any `json:"rows"`
}

func (w *Writer) flushBatch(batch []xmlrecord.Record) error {
	rows := make([]map[string]any, 0, len(batch))
	for _, rec := range batch {
		rows = append(rows, w.toRow(rec))
	}

	body, err := json.Marshal(batchPayload{Table: w.cfg.Table, Mode: w.cfg.Mode.String(), Rows: rows})
	if err != nil {
		return xmlerr.Sink(component, err, "marshaling batch of %d rows", len(rows))
	}
	compressed := snappy.Encode(nil, body)

	req, err := http.NewRequest(http.MethodPost, w.cfg.Endpoint, bytes.NewReader(compressed))
	if err != nil {
		return xmlerr.Sink(component, err, "building batch-insert request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "snappy")

	resp, err := w.client.Do(req)
	if err != nil {
		return xmlerr.Sink(component, err, "posting batch of %d rows to %s", len(rows), w.cfg.Endpoint)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return xmlerr.Sink(component, nil, "batch insert to %s failed with status %d (first row: %v)", w.cfg.Endpoint, resp.StatusCode, firstRowDiagnostic(rows))
	}

	w.report.RowsWritten += int64(len(rows))
	w.report.BatchesFlushed++
	return nil
}

func firstRowDiagnostic(rows []map[string]any) string {
	if len(rows) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", rows[0])
}

// toRow widens every leaf scalar to its widest native type, per spec.md
// §4.5's warehouse simplification.
func (w *Writer) toRow(rec xmlrecord.Record) map[string]any {
	if w.cfg.Layout == sink.Flattened {
		entries := sink.Flatten(rec.Tree)
		fields := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			v := e.Value
			if v.Kind == value.NodeList && len(v.List) == 1 {
				v = v.List[0]
			}
			text, _ := v.TextContent()
			fields = append(fields, map[string]any{"name": e.Name, "value": text})
		}
		return map[string]any{"fields": fields}
	}

	row := make(map[string]any, w.schema.Fields.Len())
	w.schema.Fields.Each(func(f value.Field) {
		child, ok := sink.RecordFieldValue(f, rec)
		if !ok {
			row[f.Name] = nil
			return
		}
		row[f.Name] = w.coerceWidened(f, child)
	})
	return row
}

func (w *Writer) coerceWidened(f value.Field, v value.Node) any {
	var result any
	var err error
	if f.IsRepeatedColumn() {
		elem := f.Type
		if f.Type.Kind == value.ArrayKind && f.Type.Elem != nil {
			elem = *f.Type.Elem
		}
		result, err = sink.CoerceAny(v, value.TArray(elem))
	} else if len(v.List) == 1 {
		result, err = sink.CoerceAny(v.List[0], f.Type)
	} else {
		result, err = sink.CoerceAny(v, f.Type)
	}
	if err != nil {
		w.report.CoercionErrors++
		sink.WarnCoercionFailure(w.cfg.Config, component, f.Name, err)
		return nil
	}
	return widen(result)
}

func widen(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = widen(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = widen(e)
		}
		return out
	default:
		return sink.WidenForWarehouse(v)
	}
}
