// Package relational implements the relational writer of spec.md §4.5
// (C5): a gorm-backed sink with a pluggable dialector, grounded on
// termfx-morfx's db/postgres.go and db/sqlite.go Connect pattern
// (gorm.Open(dialector, config), AutoMigrate-style lifecycle) — adapted
// from a fixed set of Go-struct models to a dynamically typed table
// built from a value.Schema, since the CORE has no compile-time model
// for an arbitrary XML document's shape.
package relational

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/xmletl/core/sanitize"
	"github.com/xmletl/core/sink"
	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlerr"
	"github.com/xmletl/core/xmlrecord"
)

// maxIdentifierLen is postgres/mysql's column-name length ceiling; sqlite
// has no such limit but sharing one value keeps column names identical
// across dialects.
const maxIdentifierLen = 63

const component = "sink/relational"

// Dialect selects the SQL driver gorm connects through.
type Dialect int

const (
	Postgres Dialect = iota
	MySQL
	SQLite
)

// Connect opens a *gorm.DB for dialect using dsn, mirroring the
// teacher's db.Connect(dsn, debug) shape but without the teacher's
// migration of fixed models — New builds its table DDL dynamically from
// a value.Schema instead, via buildCreateTable.
func Connect(dialect Dialect, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dialect {
	case Postgres:
		dialector = postgres.Open(dsn)
	case MySQL:
		dialector = mysql.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// Config configures a Writer, on top of the shared sink.Config options.
// The dialect itself is fixed earlier, by the *gorm.DB passed to New —
// Connect's Dialect argument, not this Config, selects it.
type Config struct {
	sink.Config
	Table string
}

// Writer implements sink.Sink against a relational table.
type Writer struct {
	schema  *value.Schema
	cfg     Config
	db      *gorm.DB
	columns map[string]string

	batcher *sink.Batcher
	report  sink.Report
	closed  bool
}

// columnNames assigns every top-level field a sanitized, de-duplicated,
// length-bounded column name via a single sanitize.Deduper pass, per
// spec.md §4.4/§4.5 — computed once at construction so buildCreateTable
// and every toRow call agree on the same name.
func columnNames(schema *value.Schema) map[string]string {
	d := sanitize.NewDeduper(sanitize.Rules{MaxLen: maxIdentifierLen, Lower: true})
	names := make(map[string]string, schema.Fields.Len())
	schema.Fields.Each(func(f value.Field) {
		names[f.Name] = d.Assign(f.Name)
	})
	return names
}

// New applies the table-lifecycle rules of spec.md §4.5 (existence
// check, truncate-on-Overwrite, fail-on-FailIfExists, create-if-absent)
// and returns a ready-to-use Writer.
func New(schema *value.Schema, cfg Config, db *gorm.DB) (*Writer, error) {
	if cfg.Table == "" {
		cfg.Table = schema.RootElementName
	}
	columns := columnNames(schema)
	exists := db.Migrator().HasTable(cfg.Table)

	switch {
	case exists && cfg.Mode == sink.FailIfExists:
		return nil, xmlerr.Conflict(component, nil, "table %s already exists", cfg.Table)
	case exists && cfg.Mode == sink.Overwrite:
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", cfg.Table)).Error; err != nil {
			return nil, xmlerr.Sink(component, err, "truncating table %s", cfg.Table)
		}
	case !exists:
		ddl := buildCreateTable(cfg.Table, schema, cfg.Layout, columns)
		if err := db.Exec(ddl).Error; err != nil {
			return nil, xmlerr.Sink(component, err, "creating table %s", cfg.Table)
		}
	}

	w := &Writer{schema: schema, cfg: cfg, db: db, columns: columns}
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

func (w *Writer) flushBatch(batch []xmlrecord.Record) error {
	rows := make([]map[string]any, 0, len(batch))
	for _, rec := range batch {
		rows = append(rows, w.toRow(rec))
	}
	if err := w.db.Table(w.cfg.Table).CreateInBatches(rows, w.cfg.BatchSizeOrDefault()).Error; err != nil {
		return xmlerr.Sink(component, err, "batch insert into %s (first row: %v)", w.cfg.Table, firstRow(rows))
	}
	w.report.RowsWritten += int64(len(rows))
	w.report.BatchesFlushed++
	return nil
}

func firstRow(rows []map[string]any) string {
	if len(rows) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", rows[0])
}

// toRow coerces tree into the row shape matching cfg.Layout: one column
// per top-level field (Columnar), nested/array fields serialized as
// JSON columns; or a single JSON "data" column (Flattened).
func (w *Writer) toRow(rec xmlrecord.Record) map[string]any {
	if w.cfg.Layout == sink.Flattened {
		entries := sink.Flatten(rec.Tree)
		doc := make(map[string]any, len(entries))
		for _, e := range entries {
			v := e.Value
			if v.Kind == value.NodeList && len(v.List) == 1 {
				v = v.List[0]
			}
			text, _ := v.TextContent()
			doc[e.Name] = text
		}
		return map[string]any{"data": datatypesJSON(doc)}
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
	switch {
	case f.IsRepeatedColumn():
		elem := f.Type
		if f.Type.Kind == value.ArrayKind && f.Type.Elem != nil {
			elem = *f.Type.Elem
		}
		result, err = sink.CoerceArray(v, elem)
		if result == nil {
			result = []any{}
		}
	case f.Type.Kind == value.StructKind:
		if len(v.List) == 1 {
			result, err = sink.CoerceAny(v.List[0], f.Type)
		} else {
			result, err = sink.CoerceAny(v, f.Type)
		}
	case len(v.List) == 1:
		result, err = sink.CoerceAny(v.List[0], f.Type)
	default:
		result, err = sink.CoerceAny(v, f.Type)
	}
	if err != nil {
		w.report.CoercionErrors++
		sink.WarnCoercionFailure(w.cfg.Config, component, f.Name, err)
		return nil
	}
	if f.IsRepeatedColumn() || f.Type.Kind == value.StructKind {
		return datatypesJSON(result)
	}
	return sqlSafe(result)
}

// sqlSafe converts CoerceAny's output into a value database/sql drivers
// accept directly.
func sqlSafe(v any) any {
	if d, ok := v.(value.Decimal); ok {
		return d.String()
	}
	return v
}

// buildCreateTable renders a CREATE TABLE statement for schema's fields,
// per spec.md §4.5's table-lifecycle rule #4, using the sanitized,
// length-bounded column names already assigned by columnNames.
func buildCreateTable(table string, schema *value.Schema, layout sink.Layout, columns map[string]string) string {
	var cols []string
	if layout == sink.Flattened {
		cols = []string{
			"id INTEGER PRIMARY KEY AUTOINCREMENT",
			"inserted_at TIMESTAMP",
			"data JSON",
		}
	} else {
		cols = []string{"id INTEGER PRIMARY KEY AUTOINCREMENT", "inserted_at TIMESTAMP"}
		schema.Fields.Each(func(f value.Field) {
			cols = append(cols, fmt.Sprintf("%s %s", columns[f.Name], sqlType(f)))
		})
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(cols, ",\n\t"))
}

func sqlType(f value.Field) string {
	if f.IsRepeatedColumn() || f.Type.Kind == value.StructKind {
		return "JSON"
	}
	switch f.Type.Kind {
	case value.Str:
		return "TEXT"
	case value.I32:
		return "INTEGER"
	case value.I64:
		return "BIGINT"
	case value.F64:
		return "DOUBLE PRECISION"
	case value.Bool:
		return "BOOLEAN"
	case value.Date:
		return "DATE"
	case value.Time:
		return "TIME"
	case value.Timestamp:
		return "TIMESTAMP"
	case value.DecimalKind:
		return fmt.Sprintf("NUMERIC(%d,%d)", f.Type.Precision, f.Type.Scale)
	default:
		return "TEXT"
	}
}

// datatypesJSON marshals v to a JSON string for storage under a JSON or
// TEXT column, per spec.md §4.5's "serialize the struct to JSON text and
// store under a JSON-capable column type" for nested/array fields and
// the flattened mode's "data" column.
func datatypesJSON(v any) any {
	j, err := json.Marshal(jsonSafe(v))
	if err != nil {
		return nil
	}
	return string(j)
}

// jsonSafe converts value.Decimal leaves (big.Int backed) into their
// string form, since encoding/json cannot marshal math/big types
// directly — mirrors sink/jsonfile's jsonSafe helper.
func jsonSafe(v any) any {
	switch tv := v.(type) {
	case value.Decimal:
		return tv.String()
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = jsonSafe(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = jsonSafe(e)
		}
		return out
	default:
		return v
	}
}
