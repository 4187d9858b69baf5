package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/xmletl/core/sink"
	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlrecord"
)

func bookSchema() *value.Schema {
	book := value.NewFieldMap()
	book.Set(value.Field{Name: "title", Type: value.TStr()})
	book.Set(value.Field{Name: "year", Type: value.TI32(), Nullable: true})

	s := value.NewSchema("catalog")
	s.Fields.Set(value.Field{Name: "book", Type: value.TStruct(book), Repeating: true})
	return s
}

func bookRecord(title, year string) xmlrecord.Record {
	tree := value.NewRecord()
	tree.AppendChild("title", value.Text(title))
	if year != "" {
		tree.AppendChild("year", value.Text(year))
	}
	return xmlrecord.Record{Name: "book", Tree: tree}
}

func TestWriterLineDelimitedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")

	w, err := New(bookSchema(), sink.Config{}, LineDelimited, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.WriteRecord(context.Background(), bookRecord("Go in Action", "2015")); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := w.WriteRecord(context.Background(), bookRecord("Second Book", "")); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	report, err := w.Close(context.Background())
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if report.RowsWritten != 2 {
		t.Fatalf("RowsWritten = %d, want 2", report.RowsWritten)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := splitLines(data)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	books, ok := first["book"].([]any)
	if !ok || len(books) != 1 {
		t.Fatalf("book = %v, want a one-element array", first["book"])
	}
	obj, ok := books[0].(map[string]any)
	if !ok {
		t.Fatalf("book[0] = %v, want an object", books[0])
	}
	if obj["title"] != "Go in Action" {
		t.Fatalf("title = %v", obj["title"])
	}
	if obj["year"] != float64(2015) {
		t.Fatalf("year = %v", obj["year"])
	}
}

func TestWriterArrayFraming(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	w, err := New(bookSchema(), sink.Config{}, Array, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.WriteRecord(context.Background(), bookRecord("A", "2000")); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := w.WriteRecord(context.Background(), bookRecord("B", "2001")); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if _, err := w.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var arr []map[string]any
	if err := json.Unmarshal(data, &arr); err != nil {
		t.Fatalf("Unmarshal array: %v", err)
	}
	if len(arr) != 2 {
		t.Fatalf("expected 2 array elements, got %d", len(arr))
	}
}

func TestWriterFailIfExistsConflict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")
	if err := os.WriteFile(path, []byte("existing"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := New(bookSchema(), sink.Config{Mode: sink.FailIfExists}, LineDelimited, path)
	if err == nil {
		t.Fatalf("expected a ConflictError when target exists with FailIfExists")
	}
}

func TestWriterCoercionFailureStringifiesAndCountsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")
	w, err := New(bookSchema(), sink.Config{}, LineDelimited, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.WriteRecord(context.Background(), bookRecord("A", "not-a-number")); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	report, err := w.Close(context.Background())
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if report.CoercionErrors != 1 {
		t.Fatalf("CoercionErrors = %d, want 1", report.CoercionErrors)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := splitLines(data)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &obj); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := obj["book"].(string); !ok {
		t.Fatalf("book = %v (%T), want the stringified fallback", obj["book"], obj["book"])
	}
}

func splitLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, string(data[start:i]))
			}
			start = i + 1
		}
	}
	return lines
}
