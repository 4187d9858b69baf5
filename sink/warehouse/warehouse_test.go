package warehouse

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/snappy"

	"github.com/xmletl/core/sink"
	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlrecord"
)

func bookSchema() *value.Schema {
	book := value.NewFieldMap()
	book.Set(value.Field{Name: "title", Type: value.TStr()})
	book.Set(value.Field{Name: "year", Type: value.TI32()})

	s := value.NewSchema("catalog")
	s.Fields.Set(value.Field{Name: "book", Type: value.TStruct(book), Repeating: true})
	return s
}

func bookRecord(title, year string) xmlrecord.Record {
	tree := value.NewRecord()
	tree.AppendChild("title", value.Text(title))
	tree.AppendChild("year", value.Text(year))
	return xmlrecord.Record{Name: "book", Tree: tree}
}

func TestWriterPostsSnappyCompressedBatch(t *testing.T) {
	var receivedRows []map[string]any
	var receivedEncoding string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedEncoding = r.Header.Get("Content-Encoding")
		compressed, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("reading request body: %v", err)
		}
		raw, err := snappy.Decode(nil, compressed)
		if err != nil {
			t.Fatalf("snappy.Decode: %v", err)
		}
		var payload batchPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("Unmarshal payload: %v", err)
		}
		receivedRows = payload.Rows
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	writer, err := New(bookSchema(), Config{Config: sink.Config{BatchSize: 10}, Endpoint: srv.URL, Table: "books"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := writer.WriteRecord(context.Background(), bookRecord("Go in Action", "2015")); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	report, err := writer.Close(context.Background())
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if receivedEncoding != "snappy" {
		t.Fatalf("Content-Encoding = %q, want snappy", receivedEncoding)
	}
	if len(receivedRows) != 1 {
		t.Fatalf("expected 1 row in batch, got %d", len(receivedRows))
	}
	if report.RowsWritten != 1 {
		t.Fatalf("RowsWritten = %d, want 1", report.RowsWritten)
	}
	books, ok := receivedRows[0]["book"].([]any)
	if !ok || len(books) != 1 {
		t.Fatalf("book = %v, want a one-element array", receivedRows[0]["book"])
	}
	obj, ok := books[0].(map[string]any)
	if !ok {
		t.Fatalf("book[0] = %v, want an object", books[0])
	}
	// year was declared I32 but warehouse widens to I64.
	if _, ok := obj["year"].(float64); !ok {
		t.Fatalf("year = %v (%T)", obj["year"], obj["year"])
	}
}

func TestWriterNonSuccessStatusIsSinkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	writer, err := New(bookSchema(), Config{Endpoint: srv.URL, Table: "books"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := writer.WriteRecord(context.Background(), bookRecord("A", "2000")); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if _, err := writer.Close(context.Background()); err == nil {
		t.Fatalf("expected an error on a 500 response")
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := New(bookSchema(), Config{}); err == nil {
		t.Fatalf("expected an error for an empty Endpoint")
	}
}
