package orchestrate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/xmletl/core/inference"
	"github.com/xmletl/core/sink"
	"github.com/xmletl/core/sink/jsonfile"
)

const booksXML = `<catalog>
  <book><title>Go in Action</title><year>2015</year></book>
  <book><title>The Go Programming Language</title><year>2016</year></book>
</catalog>`

func writeFixture(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunJSONFileEndToEnd(t *testing.T) {
	src := writeFixture(t, "catalog.xml", booksXML)
	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "out.jsonl")

	cfg := Config{
		SourceSpec: src,
		Inference:  inference.Config{Mode: inference.Auto},
		Sink:       JSONFileSink,
		SinkConfig: sink.Config{},
		JSONFile:   JSONFileConfig{Path: outPath, Framing: jsonfile.LineDelimited},
	}

	report, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RowsWritten != 2 {
		t.Fatalf("RowsWritten = %d, want 2", report.RowsWritten)
	}
	if report.RootElementName != "catalog" {
		t.Fatalf("RootElementName = %q, want %q", report.RootElementName, "catalog")
	}
	if report.UsedExternalSchema {
		t.Fatalf("expected no external schema without a SchemaFetcher")
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var first map[string]any
	line := data[:indexOf(data, '\n')]
	if err := json.Unmarshal(line, &first); err != nil {
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
}

func TestRunUnrecognizedSinkKindFails(t *testing.T) {
	src := writeFixture(t, "catalog.xml", booksXML)
	cfg := Config{
		SourceSpec: src,
		Inference:  inference.Config{Mode: inference.Auto},
		Sink:       SinkKind(99),
	}
	if _, err := Run(context.Background(), cfg); err == nil {
		t.Fatalf("expected an error for an unrecognized sink kind")
	}
}

func TestRunMissingSourceFails(t *testing.T) {
	cfg := Config{
		SourceSpec: filepath.Join(t.TempDir(), "does-not-exist.xml"),
		Inference:  inference.Config{Mode: inference.Auto},
		Sink:       JSONFileSink,
		JSONFile:   JSONFileConfig{Path: filepath.Join(t.TempDir(), "out.jsonl")},
	}
	if _, err := Run(context.Background(), cfg); err == nil {
		t.Fatalf("expected an error for a missing source file")
	}
}

func indexOf(data []byte, b byte) int {
	for i, c := range data {
		if c == b {
			return i
		}
	}
	return len(data)
}
