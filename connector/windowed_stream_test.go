package connector

import (
	"context"
	"io"
	"testing"

	"github.com/xmletl/core/opener"
)

func TestWindowedStreamTracksOffset(t *testing.T) {
	src := opener.InMemorySource{SourceName: "fixture", Data: []byte("0123456789")}
	ws, err := NewWindowedStream(context.Background(), src, 0, 0)
	if err != nil {
		t.Fatalf("NewWindowedStream: %v", err)
	}
	defer ws.Close()

	buf := make([]byte, 4)
	n, err := ws.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("Read: %v", err)
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}
	if got := ws.Current().ByteOffset; got != 4 {
		t.Fatalf("ByteOffset = %d, want 4", got)
	}
	if ws.Current().Name != "fixture" {
		t.Fatalf("Name = %q", ws.Current().Name)
	}
}

func TestWindowedStreamExceededWindow(t *testing.T) {
	src := opener.InMemorySource{SourceName: "fixture", Data: []byte("0123456789")}
	ws, err := NewWindowedStream(context.Background(), src, 0, 5)
	if err != nil {
		t.Fatalf("NewWindowedStream: %v", err)
	}
	defer ws.Close()

	if ws.ExceededWindow() {
		t.Fatalf("window exceeded before any read")
	}
	buf := make([]byte, 5)
	if _, err := io.ReadFull(ws, buf); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if !ws.ExceededWindow() {
		t.Fatalf("expected window to be exceeded after 5 bytes")
	}
}

func TestWindowedStreamNoWindowNeverExceeded(t *testing.T) {
	src := opener.InMemorySource{SourceName: "fixture", Data: []byte("0123456789")}
	ws, err := NewWindowedStream(context.Background(), src, 0, 0)
	if err != nil {
		t.Fatalf("NewWindowedStream: %v", err)
	}
	defer ws.Close()
	io.ReadAll(ws)
	if ws.ExceededWindow() {
		t.Fatalf("expected no window configured to never exceed")
	}
}
