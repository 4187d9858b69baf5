// Package connector exposes the byte stream the record extractor reads
// from, annotated with the position information spec.md §4.1 needs to
// honor an optional byte window.
//
// This is an adaptation, not a transplant, of the teacher's
// connector.SrcAwareStreamer: the teacher multiplexed many openers (one
// per CSV file in a glob) into a single stream with source-boundary
// notifications, because a CSV import can legitimately span many
// physical files. An XML document is always a single logical source, so
// the multi-source boundary channel (opener_multiplexer.go's
// AwaitBoundary/boundary chan machinery) has no job to do here and is
// dropped. What is kept is the teacher's core idea: an atomically
// published position snapshot (SrcMeta) that a consumer can read without
// synchronizing with the reader goroutine.
package connector

import "io"

// SrcMeta describes the position of a WindowedStream within its source.
// Name identifies the source (the Opener's Name()). ByteOffset counts the
// number of bytes read from the source so far.
type SrcMeta struct {
	Name       string
	ByteOffset int64
}

// WindowedStream is a single-source, position-tracking byte stream.
//
// Current reports the latest SrcMeta snapshot; ExceededWindow reports
// whether the tracked offset has reached the configured endByteOffset
// (if any). Per spec.md §4.1, the window is a hint, not a guarantee: the
// extractor MAY finish emitting a record that was already in flight when
// the window was reached.
type WindowedStream interface {
	io.ReadCloser

	// Current returns a snapshot of the stream's current position.
	Current() SrcMeta

	// ExceededWindow reports whether the read position has reached the
	// configured end of the byte window. Always false when no window was
	// configured.
	ExceededWindow() bool
}
