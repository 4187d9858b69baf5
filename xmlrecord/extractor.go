// Package xmlrecord implements the streaming record extractor of
// spec.md §4.1 (C1): a pull-mode XML tokenizer that yields a lazy
// sequence of (elementName, valueTree) pairs, one per depth-2 child of
// the document root.
//
// The RecordIterator contract (Next/Record/Err/Close) is adapted from
// the teacher's transform.RecordIterator (transform/transformer.go):
// same forward-only pull shape and the same sticky-error discipline, but
// Record() returns a Record (element name + recursive value.Node) instead
// of a flat, header-indexed Extractor, since spec.md §3 requires a
// recursive tree, not a row of scalar fields.
package xmlrecord

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/xmletl/core/connector"
	"github.com/xmletl/core/opener"
	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlerr"
)

const component = "xmlrecord"

// Record is one depth-2 child of the document root: its local element
// name and the recursive value tree built from its attributes, text and
// children (spec.md §3).
type Record struct {
	Name string
	Tree value.Node
}

// RecordIterator is a forward-only iterator over Records, mirroring the
// teacher's RecordIterator contract (Next/Record/Err/Close).
type RecordIterator interface {
	// Next advances to the next record and reports whether one is
	// available. Returns false on EOF or on a terminal error; check Err
	// to distinguish the two.
	Next() bool
	// Record returns the current record. Only valid after Next returns
	// true.
	Record() Record
	// Err returns the first non-EOF error encountered, or nil.
	Err() error
	// Close releases the underlying stream. Safe to call multiple times.
	Close() error
}

// Options configures NewExtractor.
type Options struct {
	// StartByteOffset/EndByteOffset implement spec.md §4.1's optional
	// byte window. Zero EndByteOffset means "no window": the sequence
	// runs to end-of-document.
	StartByteOffset int64
	EndByteOffset   int64
}

// NewExtractor opens op and returns a finite, non-restartable
// RecordIterator over its depth-2 child elements, per spec.md §4.1.
//
// NewExtractor fails with an xmlerr KindInput error if the file cannot
// be opened. Malformed-XML failures surface later, from Next/Err, once
// the parser actually reaches the bad input — consistent with "Fails
// with InputError if ... not well-formed XML up to the point required to
// produce the next record."
func NewExtractor(ctx context.Context, op opener.Opener, opts Options) (RecordIterator, error) {
	ws, err := connector.NewWindowedStream(ctx, op, opts.StartByteOffset, opts.EndByteOffset)
	if err != nil {
		return nil, xmlerr.Input(component, err, "open %s", op.Name())
	}
	dec := xml.NewDecoder(ws)
	it := &recordIterator{
		ws:     ws,
		dec:    dec,
		state:  stateBeforeRoot,
	}
	return it, nil
}

type parserState int

const (
	stateBeforeRoot parserState = iota
	stateInRoot
	stateDone
)

type recordIterator struct {
	ws    connector.WindowedStream
	dec   *xml.Decoder
	state parserState

	current Record
	err     error
	closed  bool
}

// Next implements the state machine of spec.md §4.1:
// BeforeRoot → InRoot → InRecord → InRoot → … → Done.
func (it *recordIterator) Next() bool {
	if it.err != nil || it.state == stateDone {
		return false
	}
	for {
		if it.ws.ExceededWindow() && it.state == stateInRoot {
			// The byte window is a hint, not a guarantee (spec.md
			// §4.1): we only stop at a record boundary, which is
			// exactly where this check runs — between records, before
			// reading the next start-element.
			it.state = stateDone
			return false
		}
		tok, err := it.dec.Token()
		if err == io.EOF {
			it.state = stateDone
			return false
		}
		if err != nil {
			it.err = xmlerr.Input(component, err, "malformed XML in %s", it.ws.Current().Name)
			it.state = stateDone
			return false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch it.state {
			case stateBeforeRoot:
				it.state = stateInRoot
			case stateInRoot:
				tree, err := buildTree(it.dec, t)
				if err != nil {
					it.err = xmlerr.Input(component, err, "malformed XML building record %s", t.Name.Local)
					it.state = stateDone
					return false
				}
				it.current = Record{Name: t.Name.Local, Tree: tree}
				return true
			}
		case xml.EndElement:
			if it.state == stateInRoot {
				// End of root element: nothing more to read.
				it.state = stateDone
				return false
			}
		}
	}
}

func (it *recordIterator) Record() Record { return it.current }
func (it *recordIterator) Err() error      { return it.err }
func (it *recordIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.ws.Close()
}

// buildTree recursively consumes tokens from dec until the end-element
// matching se is found, building the value tree per spec.md §4.1:
//
//   - text is accumulated into a single scratch buffer, trimmed at
//     assembly time; whitespace-only text is discarded
//   - every start-element is appended to the child-map list keyed by
//     local name — never collapsed, even for a single occurrence
//   - attributes are stored under "@"+localName
//   - non-whitespace text alongside child elements is discarded
//     (children take precedence)
//   - CDATA is treated identically to character data (encoding/xml
//     already reports CDATA as xml.CharData)
//   - namespaces are flattened to local names
func buildTree(dec *xml.Decoder, se xml.StartElement) (value.Node, error) {
	rec := value.NewRecord()
	for _, attr := range se.Attr {
		rec.Set("@"+attr.Name.Local, value.Text(attr.Value))
	}

	var text strings.Builder
	hasChildren := false

	for {
		tok, err := dec.Token()
		if err != nil {
			return value.Node{}, fmt.Errorf("reading children of <%s>: %w", se.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			hasChildren = true
			child, err := buildTree(dec, t)
			if err != nil {
				return value.Node{}, err
			}
			rec.AppendChild(t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if t.Name.Local == se.Name.Local {
				if !hasChildren {
					trimmed := strings.TrimSpace(text.String())
					if trimmed != "" {
						rec.Set(value.TextKey, value.Text(trimmed))
					}
				}
				return rec, nil
			}
		}
	}
}
