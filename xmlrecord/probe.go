package xmlrecord

import (
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/xmletl/core/opener"
	"github.com/xmletl/core/xmlerr"
)

// RootName opens op independently of any in-flight extraction and
// returns the root element's local name, per spec.md §4.1's "convenience
// probe".
func RootName(ctx context.Context, op opener.Opener) (string, bool, error) {
	rc, err := op.Open(ctx)
	if err != nil {
		return "", false, xmlerr.Input(component, err, "open %s for root-name probe", op.Name())
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", false, nil
		}
		if err != nil {
			return "", false, xmlerr.Input(component, err, "malformed XML probing root of %s", op.Name())
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, true, nil
		}
	}
}

// SchemaLocation opens op independently and returns the first
// schema-location-like attribute value found on the root element, per
// spec.md §4.1: "A schema-location attribute value may be either a
// whitespace-separated (namespace, url) pair (take the second token
// starting with http) or a bare URL."
func SchemaLocation(ctx context.Context, op opener.Opener) (string, bool, error) {
	rc, err := op.Open(ctx)
	if err != nil {
		return "", false, xmlerr.Input(component, err, "open %s for schema-location probe", op.Name())
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", false, nil
		}
		if err != nil {
			return "", false, xmlerr.Input(component, err, "malformed XML probing schema location of %s", op.Name())
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, attr := range se.Attr {
			name := strings.ToLower(attr.Name.Local)
			if strings.Contains(name, "schemalocation") {
				if url, ok := extractURL(attr.Value); ok {
					return url, true, nil
				}
			}
		}
		return "", false, nil
	}
}

// extractURL implements the "whitespace-separated (namespace, url) pair
// or bare URL" parsing rule from spec.md §4.1.
func extractURL(value string) (string, bool) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return "", false
	}
	if len(fields) == 1 {
		return fields[0], true
	}
	for _, f := range fields[1:] {
		if strings.HasPrefix(f, "http") {
			return f, true
		}
	}
	return fields[len(fields)-1], true
}
