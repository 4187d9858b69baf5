package schemaresolver

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xmletl/core/value"
)

// parseXSDSubset walks an XSD document's element/complexType declarations
// and returns one value.Schema per top-level element, per spec.md §4.2.
//
// Only the subset spec.md names is understood: element, complexType,
// sequence, choice, all, and the minOccurs/maxOccurs/nillable attributes
// that drive nullable/repeating. Anything else (attributeGroup, import,
// simpleType restrictions, …) is skipped, not an error — spec.md's
// explicit non-goal is "full schema-description validation", so the
// parser only extracts what it needs and ignores the rest of the
// document structure it doesn't recognize.
func parseXSDSubset(data []byte) ([]*value.Schema, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var schemas []*value.Schema

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing schema document: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || localName(se.Name) != "element" {
			continue
		}
		name := attrVal(se, "name")
		if name == "" {
			if err := skipElement(dec, se.Name); err != nil {
				return nil, err
			}
			continue
		}
		root := value.NewSchema(name)
		typeRef := attrVal(se, "type")
		if typeRef != "" {
			// A top-level element with a "type" attribute and no inline
			// complexType is itself a leaf-typed record — represent it as
			// a schema with a single synthetic field mirroring #text, so
			// downstream merge logic has something to unify against.
			root.Fields.Set(value.Field{Name: value.TextKey, Type: value.TypeByName(stripPrefix(typeRef)), Nullable: true})
			if err := skipElement(dec, se.Name); err != nil {
				return nil, err
			}
			schemas = append(schemas, root)
			continue
		}
		fields, err := parseElementChildren(dec, se.Name)
		if err != nil {
			return nil, err
		}
		root.Fields = fields
		schemas = append(schemas, root)
	}
	return schemas, nil
}

// parseElementChildren consumes tokens up to the matching end-element for
// an <element> that contains an inline <complexType>, and returns the
// FieldMap built from that complexType's child element declarations.
func parseElementChildren(dec *xml.Decoder, end xml.Name) (*value.FieldMap, error) {
	fields := value.NewFieldMap()
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading children of <%s>: %w", end.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name) {
			case "complexType":
				if err := parseComplexType(dec, t.Name, fields); err != nil {
					return nil, err
				}
			default:
				if err := skipElement(dec, t.Name); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name == end {
				return fields, nil
			}
		}
	}
}

// parseComplexType consumes a <complexType>'s children, descending through
// any nesting of sequence/choice/all containers (spec.md §4.2: "recursively
// visiting any sequence, choice, all containers"), and fills fields with
// one Field per child <element> declaration it finds.
func parseComplexType(dec *xml.Decoder, end xml.Name, fields *value.FieldMap) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading children of <%s>: %w", end.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name) {
			case "sequence", "choice", "all":
				if err := parseComplexType(dec, t.Name, fields); err != nil {
					return err
				}
			case "element":
				field, err := parseFieldElement(dec, t)
				if err != nil {
					return err
				}
				fields.Set(field)
			default:
				if err := skipElement(dec, t.Name); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name == end {
				return nil
			}
		}
	}
}

// parseFieldElement parses one child <element> declaration into a Field,
// per spec.md §4.2: local name; type reference mapped via
// value.TypeByName; minOccurs/maxOccurs/nillable drive nullable/repeating.
// An inline complexType instead of a "type" attribute yields a Struct
// field whose Fields are parsed recursively.
func parseFieldElement(dec *xml.Decoder, se xml.StartElement) (value.Field, error) {
	name := attrVal(se, "name")
	minOccurs := attrVal(se, "minOccurs")
	maxOccurs := attrVal(se, "maxOccurs")
	nillable := attrVal(se, "nillable") == "true"

	required := minOccurs != "0"
	repeating := maxOccurs == "unbounded"
	if n, err := strconv.Atoi(maxOccurs); err == nil && n > 1 {
		repeating = true
	}

	typeRef := attrVal(se, "type")
	if typeRef != "" {
		if err := skipElement(dec, se.Name); err != nil {
			return value.Field{}, err
		}
		return value.Field{
			Name:      name,
			Type:      value.TypeByName(stripPrefix(typeRef)),
			Nullable:  !required || nillable,
			Repeating: repeating,
		}, nil
	}

	// No "type" attribute: expect an inline complexType (or nothing, in
	// which case the element is an empty Struct).
	childFields := value.NewFieldMap()
	for {
		tok, err := dec.Token()
		if err != nil {
			return value.Field{}, fmt.Errorf("reading <element name=%q>: %w", name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if localName(t.Name) == "complexType" {
				if err := parseComplexType(dec, t.Name, childFields); err != nil {
					return value.Field{}, err
				}
			} else if err := skipElement(dec, t.Name); err != nil {
				return value.Field{}, err
			}
		case xml.EndElement:
			if t.Name == se.Name {
				return value.Field{
					Name:      name,
					Type:      value.TStruct(childFields),
					Nullable:  !required || nillable,
					Repeating: repeating,
				}, nil
			}
		}
	}
}

// skipElement discards tokens until the end-element matching start is
// reached, for declarations the subset parser does not interpret.
func skipElement(dec *xml.Decoder, name xml.Name) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("skipping <%s>: %w", name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name == name {
				depth++
			}
		case xml.EndElement:
			if t.Name == name {
				depth--
			}
		}
	}
	return nil
}

func attrVal(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func localName(n xml.Name) string {
	return stripPrefix(n.Local)
}

// stripPrefix removes a namespace prefix carried over in a "type"
// attribute value, e.g. "xs:string" -> "string".
func stripPrefix(s string) string {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}
