package sink

import (
	"math/big"
	"strconv"

	"github.com/araddon/dateparse"

	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlerr"
)

const component = "sink"

// CoerceLeaf converts v to the Go-native representation of typ, per
// spec.md §4.5's value-coercion rule: "extract #text from a value tree
// if the input is a struct, otherwise use the string form; attempt the
// typed parse; on failure, log and omit the cell (columnar) or coerce to
// string (flattened)." CoerceLeaf performs only the parse half of that
// rule — callers decide what "omit" or "coerce to string" means for
// their own sink shape.
//
// Returns one of: string, int32, int64, float64, bool, time.Time (for
// Date/Time/Timestamp alike — the distinction is in how a caller formats
// it), or value.Decimal.
func CoerceLeaf(v value.Node, typ value.Type) (any, error) {
	text, ok := v.TextContent()
	if !ok {
		text = v.Text
	}
	switch typ.Kind {
	case value.Str:
		return text, nil
	case value.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, xmlerr.Coercion(component, err, "parsing %q as Bool", text)
		}
		return b, nil
	case value.I32:
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, xmlerr.Coercion(component, err, "parsing %q as I32", text)
		}
		return int32(n), nil
	case value.I64:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, xmlerr.Coercion(component, err, "parsing %q as I64", text)
		}
		return n, nil
	case value.F64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, xmlerr.Coercion(component, err, "parsing %q as F64", text)
		}
		return f, nil
	case value.Date, value.Time, value.Timestamp:
		// Timestamps accept a small set of surface forms (local
		// timestamp, ISO offset, ISO instant); dateparse's permissive
		// format sniffing covers all three without a fixed-layout list.
		t, err := dateparse.ParseAny(text)
		if err != nil {
			return nil, xmlerr.Coercion(component, err, "parsing %q as %s", text, typ.Kind)
		}
		return t, nil
	case value.DecimalKind:
		d, err := value.ParseDecimal(text)
		if err != nil {
			return nil, xmlerr.Coercion(component, err, "parsing %q as Decimal", text)
		}
		return d, nil
	default:
		return nil, xmlerr.Coercion(component, nil, "unsupported leaf kind %s", typ.Kind)
	}
}

// WidenForWarehouse implements spec.md §4.5's warehouse simplification:
// every leaf scalar is treated as its widest native type (I32→I64,
// Decimal→F64), documented as an explicit, deliberate loss of precision
// rather than an oversight.
func WidenForWarehouse(v any) any {
	switch t := v.(type) {
	case int32:
		return int64(t)
	case value.Decimal:
		return t.Float64()
	default:
		return v
	}
}

// CoerceArray recursively coerces each element of a NodeList against
// elemType, per spec.md §4.5's Array rule. An empty list coerces to nil.
func CoerceArray(list value.Node, elemType value.Type) ([]any, []error) {
	if list.Kind != value.NodeList || len(list.List) == 0 {
		return nil, nil
	}
	out := make([]any, 0, len(list.List))
	var errs []error
	for _, item := range list.List {
		v, err := CoerceAny(item, elemType)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, v)
	}
	return out, errs
}

// CoerceAny coerces v against typ, dispatching to CoerceLeaf, CoerceArray,
// or a map[string]any walk for Struct types — the full type-lattice walk
// spec.md §4.5 describes.
func CoerceAny(v value.Node, typ value.Type) (any, error) {
	switch typ.Kind {
	case value.ArrayKind:
		arr, errs := CoerceArray(v, *typ.Elem)
		if len(errs) > 0 {
			return arr, errs[0]
		}
		return arr, nil
	case value.StructKind:
		return coerceStruct(v, typ)
	default:
		return CoerceLeaf(v, typ)
	}
}

func coerceStruct(v value.Node, typ value.Type) (map[string]any, error) {
	out := make(map[string]any, typ.Fields.Len())
	var firstErr error
	typ.Fields.Each(func(f value.Field) {
		child, ok := v.Get(f.Name)
		if !ok {
			return
		}
		var cv any
		var err error
		if f.IsRepeatedColumn() {
			var errs []error
			cv, errs = CoerceArray(child, f.Type)
			if len(errs) > 0 {
				err = errs[0]
			}
		} else if len(child.List) == 1 {
			cv, err = CoerceAny(child.List[0], f.Type)
		} else {
			cv, err = CoerceAny(child, f.Type)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		out[f.Name] = cv
	})
	return out, firstErr
}

// FormatDecimalBytes renders a Decimal as a big-endian two's complement
// byte slice of the given fixed length, for columnar sinks that model
// decimals as FIXED_LEN_BYTE_ARRAY.
func FormatDecimalBytes(d value.Decimal, length int) []byte {
	raw := d.Unscaled.Bytes()
	out := make([]byte, length)
	if d.Unscaled.Sign() < 0 {
		for i := range out {
			out[i] = 0xff
		}
		neg := new(big.Int).Neg(d.Unscaled)
		twos := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(length*8)), neg)
		twos.FillBytes(out)
		return out
	}
	if len(raw) > length {
		raw = raw[len(raw)-length:]
	}
	copy(out[length-len(raw):], raw)
	return out
}
