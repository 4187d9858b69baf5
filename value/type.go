// Package value implements the type lattice, Field/Schema model, and the
// recursive value-tree representation of spec.md §3, plus the equality
// and construction helpers of spec.md §4.4 (C4).
package value

import "fmt"

// Kind tags the variant a Type belongs to. Per spec.md §3, every value in
// the system is one of these kinds; only Array and Struct are recursive.
type Kind int

const (
	Str Kind = iota
	I32
	I64
	F64
	Bool
	Date
	Time
	Timestamp
	DecimalKind
	ArrayKind
	StructKind
)

func (k Kind) String() string {
	switch k {
	case Str:
		return "Str"
	case I32:
		return "I32"
	case I64:
		return "I64"
	case F64:
		return "F64"
	case Bool:
		return "Bool"
	case Date:
		return "Date"
	case Time:
		return "Time"
	case Timestamp:
		return "Timestamp"
	case DecimalKind:
		return "Decimal"
	case ArrayKind:
		return "Array"
	case StructKind:
		return "Struct"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Type is the tagged variant described in spec.md §3. Precision/Scale are
// only meaningful when Kind == DecimalKind; Elem is only meaningful when
// Kind == ArrayKind; Fields is only meaningful when Kind == StructKind.
type Type struct {
	Kind      Kind
	Precision int
	Scale     int
	Elem      *Type
	Fields    *FieldMap
}

// Leaf type constructors — these never allocate a FieldMap or Elem.

func TStr() Type  { return Type{Kind: Str} }
func TI32() Type  { return Type{Kind: I32} }
func TI64() Type  { return Type{Kind: I64} }
func TF64() Type  { return Type{Kind: F64} }
func TBool() Type { return Type{Kind: Bool} }
func TDate() Type { return Type{Kind: Date} }
func TTime() Type { return Type{Kind: Time} }
func TTimestamp() Type { return Type{Kind: Timestamp} }

// TDecimal constructs a Decimal(precision, scale) type.
func TDecimal(precision, scale int) Type {
	return Type{Kind: DecimalKind, Precision: precision, Scale: scale}
}

// TArray constructs an Array(elementType) type.
func TArray(elem Type) Type {
	return Type{Kind: ArrayKind, Elem: &elem}
}

// TStruct constructs a Struct type from an already-built FieldMap.
func TStruct(fields *FieldMap) Type {
	return Type{Kind: StructKind, Fields: fields}
}

// IsLeaf reports whether t is a non-recursive scalar type.
func (t Type) IsLeaf() bool {
	return t.Kind != ArrayKind && t.Kind != StructKind
}

// Equal reports deep structural equality between two types, per spec.md
// §4.4's "construction and equality on the type lattice".
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case DecimalKind:
		return t.Precision == o.Precision && t.Scale == o.Scale
	case ArrayKind:
		if t.Elem == nil || o.Elem == nil {
			return t.Elem == o.Elem
		}
		return t.Elem.Equal(*o.Elem)
	case StructKind:
		if t.Fields == nil || o.Fields == nil {
			return t.Fields == o.Fields
		}
		return t.Fields.Equal(o.Fields)
	default:
		return true
	}
}

// TypeByName maps an external-schema or override type-name string to a
// Type, using the fixed table spec.md §4.2 and §4.3 both specify:
//
//	string→Str, int/integer→I32, long→I64, float/double→F64,
//	boolean→Bool, date→Date, time→Time, dateTime→Timestamp,
//	decimal→Decimal(10,2) default, anything else→Str.
//
// This single function is shared by the external-schema parser (C2) and
// override application (C3) so the two never drift, per spec.md §4.3's
// "same type-name table as the external-schema parser".
func TypeByName(name string) Type {
	switch name {
	case "string":
		return TStr()
	case "int", "integer":
		return TI32()
	case "long":
		return TI64()
	case "float", "double":
		return TF64()
	case "boolean":
		return TBool()
	case "date":
		return TDate()
	case "time":
		return TTime()
	case "dateTime":
		return TTimestamp()
	case "decimal":
		return TDecimal(10, 2)
	default:
		return TStr()
	}
}
