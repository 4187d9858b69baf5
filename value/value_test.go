package value

import "testing"

func TestFieldMapPreservesOrder(t *testing.T) {
	m := NewFieldMap()
	m.Set(Field{Name: "b", Type: TStr()})
	m.Set(Field{Name: "a", Type: TStr()})
	m.Set(Field{Name: "b", Type: TI32()}) // replace, keep position
	if got, want := m.Names(), []string{"b", "a"}; !equalStrs(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	f, ok := m.Get("b")
	if !ok || f.Type.Kind != I32 {
		t.Fatalf("Get(b) = %+v, %v", f, ok)
	}
}

func equalStrs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNodeAppendChildSingleOccurrenceIsList(t *testing.T) {
	rec := NewRecord()
	rec.AppendChild("title", Text("Go in Action"))
	v, ok := rec.Get("title")
	if !ok {
		t.Fatalf("expected title present")
	}
	if v.Kind != NodeList {
		t.Fatalf("single-occurrence child must still be a NodeList, got %v", v.Kind)
	}
	if len(v.List) != 1 || v.List[0].Text != "Go in Action" {
		t.Fatalf("unexpected list contents: %+v", v.List)
	}
}

func TestNodeAppendChildMultipleOccurrences(t *testing.T) {
	rec := NewRecord()
	rec.AppendChild("tag", Text("a"))
	rec.AppendChild("tag", Text("b"))
	v, _ := rec.Get("tag")
	if len(v.List) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(v.List))
	}
}

func TestTypeEqual(t *testing.T) {
	a := TArray(TI32())
	b := TArray(TI32())
	if !a.Equal(b) {
		t.Fatalf("expected array types to be equal")
	}
	c := TArray(TStr())
	if a.Equal(c) {
		t.Fatalf("expected array types of differing element type to differ")
	}
	d1 := TDecimal(10, 2)
	d2 := TDecimal(10, 2)
	if !d1.Equal(d2) {
		t.Fatalf("expected equal decimals to be equal")
	}
	d3 := TDecimal(10, 4)
	if d1.Equal(d3) {
		t.Fatalf("expected decimals with differing scale to differ")
	}
}

func TestProbeLeafType(t *testing.T) {
	cases := map[string]Kind{
		"true":                  Bool,
		"false":                 Bool,
		"30":                    I32,
		"-30":                   I32,
		"12345678901":           I64, // 11 digits
		"3.14":                  F64,
		"2024-01-02":            Date,
		"2024-01-02T03:04:05Z":  Timestamp,
		"thirty":                Str,
	}
	for in, want := range cases {
		got := ProbeLeafType(in)
		if got.Kind != want {
			t.Fatalf("ProbeLeafType(%q) = %v, want %v", in, got.Kind, want)
		}
	}
}

func TestProbeLeafTypeIdempotent(t *testing.T) {
	for _, s := range []string{"true", "42", "3.14", "2024-01-02", "hello"} {
		a := ProbeLeafType(s)
		b := ProbeLeafType(s)
		if !a.Equal(b) {
			t.Fatalf("ProbeLeafType(%q) not idempotent: %v vs %v", s, a, b)
		}
	}
}

func TestDecimalParseAndString(t *testing.T) {
	d, err := ParseDecimal("19.99")
	if err != nil {
		t.Fatalf("ParseDecimal: %v", err)
	}
	if got, want := d.String(), "19.99"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if d.Scale != 2 {
		t.Fatalf("Scale = %d, want 2", d.Scale)
	}

	neg, err := ParseDecimal("-3")
	if err != nil {
		t.Fatalf("ParseDecimal: %v", err)
	}
	if got, want := neg.String(), "-3"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestDecimalFloat64(t *testing.T) {
	d, _ := ParseDecimal("19.99")
	if f := d.Float64(); f < 19.98 || f > 20.0 {
		t.Fatalf("Float64() = %v, out of expected range", f)
	}
}

func TestTypeByNameTable(t *testing.T) {
	cases := map[string]Kind{
		"string":   Str,
		"int":      I32,
		"integer":  I32,
		"long":     I64,
		"float":    F64,
		"double":   F64,
		"boolean":  Bool,
		"date":     Date,
		"time":     Time,
		"dateTime": Timestamp,
		"decimal":  DecimalKind,
		"whatever": Str,
	}
	for in, want := range cases {
		got := TypeByName(in)
		if got.Kind != want {
			t.Fatalf("TypeByName(%q) = %v, want %v", in, got.Kind, want)
		}
	}
	dec := TypeByName("decimal")
	if dec.Precision != 10 || dec.Scale != 2 {
		t.Fatalf("default decimal = (%d,%d), want (10,2)", dec.Precision, dec.Scale)
	}
}
