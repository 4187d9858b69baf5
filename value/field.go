package value

// Field is (name, type, nullable, repeating) per spec.md §3.
//
// repeating=true is the "this element can occur multiple times" flag and
// is orthogonal to Type.Kind==ArrayKind; a field is materialized as a
// repeated column when Repeating || Type.Kind==ArrayKind.
type Field struct {
	Name      string
	Type      Type
	Nullable  bool
	Repeating bool
}

// IsRepeatedColumn reports whether this field should be written as a
// repeated column by a sink, per spec.md §3.
func (f Field) IsRepeatedColumn() bool {
	return f.Repeating || f.Type.Kind == ArrayKind
}

// FieldMap is an ordered map from field name to Field. Iteration order
// matches first-seen order, per spec.md §3's Struct invariant ("field
// names are unique; iteration order matches first-seen order").
//
// A plain map cannot preserve insertion order, so FieldMap pairs a map
// with an explicit order slice — the same "ordered map over a plain map"
// shape the teacher reaches for with invertedIndex-style lookups in
// transform/csv_decoder.go, generalized to also remember order.
type FieldMap struct {
	order []string
	byKey map[string]Field
}

// NewFieldMap constructs an empty FieldMap.
func NewFieldMap() *FieldMap {
	return &FieldMap{byKey: make(map[string]Field)}
}

// Set inserts or replaces the field named f.Name, preserving the
// position of an existing entry and appending new ones at the end.
func (m *FieldMap) Set(f Field) {
	if _, ok := m.byKey[f.Name]; !ok {
		m.order = append(m.order, f.Name)
	}
	m.byKey[f.Name] = f
}

// Get returns the field named name and whether it was present.
func (m *FieldMap) Get(name string) (Field, bool) {
	f, ok := m.byKey[name]
	return f, ok
}

// Delete removes the field named name, if present.
func (m *FieldMap) Delete(name string) {
	if _, ok := m.byKey[name]; !ok {
		return
	}
	delete(m.byKey, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of fields.
func (m *FieldMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Names returns the field names in first-seen order.
func (m *FieldMap) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Each calls fn for every field in first-seen order.
func (m *FieldMap) Each(fn func(Field)) {
	if m == nil {
		return
	}
	for _, name := range m.order {
		fn(m.byKey[name])
	}
}

// Clone returns a deep-enough copy: a new FieldMap with the same fields,
// safe to mutate independently of m.
func (m *FieldMap) Clone() *FieldMap {
	n := NewFieldMap()
	m.Each(func(f Field) { n.Set(f) })
	return n
}

// Equal reports whether m and o contain the same fields (order
// independent — used only by Type.Equal, where position is not
// semantically meaningful).
func (m *FieldMap) Equal(o *FieldMap) bool {
	if m.Len() != o.Len() {
		return false
	}
	eq := true
	m.Each(func(f Field) {
		of, ok := o.Get(f.Name)
		if !ok || !f.Type.Equal(of.Type) || f.Nullable != of.Nullable || f.Repeating != of.Repeating {
			eq = false
		}
	})
	return eq
}

// Schema is (rootElementName, map<fieldName, Field>) per spec.md §3:
// rootElementName is the document's true root, and each top-level field
// is named for a record element type (one depth-2 child of that root),
// wrapping that record's own shape as a Struct.
type Schema struct {
	RootElementName string
	Fields          *FieldMap
}

// NewSchema constructs an empty Schema rooted at rootElementName.
func NewSchema(rootElementName string) *Schema {
	return &Schema{RootElementName: rootElementName, Fields: NewFieldMap()}
}
