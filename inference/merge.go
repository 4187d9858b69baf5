package inference

import "github.com/xmletl/core/value"

// mergeFieldMaps implements spec.md §4.3's field-merging rule: an
// associative, commutative fold over two FieldMaps built from different
// samples of the same element type.
//
//   - a field present on both sides: disagreeing types widen to Str;
//     nullable and repeating both become the OR of the two sides.
//   - a field present on only one side: kept, forced nullable=true.
//   - two Struct fields merge by recursing into their own FieldMaps.
func mergeFieldMaps(a, b *value.FieldMap) *value.FieldMap {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := value.NewFieldMap()
	seen := make(map[string]bool)

	a.Each(func(af value.Field) {
		seen[af.Name] = true
		if bf, ok := b.Get(af.Name); ok {
			out.Set(mergeField(af, bf))
		} else {
			af.Nullable = true
			out.Set(af)
		}
	})
	b.Each(func(bf value.Field) {
		if seen[bf.Name] {
			return
		}
		bf.Nullable = true
		out.Set(bf)
	})
	return out
}

func mergeField(a, b value.Field) value.Field {
	return value.Field{
		Name:      a.Name,
		Type:      mergeType(a.Type, b.Type),
		Nullable:  a.Nullable || b.Nullable,
		Repeating: a.Repeating || b.Repeating,
	}
}

func mergeType(a, b value.Type) value.Type {
	if a.Kind == value.StructKind && b.Kind == value.StructKind {
		return value.TStruct(mergeFieldMaps(a.Fields, b.Fields))
	}
	if a.Equal(b) {
		return a
	}
	return value.TStr()
}

// mergeExternalSampled implements spec.md §4.3's Hybrid-mode rule: the
// external schema's fields contribute first, and a sampled field is only
// added when no field of the same top-level name is already present —
// not a type-unifying merge like mergeFieldMaps, a pure "fill the gaps"
// pass.
func mergeExternalSampled(external, sampled *value.FieldMap) *value.FieldMap {
	out := external.Clone()
	sampled.Each(func(f value.Field) {
		if _, ok := out.Get(f.Name); !ok {
			f.Nullable = true
			out.Set(f)
		}
	})
	return out
}
