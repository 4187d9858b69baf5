package inference

import (
	"context"

	"github.com/xmletl/core/opener"
	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlerr"
	"github.com/xmletl/core/xmlrecord"
)

const component = "inference"

// Infer produces a value.Schema for op per spec.md §4.3, given cfg and an
// already-resolved external schema (nil if none was found or the
// resolver is disabled — the orchestrator wires schemaresolver.Resolver
// separately and passes its result in here).
func Infer(ctx context.Context, op opener.Opener, cfg Config, external *value.Schema) (*value.Schema, error) {
	switch cfg.Mode {
	case Manual:
		return inferManual(ctx, op, cfg)
	case External:
		return inferExternal(cfg, external)
	case Hybrid:
		return inferHybrid(ctx, op, cfg, external)
	default:
		return inferAuto(ctx, op, cfg)
	}
}

func inferManual(ctx context.Context, op opener.Opener, cfg Config) (*value.Schema, error) {
	rootName, _, _ := xmlrecord.RootName(ctx, op)
	if rootName == "" {
		rootName = "record"
	}
	schema := value.NewSchema(rootName)
	applyOverrides(schema.Fields, cfg)
	return schema, nil
}

func inferExternal(cfg Config, external *value.Schema) (*value.Schema, error) {
	if external == nil {
		return nil, xmlerr.Schema(component, nil, "mode=External requested but no external schema was resolved")
	}
	schema := value.NewSchema(external.RootElementName)
	schema.Fields = external.Fields.Clone()
	applyOverrides(schema.Fields, cfg)
	return schema, nil
}

func inferAuto(ctx context.Context, op opener.Opener, cfg Config) (*value.Schema, error) {
	rootName, fields, n, err := sample(ctx, op, cfg.samplingSize())
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, xmlerr.Schema(component, nil, "document has no discernible root: no records found in %s", op.Name())
	}
	schema := value.NewSchema(rootName)
	schema.Fields = fields
	applyOverrides(schema.Fields, cfg)
	return schema, nil
}

func inferHybrid(ctx context.Context, op opener.Opener, cfg Config, external *value.Schema) (*value.Schema, error) {
	rootName, sampled, n, err := sample(ctx, op, cfg.samplingSize())
	if err != nil {
		return nil, err
	}
	if n == 0 && external == nil {
		return nil, xmlerr.Schema(component, nil, "document has no discernible root: no records found in %s", op.Name())
	}

	var fields *value.FieldMap
	switch {
	case external != nil && sampled != nil && sampled.Len() > 0:
		fields = mergeExternalSampled(external.Fields, sampled)
		rootName = external.RootElementName
	case external != nil:
		fields = external.Fields.Clone()
		rootName = external.RootElementName
	default:
		fields = sampled
	}

	schema := value.NewSchema(rootName)
	schema.Fields = fields
	applyOverrides(schema.Fields, cfg)
	return schema, nil
}

// sample consumes up to limit records from a fresh xmlrecord extraction
// over op, per spec.md §4.3's sampling inference rule and §8 scenario
// 1's worked example: the schema's root is the document's actual root
// element (not a record's own name), and each distinct record element
// name observed becomes one top-level field — a Struct wrapping that
// record's own children, repeating when more than one occurrence was
// sampled. Returns the true root name and the number of records folded.
func sample(ctx context.Context, op opener.Opener, limit int) (rootName string, fields *value.FieldMap, n int, err error) {
	it, err := xmlrecord.NewExtractor(ctx, op, xmlrecord.Options{})
	if err != nil {
		return "", nil, 0, xmlerr.Input(component, err, "open %s for sampling", op.Name())
	}
	defer it.Close()

	root, ok, rerr := xmlrecord.RootName(ctx, op)
	if rerr != nil {
		return "", nil, 0, rerr
	}
	if !ok || root == "" {
		root = "record"
	}

	byName := make(map[string][]value.Node)
	var order []string
	for n < limit && it.Next() {
		rec := it.Record()
		if _, seen := byName[rec.Name]; !seen {
			order = append(order, rec.Name)
		}
		byName[rec.Name] = append(byName[rec.Name], rec.Tree)
		n++
	}
	if err := it.Err(); err != nil {
		return "", nil, 0, err
	}

	fields = value.NewFieldMap()
	for _, name := range order {
		typ, repeating := fieldTypeFromList(byName[name])
		fields.Set(value.Field{Name: name, Type: typ, Nullable: false, Repeating: repeating})
	}
	return root, fields, n, nil
}

// applyOverrides implements spec.md §4.3's override-application rules:
// forceArrays sets repeating=true on existing top-level fields;
// typeHints replaces or creates a top-level field's type. Both operate
// only on the first path segment — deeper traversal is accepted
// syntactically and ignored, per spec.md §4.3 note 3.
func applyOverrides(fields *value.FieldMap, cfg Config) {
	for _, path := range cfg.ForceArrays {
		key := topLevelKey(path)
		if f, ok := fields.Get(key); ok {
			f.Repeating = true
			fields.Set(f)
		}
	}
	for path, typeName := range cfg.TypeHints {
		key := topLevelKey(path)
		if f, ok := fields.Get(key); ok {
			f.Type = value.TypeByName(typeName)
			fields.Set(f)
		} else {
			fields.Set(value.Field{Name: key, Type: value.TypeByName(typeName), Nullable: true, Repeating: false})
		}
	}
}
