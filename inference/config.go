// Package inference implements the schema inference/merge engine of
// spec.md §4.3 (C3): sampling-based inference over xmlrecord.Record
// trees, folded with an optional external schema and explicit overrides
// into a single value.Schema.
package inference

// Mode selects how a Schema is produced.
type Mode int

const (
	// Auto infers purely from sampling C1's output.
	Auto Mode = iota
	// External uses the external schema only; Infer fails if none is
	// available.
	External
	// Manual constructs the schema from overrides only, ignoring both
	// sampling and any external schema.
	Manual
	// Hybrid merges an external schema (if present) with sampled fields,
	// then applies overrides.
	Hybrid
)

func (m Mode) String() string {
	switch m {
	case Auto:
		return "auto"
	case External:
		return "external"
	case Manual:
		return "manual"
	case Hybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// Config configures Infer, mirroring spec.md §4.3's option table.
type Config struct {
	Mode Mode

	// SamplingSize upper-bounds the number of records consumed for
	// inference. Zero means the spec.md default of 1000.
	SamplingSize int

	// ForceArrays lists top-level field paths whose repeating flag is
	// forced to true.
	ForceArrays []string

	// TypeHints maps a top-level field path to a type-name string from
	// the same table value.TypeByName implements.
	TypeHints map[string]string
}

func (c Config) samplingSize() int {
	if c.SamplingSize > 0 {
		return c.SamplingSize
	}
	return 1000
}
