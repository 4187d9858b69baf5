// Package sanitize implements the "sanitize for target" function of
// spec.md §4.4: a pure function from (name, Rules) to a sanitized
// identifier, parameterized so the same logic serves every sink, plus the
// collision-resolution contract spec.md §4.5/§9 assigns to callers.
package sanitize

import (
	"strconv"
	"strings"
)

// Rules parameterizes sanitization for one target sink, per spec.md
// §4.4's "Rules are parameterized so the same function serves all
// sinks."
type Rules struct {
	// MaxLen truncates the sanitized name to this many bytes. Zero means
	// no limit.
	MaxLen int
	// Lower lower-cases the sanitized name when true.
	Lower bool
}

// Name sanitizes a single field/column name for a given target's Rules.
// Per spec.md §4.4:
//
//   - forbidden characters (anything not [A-Za-z0-9_]) → '_'
//   - '#' is dropped entirely (not replaced)
//   - '@' → "attr_"
//   - leading/trailing '_' stripped
//   - truncated to rules.MaxLen (if set)
//   - optionally lower-cased
//
// Name is a pure function: the same input and Rules always yield the
// same output, and it is idempotent (Name(Name(x), r) == Name(x, r)),
// per spec.md §3's invariant and §8's testable property.
func Name(raw string, rules Rules) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == '#':
			// dropped, not replaced
			continue
		case r == '@':
			b.WriteString("attr_")
		case isAllowed(r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if rules.MaxLen > 0 && len(out) > rules.MaxLen {
		out = out[:rules.MaxLen]
		out = strings.TrimRight(out, "_")
	}
	if rules.Lower {
		out = strings.ToLower(out)
	}
	if out == "" {
		out = "_"
	}
	return out
}

func isAllowed(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// Deduper assigns sanitized, de-duplicated names to a sequence of raw
// source names, using the first-unused "_1", "_2", … suffix scheme
// spec.md §4.5 describes for columnar sinks, and keeping the mapping
// stable for the caller's run — the collision handling spec.md §9 says
// should live in the shared sanitizer contract, not duplicated per sink.
type Deduper struct {
	rules Rules
	used  map[string]bool
}

// NewDeduper constructs a Deduper for one sink's Rules.
func NewDeduper(rules Rules) *Deduper {
	return &Deduper{rules: rules, used: make(map[string]bool)}
}

// Assign sanitizes raw and, if the result collides with a name already
// assigned during this Deduper's lifetime, appends the first unused
// "_N" suffix (N starting at 1). The mapping is stable: calling Assign
// again with the same raw name returns the same result only if Assign
// has not yet been called for that raw name this run (per-call
// semantics, matching "assigns a numeric suffix... keeping the mapping
// stable for the run" — callers should call Assign once per distinct
// top-level field name, not once per row).
func (d *Deduper) Assign(raw string) string {
	base := Name(raw, d.rules)
	if d.rules.MaxLen > 0 && len(base) > d.rules.MaxLen {
		base = base[:d.rules.MaxLen]
	}
	candidate := base
	if !d.used[candidate] {
		d.used[candidate] = true
		return candidate
	}
	for n := 1; ; n++ {
		suffix := suffixFor(n)
		candidate = truncateForSuffix(base, suffix, d.rules.MaxLen)
		if !d.used[candidate] {
			d.used[candidate] = true
			return candidate
		}
	}
}

func suffixFor(n int) string {
	return "_" + strconv.Itoa(n)
}

func truncateForSuffix(base, suffix string, maxLen int) string {
	if maxLen <= 0 || len(base)+len(suffix) <= maxLen {
		return base + suffix
	}
	keep := maxLen - len(suffix)
	if keep < 0 {
		keep = 0
	}
	return base[:keep] + suffix
}
