package value

import "regexp"

// These patterns implement the leaf-type probe exactly as spec.md §4.3
// specifies it: a deliberately simple, regex-driven policy surface (see
// spec.md §9), not a general-purpose value parser.
var (
	reInt       = regexp.MustCompile(`^-?\d+$`)
	reFloat     = regexp.MustCompile(`^-?\d+\.\d+$`)
	reTimestamp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}.*$`)
	reDate      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ProbeLeafType infers the primitive Type of a text value, following the
// rules in spec.md §4.3:
//
//	"true"|"false"                       → Bool
//	-?\d+, length <= 10                  → I32, else I64
//	-?\d+\.\d+                           → F64
//	\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}.. → Timestamp
//	\d{4}-\d{2}-\d{2}                    → Date
//	otherwise                            → Str
//
// ProbeLeafType is idempotent in the sense spec.md §8 requires:
// probing the same string twice always yields the same Type.
func ProbeLeafType(s string) Type {
	switch s {
	case "true", "false":
		return TBool()
	}
	if reTimestamp.MatchString(s) {
		return TTimestamp()
	}
	if reDate.MatchString(s) {
		return TDate()
	}
	if reFloat.MatchString(s) {
		return TF64()
	}
	if reInt.MatchString(s) {
		digits := s
		if len(digits) > 0 && digits[0] == '-' {
			digits = digits[1:]
		}
		if len(digits) <= 10 {
			return TI32()
		}
		return TI64()
	}
	return TStr()
}
