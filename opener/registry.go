package opener

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
)

// OpenerFactory constructs a single Opener from a source specification
// string. Registration is by scheme (see RegisterOpener) so that a caller
// can plug in additional source kinds without this package knowing about
// them.
type OpenerFactory func(spec string) (Opener, error)

// RegisterOpener associates a scheme with an OpenerFactory.
//
// This should typically be called from init() within the package that
// implements the opener. Registration is global for the lifetime of the
// process; registering the same scheme twice returns an error.
func RegisterOpener(scheme schemeType, f OpenerFactory) error {
	regMu.Lock()
	defer regMu.Unlock()
	if _, ok := openerRegistry[scheme]; ok {
		return fmt.Errorf("opener for scheme %q already registered", scheme)
	}
	openerRegistry[scheme] = f
	return nil
}

// FromSpec resolves a source specification string into a single Opener by
// inferring its scheme.
//
//   - file:// URIs and bare paths → schemeFile
//   - any other "scheme://" prefix → that scheme's registered factory;
//     a scheme with no registered factory returns an error
//
// Unlike the teacher's CSV-oriented factory, FromSpec never globs: the
// CORE's XML input is always exactly one document (spec.md §6), so one
// specification resolves to exactly one Opener.
func FromSpec(spec string) (Opener, error) {
	scheme := detectScheme(spec)
	if scheme == schemeUnknown {
		return nil, fmt.Errorf("unknown scheme for %q", spec)
	}
	regMu.RLock()
	f, ok := openerRegistry[scheme]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no opener registered for scheme %q (spec %q)", scheme, spec)
	}
	return f(spec)
}

// schemeType identifies the access mechanism used to retrieve data from a
// source specification.
type schemeType string

const (
	schemeUnknown schemeType = "unknown"
	// schemeFile indicates that data should be accessed via local
	// filesystem operations. This applies to both "file://..." URIs and
	// bare paths — the only input scheme spec.md §6 requires.
	schemeFile schemeType = "file"
)

var (
	openerRegistry = map[schemeType]OpenerFactory{}
	regMu          sync.RWMutex
)

func init() {
	_ = RegisterOpener(schemeFile, fileOpenerFactory)
}

func detectScheme(spec string) schemeType {
	spec = strings.ToLower(strings.TrimSpace(spec))
	switch {
	case strings.HasPrefix(spec, "file://"), strings.HasPrefix(spec, "file:"):
		return schemeFile
	case !strings.Contains(spec, "://"):
		return schemeFile
	default:
		return schemeType(spec[:strings.Index(spec, "://")])
	}
}

// fileOpenerFactory resolves a path or file: URL into a File opener.
func fileOpenerFactory(spec string) (Opener, error) {
	path, err := normalizeFileSpec(spec)
	if err != nil {
		return nil, err
	}
	return NewFile(path), nil
}

// normalizeFileSpec converts a user-facing file specification into a
// plain filesystem path, decoding file:// URLs (hierarchical and opaque
// forms) and leaving bare paths untouched.
func normalizeFileSpec(spec string) (string, error) {
	spec = strings.TrimSpace(spec)

	if scheme, ok := hasSchemeOtherThanFile(spec); ok {
		return "", fmt.Errorf("unsupported scheme %q", scheme)
	}
	if len(spec) >= 5 && strings.EqualFold(spec[:5], "file:") {
		return normalizeFileURL(spec)
	}
	return spec, nil
}

func hasSchemeOtherThanFile(spec string) (string, bool) {
	if u, err := url.Parse(spec); err == nil && u.Scheme != "" && !strings.EqualFold(u.Scheme, "file") {
		return u.Scheme, true
	}
	return "", false
}

// normalizeFileURL normalizes a file: URL into a filesystem path.
// Supports file:///abs/path and file:/opaque/path forms; percent-encoded
// sequences are decoded.
func normalizeFileURL(spec string) (string, error) {
	u, err := url.Parse(spec)
	if err != nil {
		return "", err
	}
	path := u.Path
	if u.Path == "" && u.Opaque != "" {
		path = u.Opaque
	} else if u.Host != "" && !strings.EqualFold(u.Host, "localhost") {
		path = "//" + u.Host + u.Path
	}
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}
	if path == "" {
		return "", fmt.Errorf("empty file URI: %q", spec)
	}
	return filepath.FromSlash(path), nil
}
