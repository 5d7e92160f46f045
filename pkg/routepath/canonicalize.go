package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Location is a navigation target split into its routed parts.
type Location struct {
	// Path is the canonical path, always starting with "/".
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Fragment is the raw fragment without the leading "#".
	Fragment string
}

// String reassembles the location.
func (l Location) String() string {
	var b strings.Builder
	b.WriteString(l.Path)
	if l.Query != "" {
		b.WriteByte('?')
		b.WriteString(l.Query)
	}
	if l.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(l.Fragment)
	}
	return b.String()
}

// RequestURI returns the path with its query, without the fragment.
func (l Location) RequestURI() string {
	if l.Query == "" {
		return l.Path
	}
	return l.Path + "?" + l.Query
}

// Path errors.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
	ErrEncodedSlash         = errors.New("encoded slash (%2F) in path segment")
	ErrAbsoluteURL          = errors.New("navigation target must be a relative path")
)

// Canonicalize normalizes a path (no query or fragment).
//
// The following rewrites are applied:
//   - a missing leading slash is added
//   - repeated slashes collapse (/note//1 → /note/1)
//   - "." segments are dropped and ".." pops the previous segment
//   - a trailing slash is removed, except for the root
//
// Backslashes, NUL bytes, malformed percent escapes and ".." above the
// root are rejected.
func Canonicalize(path string) (string, error) {
	if path == "" {
		return "/", nil
	}
	if strings.Contains(path, "\\") {
		return "", ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return "", ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return "", err
		}
	}

	var out []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return "", ErrPathEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	return "/" + strings.Join(out, "/"), nil
}

// Parse splits raw into path, query and fragment and canonicalizes the path.
func Parse(raw string) (Location, error) {
	rest, fragment, _ := strings.Cut(raw, "#")
	path, query, _ := strings.Cut(rest, "?")
	canon, err := Canonicalize(path)
	if err != nil {
		return Location{}, err
	}
	return Location{Path: canon, Query: query, Fragment: fragment}, nil
}

// ParseNav validates a navigation target and parses it.
//
// Navigation targets must be relative: they start with "/" or "#" and
// never carry a scheme or host ("http://x", "//x").
func ParseNav(raw string) (Location, error) {
	if raw == "" {
		return Location{}, ErrInvalidPath
	}
	if strings.HasPrefix(raw, "//") || hasScheme(raw) {
		return Location{}, ErrAbsoluteURL
	}
	if raw[0] != '/' && raw[0] != '#' {
		return Location{}, ErrInvalidPath
	}
	return Parse(raw)
}

// hasScheme reports whether raw starts with "scheme:" before any "/".
func hasScheme(raw string) bool {
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == ':':
			return i > 0
		case c == '/' || c == '?' || c == '#':
			return false
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return false
}

// validatePercentEscapes checks that every "%" is followed by two hex digits.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Split returns the segments of a canonical path. The root has none.
func Split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// DecodeSegment percent-decodes a single segment. Unless the segment is
// bound to a catch-all, a decoded "/" is rejected so a parameter can never
// smuggle extra path structure.
func DecodeSegment(segment string, catchAll bool) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if !catchAll && strings.Contains(decoded, "/") {
		return "", ErrEncodedSlash
	}
	return decoded, nil
}

// StripBase removes base from the front of path on a segment boundary.
// It reports false when path is outside base.
func StripBase(path, base string) (string, bool) {
	if base == "" || base == "/" {
		return path, true
	}
	base = strings.TrimSuffix(base, "/")
	if path == base {
		return "/", true
	}
	if strings.HasPrefix(path, base) && path[len(base)] == '/' {
		return path[len(base):], true
	}
	return path, false
}
