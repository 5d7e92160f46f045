package router

import (
	"fmt"
	"strings"

	"github.com/vango-dev/notes/pkg/routepath"
)

type segmentKind uint8

const (
	segmentStatic segmentKind = iota
	segmentParam
	segmentCatchAll
)

// segment is one compiled piece of a pattern.
type segment struct {
	kind segmentKind

	// value is the literal for static segments.
	value string

	// name and paramType describe param and catch-all segments.
	name      string
	paramType string
}

// pattern is a compiled RouteEntry.Pattern.
type pattern struct {
	raw      string
	segments []segment

	// key identifies the structure of the pattern; param names are ignored
	// so "/note/:id" and "/note/:slug" collide.
	key string

	hasParams bool
}

// compilePattern parses a path template.
//
//	/                → root
//	/note/:id        → named segment
//	/note/:id:int    → typed named segment
//	/files/*path     → catch-all, must be last
func compilePattern(raw string) (*pattern, error) {
	if raw == "" {
		return nil, ErrEmptyPattern
	}
	if !strings.HasPrefix(raw, "/") {
		return nil, fmt.Errorf("%w %q: must start with /", ErrInvalidPattern, raw)
	}

	parts := routepath.Split(raw)
	p := &pattern{raw: raw, segments: make([]segment, 0, len(parts))}
	seen := make(map[string]bool)
	keys := make([]string, 0, len(parts))

	for i, part := range parts {
		switch {
		case part == "":
			return nil, fmt.Errorf("%w %q: empty segment", ErrInvalidPattern, raw)

		case strings.HasPrefix(part, "*"):
			if i != len(parts)-1 {
				return nil, fmt.Errorf("%w %q: catch-all must be the last segment", ErrInvalidPattern, raw)
			}
			name := part[1:]
			if name == "" {
				return nil, fmt.Errorf("%w %q: unnamed catch-all", ErrInvalidPattern, raw)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w %q: param %q repeated", ErrInvalidPattern, raw, name)
			}
			seen[name] = true
			p.segments = append(p.segments, segment{kind: segmentCatchAll, name: name, paramType: "[]string"})
			keys = append(keys, "*")

		case strings.HasPrefix(part, ":"):
			name, typ := parseParamSegment(part)
			if name == "" {
				return nil, fmt.Errorf("%w %q: unnamed param", ErrInvalidPattern, raw)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w %q: param %q repeated", ErrInvalidPattern, raw, name)
			}
			seen[name] = true
			p.segments = append(p.segments, segment{kind: segmentParam, name: name, paramType: typ})
			keys = append(keys, ":"+typ)

		default:
			p.segments = append(p.segments, segment{kind: segmentStatic, value: part})
			keys = append(keys, part)
		}
	}

	p.hasParams = len(seen) > 0
	p.key = "/" + strings.Join(keys, "/")
	return p, nil
}

// parseParamSegment extracts name and type from a parameter segment.
// ":id" → ("id", "string"), ":id:int" → ("id", "int").
func parseParamSegment(seg string) (name, paramType string) {
	seg = seg[1:]
	if idx := strings.Index(seg, ":"); idx != -1 {
		return seg[:idx], seg[idx+1:]
	}
	return seg, "string"
}

// match binds the segments of a canonical path against the pattern.
// Params is nil when the pattern has no named segment.
func (p *pattern) match(parts []string) (map[string]string, bool) {
	var params map[string]string
	if p.hasParams {
		params = make(map[string]string, len(p.segments))
	}

	for i, seg := range p.segments {
		if seg.kind == segmentCatchAll {
			if i >= len(parts) {
				return nil, false
			}
			value, err := routepath.DecodeSegment(strings.Join(parts[i:], "/"), true)
			if err != nil {
				return nil, false
			}
			params[seg.name] = value
			return params, true
		}

		if i >= len(parts) {
			return nil, false
		}

		switch seg.kind {
		case segmentStatic:
			if parts[i] != seg.value {
				return nil, false
			}
		case segmentParam:
			value, err := routepath.DecodeSegment(parts[i], false)
			if err != nil || value == "" {
				return nil, false
			}
			if err := ValidateParam(value, seg.paramType); err != nil {
				return nil, false
			}
			params[seg.name] = value
		}
	}

	if len(parts) != len(p.segments) {
		return nil, false
	}
	return params, true
}
