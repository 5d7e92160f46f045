package router

import (
	"fmt"
	"maps"

	"github.com/vango-dev/notes/pkg/routepath"
)

// Table is an immutable, ordered route table. Entry order is matching
// priority: the first entry whose pattern matches a path wins.
//
// A Table is safe for concurrent use.
type Table struct {
	entries  []RouteEntry
	patterns []*pattern
}

// NewTable validates and compiles entries in the given order.
func NewTable(entries ...RouteEntry) (*Table, error) {
	t := &Table{
		entries:  make([]RouteEntry, 0, len(entries)),
		patterns: make([]*pattern, 0, len(entries)),
	}
	keys := make(map[string]string, len(entries))

	for _, e := range entries {
		if e.View == "" {
			return nil, fmt.Errorf("%w for pattern %q", ErrEmptyView, e.Pattern)
		}
		p, err := compilePattern(e.Pattern)
		if err != nil {
			return nil, err
		}
		if prev, ok := keys[p.key]; ok {
			return nil, fmt.Errorf("%w: %q conflicts with %q", ErrDuplicatePattern, e.Pattern, prev)
		}
		keys[p.key] = e.Pattern
		t.entries = append(t.entries, e)
		t.patterns = append(t.patterns, p)
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. It is meant for tables
// declared at startup.
func MustTable(entries ...RouteEntry) *Table {
	t, err := NewTable(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of the entries in priority order.
func (t *Table) Entries() []RouteEntry {
	return append([]RouteEntry(nil), t.entries...)
}

// Resolve returns the first entry matching path. The path may carry a
// query or fragment; both are ignored. Paths that fail canonicalization
// never match.
func (t *Table) Resolve(path string) (*Match, bool) {
	loc, err := routepath.Parse(path)
	if err != nil {
		return nil, false
	}
	return t.resolveCanonical(loc.Path)
}

func (t *Table) resolveCanonical(path string) (*Match, bool) {
	parts := routepath.Split(path)
	for i, p := range t.patterns {
		params, ok := p.match(parts)
		if !ok {
			continue
		}
		entry := t.entries[i]
		m := &Match{
			Entry:  entry,
			Index:  i,
			Path:   path,
			Params: params,
		}
		if entry.ParamsAsProps && params != nil {
			m.Props = maps.Clone(params)
		}
		return m, true
	}
	return nil, false
}
