package router

import (
	"context"
	"errors"
)

// ViewRef identifies a renderable view mounted by the host shell.
type ViewRef string

// String returns the view identifier.
func (v ViewRef) String() string { return string(v) }

// RouteEntry binds a path pattern to a view.
type RouteEntry struct {
	// Pattern is the path template (e.g., "/note/:id").
	Pattern string

	// View is the view mounted when Pattern matches. Never empty.
	View ViewRef

	// ParamsAsProps forwards the matched params to View as props.
	ParamsAsProps bool
}

// Match is the result of resolving a path against a Table.
type Match struct {
	// Entry is the matched route entry.
	Entry RouteEntry

	// Index is the entry position in the table.
	Index int

	// Path is the canonical path that was matched.
	Path string

	// Params are the named segments bound by the pattern.
	// Nil when the pattern has no named segment.
	Params map[string]string

	// Props are the params forwarded to the view.
	// Nil unless Entry.ParamsAsProps is set and the pattern binds params.
	Props map[string]string
}

// View returns the matched view.
func (m *Match) View() ViewRef {
	if m == nil {
		return ""
	}
	return m.Entry.View
}

// Param returns a single bound param.
func (m *Match) Param(name string) string {
	if m == nil {
		return ""
	}
	return m.Params[name]
}

// Route table construction errors.
var (
	ErrEmptyPattern     = errors.New("router: empty pattern")
	ErrInvalidPattern   = errors.New("router: invalid pattern")
	ErrDuplicatePattern = errors.New("router: duplicate pattern")
	ErrEmptyView        = errors.New("router: empty view")
)

// Middleware wraps navigation. Returning an error aborts the navigation
// and leaves the router state unchanged.
type Middleware interface {
	Handle(ctx context.Context, nav *Navigation, next func() error) error
}

// MiddlewareFunc is a function adapter for Middleware.
type MiddlewareFunc func(ctx context.Context, nav *Navigation, next func() error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx context.Context, nav *Navigation, next func() error) error {
	return f(ctx, nav, next)
}

// Observer is notified after every committed navigation.
type Observer func(nav *Navigation)
