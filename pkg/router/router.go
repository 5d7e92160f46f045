package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vango-dev/notes/pkg/routepath"
)

// HistoryMode selects how the routed path is carried in the location.
type HistoryMode uint8

const (
	// HistoryPath routes on the URL path ("/note/1").
	HistoryPath HistoryMode = iota

	// HistoryHash routes on the URL fragment ("/#/note/1").
	HistoryHash
)

// String returns the mode name.
func (m HistoryMode) String() string {
	switch m {
	case HistoryHash:
		return "hash"
	default:
		return "path"
	}
}

// ParseHistoryMode parses a mode name ("path" or "hash").
func ParseHistoryMode(s string) (HistoryMode, error) {
	switch strings.ToLower(s) {
	case "", "path", "web", "history":
		return HistoryPath, nil
	case "hash", "fragment":
		return HistoryHash, nil
	default:
		return HistoryPath, fmt.Errorf("router: unknown history mode %q", s)
	}
}

// DefaultMaxHistory bounds the navigation stack kept by a Router.
const DefaultMaxHistory = 100

// Router tracks the current location of a host shell and resolves it
// against a Table.
//
// The Table is shared and read-only; navigation state is per Router and
// guarded by a mutex.
type Router struct {
	table      *Table
	mode       HistoryMode
	base       string
	notFound   ViewRef
	middleware []Middleware
	observers  []Observer
	logger     *slog.Logger
	maxHistory int

	mu    sync.Mutex
	stack []*Navigation
	index int
}

// Option configures a Router.
type Option func(*Router)

// WithHistory sets the history mode. The default is HistoryPath.
func WithHistory(mode HistoryMode) Option {
	return func(r *Router) {
		r.mode = mode
	}
}

// WithBase mounts the router under a path prefix (e.g., "/app").
func WithBase(base string) Option {
	return func(r *Router) {
		base = strings.TrimSuffix(base, "/")
		if base != "" && !strings.HasPrefix(base, "/") {
			base = "/" + base
		}
		r.base = base
	}
}

// WithNotFound sets the view reported for unmatched locations.
func WithNotFound(view ViewRef) Option {
	return func(r *Router) {
		r.notFound = view
	}
}

// WithObserver registers a callback run after each committed navigation.
func WithObserver(fn Observer) Option {
	return func(r *Router) {
		if fn != nil {
			r.observers = append(r.observers, fn)
		}
	}
}

// WithMiddleware appends navigation middleware. Middleware runs in order.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Router) {
		r.middleware = append(r.middleware, mw...)
	}
}

// WithLogger sets the router logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMaxHistory bounds the navigation stack. Values < 1 are ignored.
func WithMaxHistory(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxHistory = n
		}
	}
}

// New creates a Router over table. A nil table resolves nothing.
func New(table *Table, opts ...Option) *Router {
	if table == nil {
		table = &Table{}
	}
	r := &Router{
		table:      table,
		logger:     slog.Default().With("component", "router"),
		maxHistory: DefaultMaxHistory,
		index:      -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Table returns the route table.
func (r *Router) Table() *Table { return r.table }

// History returns the history mode.
func (r *Router) History() HistoryMode { return r.mode }

// Base returns the mount prefix ("" when mounted at the root).
func (r *Router) Base() string { return r.base }

// NotFoundView returns the view reported for unmatched locations.
func (r *Router) NotFoundView() ViewRef { return r.notFound }

// Resolve resolves a routed path (not a full location) against the table.
func (r *Router) Resolve(path string) (*Match, bool) {
	return r.table.Resolve(path)
}

// Href builds the location that routes to path in this router's mode.
func (r *Router) Href(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if r.mode == HistoryHash {
		return r.base + "/#" + path
	}
	if path == "/" && r.base != "" {
		return r.base
	}
	return r.base + path
}

// Current returns the current navigation, or nil before the first one.
func (r *Router) Current() *Navigation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index < 0 {
		return nil
	}
	return r.stack[r.index]
}

// Len returns the number of entries on the navigation stack.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stack)
}

// CanGoBack reports whether Back would move.
func (r *Router) CanGoBack() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index > 0
}

// CanGoForward reports whether Forward would move.
func (r *Router) CanGoForward() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index >= 0 && r.index < len(r.stack)-1
}

// routed extracts the routed path and query from a parsed location.
// ok is false when the location lies outside the router base.
func (r *Router) routed(loc routepath.Location) (path, query string, ok bool, err error) {
	if r.mode == HistoryHash {
		stripped, inBase := routepath.StripBase(loc.Path, r.base)
		if !inBase {
			return loc.Path, loc.Query, false, nil
		}
		if loc.Fragment == "" {
			// A plain path is routed as if pushed onto the fragment.
			return stripped, loc.Query, true, nil
		}
		inner, err := routepath.Parse(loc.Fragment)
		if err != nil {
			return "", "", false, err
		}
		return inner.Path, inner.Query, true, nil
	}

	path, ok = routepath.StripBase(loc.Path, r.base)
	return path, loc.Query, ok, nil
}

// commit pushes or replaces nav on the stack.
func (r *Router) commit(nav *Navigation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if nav.Replace && r.index >= 0 {
		r.stack[r.index] = nav
		return
	}

	// Pushing drops any forward entries.
	r.stack = append(r.stack[:r.index+1], nav)
	if over := len(r.stack) - r.maxHistory; over > 0 {
		r.stack = append([]*Navigation(nil), r.stack[over:]...)
	}
	r.index = len(r.stack) - 1
}

// move shifts the stack cursor by delta.
func (r *Router) move(delta int) (*Navigation, bool) {
	r.mu.Lock()
	next := r.index + delta
	if r.index < 0 || next < 0 || next >= len(r.stack) {
		r.mu.Unlock()
		return nil, false
	}
	r.index = next
	nav := r.stack[next]
	r.mu.Unlock()

	r.notify(nav)
	return nav, true
}

// Back moves to the previous navigation. It reports false at the start
// of the stack.
func (r *Router) Back() (*Navigation, bool) {
	return r.move(-1)
}

// Forward moves to the next navigation. It reports false at the end of
// the stack.
func (r *Router) Forward() (*Navigation, bool) {
	return r.move(1)
}

func (r *Router) notify(nav *Navigation) {
	for _, fn := range r.observers {
		fn(nav)
	}
}

// composeMiddleware builds the chain around handler, first to last.
func composeMiddleware(ctx context.Context, nav *Navigation, mw []Middleware, handler func() error) error {
	chain := handler
	for i := len(mw) - 1; i >= 0; i-- {
		m := mw[i]
		next := chain
		chain = func() error {
			return m.Handle(ctx, nav, next)
		}
	}
	return chain()
}

// Chain combines middleware into one, run in order.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, nav *Navigation, next func() error) error {
		return composeMiddleware(ctx, nav, middleware, next)
	})
}
