package router

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/vango-dev/notes/pkg/routepath"
)

// NavigateOptions configures a navigation.
type NavigateOptions struct {
	// Replace replaces the current history entry instead of pushing.
	Replace bool

	// Params are query parameters merged into the location.
	Params map[string]any
}

// NavigateOption is a functional option for Navigate.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		o.Replace = true
	}
}

// WithParams adds query parameters to the navigation location.
func WithParams(params map[string]any) NavigateOption {
	return func(o *NavigateOptions) {
		o.Params = params
	}
}

// Navigation is a committed (or pending, inside middleware) change of
// location.
type Navigation struct {
	// Location is the tracked location as the host shell shows it,
	// including base and, in hash mode, the fragment.
	Location string

	// Path is the canonical routed path.
	Path string

	// Query is the routed query string without "?".
	Query string

	// Match is the resolved route, nil when nothing matched.
	Match *Match

	// View is the view to mount: the matched view, the not-found view,
	// or empty.
	View ViewRef

	// Replace is set when the navigation replaced the current entry.
	Replace bool
}

// Found reports whether the location matched a route.
func (n *Navigation) Found() bool {
	return n != nil && n.Match != nil
}

// Props returns the props to pass to View.
func (n *Navigation) Props() map[string]string {
	if n == nil || n.Match == nil {
		return nil
	}
	return n.Match.Props
}

// Navigate is NavigateContext with a background context.
func (r *Router) Navigate(location string, opts ...NavigateOption) (*Navigation, error) {
	return r.NavigateContext(context.Background(), location, opts...)
}

// NavigateContext updates the tracked location and resolves it.
//
// An unmatched location is not an error: the navigation is committed
// with a nil Match and the not-found view. Invalid locations (absolute
// URLs, unsafe paths) and middleware errors return an error and leave
// the router unchanged.
func (r *Router) NavigateContext(ctx context.Context, location string, opts ...NavigateOption) (*Navigation, error) {
	var options NavigateOptions
	for _, opt := range opts {
		opt(&options)
	}

	loc, err := routepath.ParseNav(location)
	if err != nil {
		return nil, fmt.Errorf("navigate %q: %w", location, err)
	}
	if strings.HasPrefix(location, "#") {
		r.documentFor(&loc)
	}

	path, query, inBase, err := r.routed(loc)
	if err != nil {
		return nil, fmt.Errorf("navigate %q: %w", location, err)
	}
	query = mergeQuery(query, options.Params)

	nav := &Navigation{
		Path:    path,
		Query:   query,
		Replace: options.Replace,
	}
	if inBase {
		nav.Match, _ = r.table.resolveCanonical(path)
	}
	nav.Location = r.locationFor(path, query, inBase)
	if nav.Match != nil {
		nav.View = nav.Match.Entry.View
	} else {
		nav.View = r.notFound
	}

	err = composeMiddleware(ctx, nav, r.middleware, func() error {
		r.commit(nav)
		return nil
	})
	if err != nil {
		r.logger.Debug("navigation aborted", "location", location, "error", err)
		return nil, err
	}

	r.logger.Debug("navigated",
		"location", nav.Location,
		"view", nav.View,
		"found", nav.Found(),
		"replace", nav.Replace,
	)
	r.notify(nav)
	return nav, nil
}

// documentFor fills in the document a bare "#..." target refers to. In
// path mode that is the current location, so the route does not change;
// in hash mode it is the base and the fragment carries the route.
func (r *Router) documentFor(loc *routepath.Location) {
	if r.mode == HistoryPath {
		if cur := r.Current(); cur != nil {
			if doc, err := routepath.Parse(cur.Location); err == nil {
				loc.Path, loc.Query = doc.Path, doc.Query
				return
			}
		}
	}
	if r.base != "" {
		loc.Path = r.base
	}
}

// locationFor renders the tracked location for a routed path.
func (r *Router) locationFor(path, query string, inBase bool) string {
	target := path
	if query != "" {
		target += "?" + query
	}
	if !inBase {
		return target
	}
	if r.mode == HistoryHash {
		return r.base + "/#" + target
	}
	if path == "/" && r.base != "" {
		return r.base + target[1:]
	}
	return r.base + target
}

// mergeQuery adds params to a raw query. The result is encoded with
// sorted keys.
func mergeQuery(raw string, params map[string]any) string {
	if len(params) == 0 {
		return raw
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		q = url.Values{}
	}
	for k, v := range params {
		q.Set(k, fmt.Sprintf("%v", v))
	}
	return q.Encode()
}
