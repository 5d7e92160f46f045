package server

import (
	"net/http"

	nerr "github.com/vango-dev/notes/internal/errors"
	"github.com/vango-dev/notes/pkg/routepath"
	"github.com/vango-dev/notes/pkg/router"
)

// navigationBody is the JSON form of a navigation.
type navigationBody struct {
	Location string            `json:"location"`
	Path     string            `json:"path"`
	Query    string            `json:"query,omitempty"`
	View     string            `json:"view"`
	Pattern  string            `json:"pattern,omitempty"`
	Found    bool              `json:"found"`
	Replace  bool              `json:"replace,omitempty"`
	Params   map[string]string `json:"params"`
	Props    map[string]string `json:"props"`
}

func newNavigationBody(nav *router.Navigation) navigationBody {
	body := navigationBody{
		Location: nav.Location,
		Path:     nav.Path,
		Query:    nav.Query,
		View:     nav.View.String(),
		Found:    nav.Found(),
		Replace:  nav.Replace,
	}
	if nav.Match != nil {
		body.Pattern = nav.Match.Entry.Pattern
		body.Params = nav.Match.Params
		body.Props = nav.Match.Props
	}
	return body
}

// handleShell is the history fallback: every page path is served the
// view its location resolves to. Non-canonical paths redirect.
func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.EscapedPath()
	canon, err := routepath.Canonicalize(raw)
	if err != nil {
		writeError(w, r, s.logger, nerr.New("N400").WithDetail(err.Error()).Wrap(err))
		return
	}
	if canon != raw {
		target := canon
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
		return
	}

	location := r.URL.RequestURI()
	if s.config.History == router.HistoryHash {
		// The fragment never reaches the server, so the document mounts
		// the root route.
		location += "#/"
	}
	nav, err := s.newRouter(s.logger).NavigateContext(r.Context(), location)
	if err != nil {
		writeError(w, r, s.logger, nerr.New("N400").WithDetail(err.Error()).Wrap(err))
		return
	}

	status := http.StatusOK
	if !nav.Found() {
		status = http.StatusNotFound
	}
	writeJSON(w, status, newNavigationBody(nav))
}

// handleResolve answers ?location= with the body the shell would serve
// for it. The navigation runs on a throwaway router.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		writeError(w, r, s.logger, nerr.New("N400").WithField("location").WithDetail("location is required"))
		return
	}
	nav, err := s.newRouter(s.logger).NavigateContext(r.Context(), location)
	if err != nil {
		writeError(w, r, s.logger, nerr.New("N400").WithField("location").WithDetail(err.Error()).Wrap(err))
		return
	}

	status := http.StatusOK
	if !nav.Found() {
		status = http.StatusNotFound
	}
	writeJSON(w, status, newNavigationBody(nav))
}

type routeBody struct {
	Pattern       string `json:"pattern"`
	View          string `json:"view"`
	ParamsAsProps bool   `json:"params_as_props"`
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	entries := s.table.Entries()
	out := make([]routeBody, len(entries))
	for i, e := range entries {
		out[i] = routeBody{Pattern: e.Pattern, View: e.View.String(), ParamsAsProps: e.ParamsAsProps}
	}
	writeJSON(w, http.StatusOK, out)
}
