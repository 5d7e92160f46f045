// Package views declares the notes application views and the route table
// that mounts them.
package views

import "github.com/vango-dev/notes/pkg/router"

// Views mounted by the host shell.
const (
	NotesList   router.ViewRef = "NotesList"
	NoteDetails router.ViewRef = "NoteDetails"
	NoteForm    router.ViewRef = "NoteForm"
	Analytics   router.ViewRef = "Analytics"

	// NotFound is reported for locations no route matches.
	NotFound router.ViewRef = "NotFound"
)

// Routes returns the navigation entries in priority order.
func Routes() []router.RouteEntry {
	return []router.RouteEntry{
		{Pattern: "/", View: NotesList},
		{Pattern: "/note/:id", View: NoteDetails, ParamsAsProps: true},
		{Pattern: "/create", View: NoteForm},
		{Pattern: "/edit/:id", View: NoteForm, ParamsAsProps: true},
		{Pattern: "/analytics", View: Analytics},
	}
}

// Table builds the route table. The entries are static, so failure is a
// programming error.
func Table() *router.Table {
	return router.MustTable(Routes()...)
}

// NoteProps are the props NoteDetails and NoteForm (edit mode) receive.
type NoteProps struct {
	ID int64 `prop:"id"`
}

// Props decodes the props of a navigation into NoteProps.
// ok is false when the navigation carries no note id.
func Props(nav *router.Navigation) (p NoteProps, ok bool, err error) {
	props := nav.Props()
	if _, has := props["id"]; !has {
		return p, false, nil
	}
	if err := router.BindProps(props, &p); err != nil {
		return p, false, err
	}
	return p, true, nil
}
