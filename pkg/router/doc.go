// Package router maps locations to views for a client-side host shell.
//
// A Table is an ordered list of RouteEntry values built once at startup:
//
//	table := router.MustTable(
//	    router.RouteEntry{Pattern: "/", View: "NotesList"},
//	    router.RouteEntry{Pattern: "/note/:id", View: "NoteDetails", ParamsAsProps: true},
//	)
//
// Entry order is matching priority; the first structural match wins.
// Named segments (":id", optionally typed as ":id:int") bind into
// Match.Params, and are forwarded as Match.Props when ParamsAsProps is set.
//
//	m, ok := table.Resolve("/note/42")
//	// m.Entry.View == "NoteDetails", m.Params["id"] == "42"
//
// A Router tracks the current location of one shell on top of a shared
// Table. It understands path-based ("/note/42") and fragment-based
// ("/#/note/42") history, keeps a back/forward stack, runs Middleware
// around each navigation and notifies Observers after it commits.
//
//	r := router.New(table, router.WithHistory(router.HistoryHash))
//	nav, err := r.Navigate("/#/note/42")
//
// Not finding a route is not an error; Resolve reports false and
// Navigate commits a navigation whose Match is nil.
package router
