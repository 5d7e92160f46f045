// Package errors provides coded, structured errors for the notes server
// and CLI.
//
// Each error has a code (e.g., "N300") registered with a category, a
// short message, and an optional hint. The category decides the HTTP
// status an API response uses; a template may override it.
//
//	err := errors.New("N300").WithDetail("note 42")
//	fmt.Println(err.Format())
//	// ERROR N300: Note not found
//	//
//	//   note 42
//
// API handlers encode Body() as the response; the CLI prints Format().
package errors
