package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

// Format returns the error formatted for terminal display.
func (e *NotesError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	if e.Code != "" {
		b.WriteString(color(colorRed+colorBold, "ERROR "+e.Code+": "))
	} else {
		b.WriteString(color(colorRed+colorBold, "ERROR: "))
	}
	b.WriteString(e.Message)
	b.WriteString("\n")

	if e.Detail != "" {
		b.WriteString("\n  ")
		b.WriteString(e.Detail)
		b.WriteString("\n")
	}
	if e.Wrapped != nil && e.Wrapped.Error() != e.Detail {
		b.WriteString(color(colorGray, "\n  caused by: "+e.Wrapped.Error()))
		b.WriteString("\n")
	}
	if e.Suggestion != "" {
		b.WriteString("\n  ")
		b.WriteString(color(colorYellow, "Hint: "))
		b.WriteString(e.Suggestion)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// FormatCompact returns a compact single-line error format.
func (e *NotesError) FormatCompact() string {
	return e.Error()
}

// Body is the JSON shape of an API error response.
type Body struct {
	Code       string `json:"code,omitempty"`
	Category   string `json:"category"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	Field      string `json:"field,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Body returns the API representation of the error.
func (e *NotesError) Body() Body {
	return Body{
		Code:       e.Code,
		Category:   string(e.Category),
		Message:    e.Message,
		Detail:     e.Detail,
		Field:      e.Field,
		Suggestion: e.Suggestion,
	}
}

// FormatJSON returns the error as a JSON object.
func (e *NotesError) FormatJSON() string {
	raw, err := json.Marshal(e.Body())
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(raw)
}

// Fprint writes a formatted error to w.
func Fprint(w io.Writer, err error) {
	if ne, ok := err.(*NotesError); ok {
		fmt.Fprint(w, ne.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", color(colorRed+colorBold, "ERROR:"), err.Error())
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}
