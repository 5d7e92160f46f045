package errors

import (
	"net/http"
	"sort"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string

	// Status overrides the category's HTTP status when non-zero.
	Status int
}

var registry = map[string]ErrorTemplate{
	// Configuration (N100-N199)
	"N100": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create notes.json or pass --config with a valid path.",
	},
	"N101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
	},
	"N102": {
		Category:   CategoryConfig,
		Message:    "Invalid listen address",
		Suggestion: "Use host:port, for example 127.0.0.1:8000.",
	},
	"N103": {
		Category:   CategoryConfig,
		Message:    "Invalid history mode",
		Suggestion: "Use \"path\" or \"hash\".",
	},
	"N104": {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
	},

	// Validation (N200-N299)
	"N200": {
		Category: CategoryValidation,
		Message:  "Invalid note",
		Status:   http.StatusUnprocessableEntity,
	},
	"N201": {
		Category: CategoryValidation,
		Message:  "No fields to update",
	},
	"N202": {
		Category: CategoryValidation,
		Message:  "Invalid note ID",
		Status:   http.StatusUnprocessableEntity,
	},
	"N203": {
		Category: CategoryValidation,
		Message:  "Malformed request body",
	},

	// Not found (N300-N399)
	"N300": {
		Category: CategoryNotFound,
		Message:  "Note not found",
	},
	"N301": {
		Category: CategoryNotFound,
		Message:  "No history found for this note",
	},

	// Routing (N400-N499)
	"N400": {
		Category: CategoryRouting,
		Message:  "Invalid navigation target",
	},
	"N401": {
		Category:   CategoryRouting,
		Message:    "No route matches path",
		Suggestion: "Run `notes routes` to list the registered patterns.",
		Status:     http.StatusNotFound,
	},
	"N402": {
		Category: CategoryRouting,
		Message:  "Unknown websocket message",
	},
	"N403": {
		Category: CategoryRouting,
		Message:  "No history entry in that direction",
		Status:   http.StatusConflict,
	},

	// Internal and upstream (N500-N599)
	"N500": {
		Category: CategoryInternal,
		Message:  "Internal error",
	},
	"N501": {
		Category:   CategoryUpstream,
		Message:    "Summarizer not configured",
		Suggestion: "Set NOTES_GEMINI_API_KEY.",
		Status:     http.StatusServiceUnavailable,
	},
	"N502": {
		Category: CategoryUpstream,
		Message:  "Summarizer request failed",
	},
	"N503": {
		Category:   CategoryUpstream,
		Message:    "Export not configured",
		Suggestion: "Set NOTES_S3_BUCKET.",
		Status:     http.StatusServiceUnavailable,
	},
	"N504": {
		Category: CategoryUpstream,
		Message:  "Export failed",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
